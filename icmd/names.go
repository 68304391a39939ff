/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package icmd runs iCommands and other external programs, capturing their
// output.

package icmd

import (
	"strconv"

	"github.com/wtsi-hgi/itest/errs"
)

// Name identifies one of the iCommands a session is allowed to run.
type Name int

const (
	IInit Name = iota
	IEnv
	IHelp
	ILs
	ICd
	IMkdir
	IChmod
	IMeta
	IGet
	IPut
	IMv
	ICp
	IRepl
	IQuest
	IRm
	IRmTrash
	IExit
	ILsResc
	IMiscSvrInfo
	IUserInfo
	IPwd
	IError
	IExecCmd
	IPs
	IQStat
	IChksum
	ITrim
	IPhyMv
	IBun
	IPhyBun
	IReg
	IMColl
	IRsync
	IXMsg
	IRule
	IQDel
	ITicket
	IAPITest
	IScan
	ISysMeta
	IAdmin
	IFsck
	IZoneReport
	numNames
)

var names = [numNames]string{ //nolint:gochecknoglobals
	IInit:        "iinit",
	IEnv:         "ienv",
	IHelp:        "ihelp",
	ILs:          "ils",
	ICd:          "icd",
	IMkdir:       "imkdir",
	IChmod:       "ichmod",
	IMeta:        "imeta",
	IGet:         "iget",
	IPut:         "iput",
	IMv:          "imv",
	ICp:          "icp",
	IRepl:        "irepl",
	IQuest:       "iquest",
	IRm:          "irm",
	IRmTrash:     "irmtrash",
	IExit:        "iexit",
	ILsResc:      "ilsresc",
	IMiscSvrInfo: "imiscsvrinfo",
	IUserInfo:    "iuserinfo",
	IPwd:         "ipwd",
	IError:       "ierror",
	IExecCmd:     "iexecmd",
	IPs:          "ips",
	IQStat:       "iqstat",
	IChksum:      "ichksum",
	ITrim:        "itrim",
	IPhyMv:       "iphymv",
	IBun:         "ibun",
	IPhyBun:      "iphybun",
	IReg:         "ireg",
	IMColl:       "imcoll",
	IRsync:       "irsync",
	IXMsg:        "ixmsg",
	IRule:        "irule",
	IQDel:        "iqdel",
	ITicket:      "iticket",
	IAPITest:     "iapitest",
	IScan:        "iscan",
	ISysMeta:     "isysmeta",
	IAdmin:       "iadmin",
	IFsck:        "ifsck",
	IZoneReport:  "izonereport",
}

var byName = func() map[string]Name { //nolint:gochecknoglobals
	m := make(map[string]Name, numNames)

	for n, s := range names {
		m[s] = Name(n)
	}

	return m
}()

// String returns the executable name of the iCommand.
func (n Name) String() string {
	if n < 0 || n >= numNames {
		return "icommand(" + strconv.Itoa(int(n)) + ")"
	}

	return names[n]
}

// Valid reports whether n is one of the known iCommands.
func (n Name) Valid() bool {
	return n >= 0 && n < numNames
}

// ParseName returns the Name for the given executable name, or an
// UnknownCommandError.
func ParseName(s string) (Name, error) {
	n, ok := byName[s]
	if !ok {
		return 0, &errs.UnknownCommandError{Command: s}
	}

	return n, nil
}

// Names returns every known iCommand name.
func Names() []Name {
	all := make([]Name, numNames)

	for i := range all {
		all[i] = Name(i)
	}

	return all
}

