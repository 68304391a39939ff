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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/expect"
)

const noRC = -1

// options for this cmd.
var (
	assertKind   string
	assertValues []string
	assertRegex  bool
	assertRC     int
	assertFail   bool
)

// assertCmd represents the assert command.
var assertCmd = &cobra.Command{
	Use:   "assert [flags] -- icommand [args]",
	Short: "Run an iCommand in a session and check its output",
	Long: `Run an iCommand in a session and check its output.

Session flags are as for 'itest run'. The output check is given by --kind:

EMPTY              no output at all
STDOUT             every --value appears somewhere in STDOUT
STDERR             every --value appears somewhere in STDERR
STDOUT_SINGLELINE  one line of STDOUT contains every --value
STDERR_SINGLELINE  one line of STDERR contains every --value
STDOUT_MULTILINE   each --value is on some line of STDOUT
STDERR_MULTILINE   each --value is on some line of STDERR

Any output on STDERR fails the kinds that aren't about STDERR. Values are
literal unless --regex is given. --rc additionally requires a return code.
--fail inverts the output check (but not the return code check).

If the check passes, the command's STDOUT is printed. Otherwise a description
of what was expected and what was seen is printed and itest exits 1, eg.:

itest assert --kind STDOUT_SINGLELINE --value /tempZone/home/rods: -- ils
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := expect.ParseKind(assertKind)
		if err != nil {
			die(err)
		}

		exp := expect.Expectation{Kind: kind, Values: assertValues, Regex: assertRegex}
		if assertRC != noRC {
			exp = exp.WithRC(assertRC)
		}

		c := commandFromArgs(args)
		ctx := context.Background()

		f, closeLog := newFactory()
		defer closeLog()

		s := openSession(ctx, f)

		assert := s.Assert
		if assertFail {
			assert = s.AssertFail
		}

		res, err := assert(ctx, c, exp, runOptions()...)

		closeSession(ctx, s)

		var ae *errs.AssertionError
		if errors.As(err, &ae) {
			fmt.Fprintln(os.Stderr, ae.Transcript)
			closeLog()
			dief("assertion failed for [%s]", ae.Command)
		}

		if err != nil {
			closeLog()
			die(err)
		}

		cliPrint(res.Stdout)
	},
}

func init() {
	RootCmd.AddCommand(assertCmd)

	addSessionFlags(assertCmd)

	// flags specific to this sub-command
	assertCmd.Flags().StringVarP(&assertKind, "kind", "k", expect.Stdout.String(),
		"where to look for --values")
	assertCmd.Flags().StringArrayVar(&assertValues, "value", nil,
		"expected value; may be repeated")
	assertCmd.Flags().BoolVarP(&assertRegex, "regex", "r", false,
		"treat --values as regular expressions")
	assertCmd.Flags().IntVar(&assertRC, "rc", noRC,
		"expected return code")
	assertCmd.Flags().BoolVar(&assertFail, "fail", false,
		"require the output check to fail")
}
