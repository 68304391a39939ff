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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run [flags] -- icommand [args]",
	Short: "Run an iCommand in a session",
	Long: `Run an iCommand in a session.

The command is run as the pre-existing administrator, or as --user if given,
with a private environment. Its STDOUT and STDERR are passed through, and
itest exits with the command's return code.

Use -- to separate itest's flags from the iCommand's, eg.:

itest run -- ils -l /tempZone/home

With --shell the arguments are joined and run by the shell, so that
redirection works:

itest run --shell -- 'izonereport > report.json'

With --manage-data, the session's user gets a new collection to work in that
is removed (and the trash emptied) afterwards.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := commandFromArgs(args)
		ctx := context.Background()

		f, closeLog := newFactory()
		defer closeLog()

		s := openSession(ctx, f)

		res, err := s.Run(ctx, c, runOptions()...)

		closeSession(ctx, s)

		if err != nil {
			closeLog()
			die(err)
		}

		cliPrint(res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)

		if res.Code != 0 {
			closeLog()
			os.Exit(res.Code)
		}
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	addSessionFlags(runCmd)
}
