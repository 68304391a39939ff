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
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/icmd"
)

// options for this cmd.
var (
	interruptFile     string
	interruptSize     string
	interruptTimeout  time.Duration
	interruptInterval time.Duration
)

// interruptCmd represents the interrupt command.
var interruptCmd = &cobra.Command{
	Use:   "interrupt [flags] -- icommand [args]",
	Short: "Run an iCommand and kill it part way through a transfer",
	Long: `Run an iCommand and kill it part way through a transfer.

Session flags are as for 'itest run'. The command is started, and once the
local --file it is writing has reached --size, it is terminated. Sizes can be
given with units, eg. 10MiB.

This is for testing that interrupted transfers can be resumed, eg.:

itest interrupt -m --file big.out --size 50MB -- iget -X restart.txt big big.out

If the file doesn't get big enough within --timeout, the command is killed
and whatever could be found out about the state of the transfer is reported.
If the command finished before it could be interrupted, that is reported as
an error too.
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if interruptFile == "" {
			dief("you must supply --file")
		}

		threshold, err := humanize.ParseBytes(interruptSize)
		if err != nil {
			dief("bad --size: %s", err)
		}

		c := commandFromArgs(args)
		ctx := context.Background()

		f, closeLog := newFactory()
		defer closeLog()

		s := openSession(ctx, f)

		in, err := s.Interrupt(ctx, c, interruptFile, int64(threshold), icmd.WatchOptions{
			Timeout:  interruptTimeout,
			Interval: interruptInterval,
		})

		if in != nil {
			transcriptLogger(f).Info().Str("size", humanize.IBytes(uint64(in.Size))).
				Dur("elapsed", in.Elapsed).Msg("interrupted")
			cliPrintf("interrupted after %s with %s written (%d bytes)\n",
				in.Elapsed.Round(time.Millisecond), humanize.IBytes(uint64(in.Size)), in.Size)
		}

		closeSession(ctx, s)

		if errors.Is(err, errs.ErrExitedEarly) {
			closeLog()
			dief("[%s] finished before it could be interrupted", c)
		}

		if err != nil {
			closeLog()
			die(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(interruptCmd)

	addSessionFlags(interruptCmd)

	// flags specific to this sub-command
	interruptCmd.Flags().StringVarP(&interruptFile, "file", "f", "",
		"local file the command writes to")
	interruptCmd.Flags().StringVar(&interruptSize, "size", "1MB",
		"interrupt once --file is at least this big")
	interruptCmd.Flags().DurationVarP(&interruptTimeout, "timeout", "t", icmd.DefaultWatchTimeout,
		"give up waiting for --file to reach --size after this long")
	interruptCmd.Flags().DurationVar(&interruptInterval, "interval", icmd.DefaultWatchInterval,
		"how often to check the size of --file")
}
