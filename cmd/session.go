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
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/session"
)

// options for commands that run in a session.
var (
	sessUser       string
	sessPassword   string
	sessZone       string
	sessHost       string
	sessManageData bool
	sessShell      bool
	sessStdin      string
)

// addSessionFlags adds the flags that choose who a command runs as.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&sessUser, "user", "u", "",
		"run as this existing user instead of the administrator")
	cmd.Flags().StringVarP(&sessPassword, "password", "p", "",
		"--user's password")
	cmd.Flags().StringVarP(&sessZone, "zone", "z", "",
		"--user's zone (defaults to the administrator's)")
	cmd.Flags().StringVar(&sessHost, "host", "",
		"host to connect to (defaults to the configured iCAT host)")
	cmd.Flags().BoolVarP(&sessManageData, "manage-data", "m", false,
		"work in a new collection that is removed afterwards")
	cmd.Flags().BoolVarP(&sessShell, "shell", "s", false,
		"treat the arguments as a shell command line, allowing redirection")
	cmd.Flags().StringVar(&sessStdin, "stdin", "",
		"text to send to the command's STDIN")
}

// openSession starts a session as --user, or as the administrator if that
// wasn't given.
func openSession(ctx context.Context, f *session.Factory) *session.Session {
	sa, err := f.Provider.ServiceAccount()
	if err != nil {
		dief("could not read the service account environment: %s", err)
	}

	user, password, zone, host := sa.UserName(), f.AdminPassword, sa.ZoneName(), f.Host

	if sessUser != "" {
		user, password = sessUser, sessPassword
	}

	if sessZone != "" {
		zone = sessZone
	}

	if sessHost != "" {
		host = sessHost
	}

	s, err := f.UserSession(ctx, user, password, host, zone, sessManageData)
	if err != nil {
		dief("could not start a session for %s: %s", user, err)
	}

	info("session %s started for %s", s.ID(), user)

	return s
}

// closeSession tears down s, warning about anything that went wrong.
func closeSession(ctx context.Context, s *session.Session) {
	if err := s.Close(ctx); err != nil {
		warn("session teardown: %s", err)
	}
}

// commandFromArgs returns the iCommand to run given our positional args.
func commandFromArgs(args []string) icmd.Command {
	var (
		c   icmd.Command
		err error
	)

	if sessShell {
		c, err = icmd.ParseShell(strings.Join(args, " "))
	} else {
		c, err = icmd.ParseArgv(args)
	}

	if err != nil {
		die(err)
	}

	return c
}

// runOptions returns the session.RunOptions our flags ask for.
func runOptions() []session.RunOption {
	if sessStdin == "" {
		return nil
	}

	return []session.RunOption{session.WithStdin(sessStdin)}
}
