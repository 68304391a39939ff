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

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/session"
)

// options for these cmds.
var (
	userAdmin    bool
	userPassword string
	userHost     string
	groupMembers []string
)

// userCmd represents the user command.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Make or remove test users",
	Long: `Make or remove test users.

The pre-existing administrator is used to make and remove users.
`,
}

// userAddCmd represents the user add command.
var userAddCmd = &cobra.Command{
	Use:   "add name",
	Short: "Make a test user",
	Long: `Make a test user.

Makes a rodsuser (or, with --admin, a rodsadmin) with the given --password,
then checks they can log in and use their home collection.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if userPassword == "" {
			dief("you must supply --password")
		}

		userType := session.RodsUser
		if userAdmin {
			userType = session.RodsAdmin
		}

		host := userHost
		if host == "" {
			host = config.Hostname()
		}

		ctx := context.Background()

		f, closeLog := newFactory()
		defer closeLog()

		s, err := f.MkUser(ctx, userType, args[0], userPassword, host)
		if err != nil {
			closeLog()
			die(err)
		}

		closeSession(ctx, s)

		info("made %s %s", userType, args[0])
	},
}

// userRmCmd represents the user rm command.
var userRmCmd = &cobra.Command{
	Use:   "rm name",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		adminDo(func(ctx context.Context, f *session.Factory) error {
			return f.RmUser(ctx, args[0])
		})

		info("removed user %s", args[0])
	},
}

// groupCmd represents the group command.
var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Make or remove test groups",
}

// groupAddCmd represents the group add command.
var groupAddCmd = &cobra.Command{
	Use:   "add name",
	Short: "Make a group",
	Long: `Make a group.

Makes the group, then adds each --member to it.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		adminDo(func(ctx context.Context, f *session.Factory) error {
			return f.MkGroup(ctx, args[0], groupMembers...)
		})

		info("made group %s", args[0])
	},
}

// groupRmCmd represents the group rm command.
var groupRmCmd = &cobra.Command{
	Use:   "rm name",
	Short: "Remove a group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		adminDo(func(ctx context.Context, f *session.Factory) error {
			return f.RmGroup(ctx, args[0])
		})

		info("removed group %s", args[0])
	},
}

func init() {
	RootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRmCmd)

	RootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupRmCmd)

	// flags specific to these sub-commands
	userAddCmd.Flags().BoolVarP(&userAdmin, "admin", "a", false, "make a rodsadmin")
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "the user's password")
	userAddCmd.Flags().StringVar(&userHost, "host", "",
		"host the login check connects to (defaults to this host)")

	groupAddCmd.Flags().StringArrayVarP(&groupMembers, "member", "M", nil,
		"user to add to the group; may be repeated")
}

// adminDo calls fn with a factory, dying if it returns an error.
func adminDo(fn func(ctx context.Context, f *session.Factory) error) {
	f, closeLog := newFactory()
	defer closeLog()

	if err := fn(context.Background(), f); err != nil {
		closeLog()
		die(err)
	}
}
