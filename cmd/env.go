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
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/ienv"
)

const userPerms = 0700

// options for this cmd.
var (
	envUser     string
	envHost     string
	envZone     string
	envPort     int
	envResource string
	envSSL      bool
	envCA       string
	envSets     []string
	envDir      string
)

// envCmd represents the env command.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Write or show iRODS client environment files",
	Long: `Write or show iRODS client environment files.

Use the write sub-command to make the irods_environment.json (and, depending
on --legacy, .irodsEnv) files a test user would get. Use the show sub-command
to see what is in existing files.
`,
}

// envWriteCmd represents the env write command.
var envWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write client environment files",
	Long: `Write client environment files.

Writes the environment a test session for --user would use to --dir. Defaults
for the host, port, resource and SSL settings come from the harness config.
Any setting can be overridden with --set, eg.:

itest env write -u alice -z tempZone --set irods_authentication_scheme=pam_password

With --legacy mapped (the default), settings that have no .irodsEnv name are
left out of that file and reported. With --legacy required they cause an
error, and with --legacy off no .irodsEnv is written.
`,
	Run: func(cmd *cobra.Command, args []string) {
		if envUser == "" || envZone == "" {
			dief("you must supply --user and --zone")
		}

		cfg := loadConfig()
		opts := cfg.EnvOptions()

		if cmd.Flags().Changed("ssl") {
			opts.UseSSL = envSSL
		}

		if envPort != 0 {
			opts.Port = envPort
		}

		if envResource != "" {
			opts.DefaultResource = envResource
		}

		if envCA != "" {
			opts.CACertificate = envCA
		}

		host := envHost
		if host == "" {
			host = cfg.ICATHostname
		}

		env := ienv.NewEnvironment(envUser, host, envZone, opts)

		for _, set := range envSets {
			key, value, err := ienv.ParseSetting(set)
			if err != nil {
				die(err)
			}

			env[key] = value
		}

		if err := os.MkdirAll(envDir, userPerms); err != nil {
			die(err)
		}

		jsonPath := filepath.Join(envDir, ienv.JSONBasename)
		legacyPath := filepath.Join(envDir, ienv.LegacyBasename)

		skipped, err := ienv.WriteFiles(env, jsonPath, legacyPath, legacyMode())
		if err != nil {
			die(err)
		}

		for _, key := range skipped {
			warn("%s has no legacy name; left out of %s", key, legacyPath)
		}

		info("wrote %s", jsonPath)
	},
}

// envShowCmd represents the env show command.
var envShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Show the settings in a client environment file",
	Long: `Show the settings in a client environment file.

Prints a table of the settings in the given irods_environment.json or
.irodsEnv file (told apart by name), alongside their name in the other format.
With no file, shows the one in --dir.
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(envDir, ienv.JSONBasename)
		if len(args) == 1 {
			path = args[0]
		}

		var (
			env ienv.Config
			err error
		)

		if filepath.Base(path) == ienv.LegacyBasename {
			env, err = ienv.LoadLegacy(path)
		} else {
			env, err = ienv.LoadJSON(path)
		}

		if err != nil {
			die(err)
		}

		showEnv(env)
	},
}

func init() {
	RootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envWriteCmd)
	envCmd.AddCommand(envShowCmd)

	envCmd.PersistentFlags().StringVarP(&envDir, "dir", "d", ".",
		"directory holding the environment files")

	// flags specific to this sub-command
	envWriteCmd.Flags().StringVarP(&envUser, "user", "u", "", "user name")
	envWriteCmd.Flags().StringVar(&envHost, "host", "", "iCAT host (defaults to the configured one)")
	envWriteCmd.Flags().StringVarP(&envZone, "zone", "z", "", "zone name")
	envWriteCmd.Flags().IntVar(&envPort, "port", 0, "port (defaults to the configured one)")
	envWriteCmd.Flags().StringVarP(&envResource, "resource", "R", "",
		"default resource (defaults to the configured one)")
	envWriteCmd.Flags().BoolVar(&envSSL, "ssl", false, "require SSL (defaults to the configured setting)")
	envWriteCmd.Flags().StringVar(&envCA, "ca", "", "CA certificate file for SSL")
	envWriteCmd.Flags().StringArrayVar(&envSets, "set", nil,
		"key=value setting to add or override; may be repeated")
}

// showEnv prints env's settings as a table.
func showEnv(env ienv.Config) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Setting", "Legacy name", "Value"})
	table.SetAutoWrapText(false)

	for _, key := range env.Keys() {
		legacy, ok := ienv.LegacyName(key)
		if !ok {
			legacy = "-"
		}

		table.Append([]string{key, legacy, fmt.Sprint(env[key])})
	}

	table.Render()
}
