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

// package cmd is the cobra file that enables subcommands and handles
// command-line args.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/inconshreveable/log15"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/ienv"
	"github.com/wtsi-hgi/itest/session"
)

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// global options.
var (
	configPath string
	logPath    string
	verbose    bool
	legacyName string
)

const fallbackLogBasename = "itest.log"

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "itest",
	Short: "itest drives iCommands against an iRODS server under test",
	Long: `itest drives iCommands against an iRODS server under test.

Every command is run in a session: a user with their own environment files in
a private local directory, and, for sessions that manage data, their own
collection in iRODS that is removed afterwards. Each command is written to the
diagnostic log (the newest server log, by default) before it is run, so that
server-side problems can be matched to the commands that caused them.

To run a command as the pre-existing administrator and see its output:

itest run ils -l

To check a command's output:

itest assert --kind STDOUT_SINGLELINE --value /tempZone/home/rods: -- ils

The ` + config.ConfigKey + ` environmental variable (or --config) can be set to
specify a harness configuration file in JSON, TOML or YAML, eg.:

{
	"icat_hostname": "irods.example.com",
	"preexisting_admin_password": "rods",
	"use_ssl": false,
	"irods_dir": "/var/lib/irods",
	"controller": {
		"start": "sudo systemctl start irods",
		"stop": "sudo systemctl stop irods"
	}
}

Individual settings can also be given as ITEST_ prefixed environment
variables, eg. ITEST_ICAT_HOSTNAME.
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logPath != "" {
			logToFile(logPath)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once to
// the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err)
	}
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))

	// global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv(config.ConfigKey),
		"path to harness config file")
	RootCmd.PersistentFlags().StringVar(&logPath, "logfile", "",
		"log to this file instead of STDERR")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"show a transcript of every command run on STDERR")
	RootCmd.PersistentFlags().StringVar(&legacyName, "legacy", ienv.LegacyMapped.String(),
		"how to write .irodsEnv files: mapped, required or off")
}

// loadConfig returns the harness config from --config, or from the
// environment if that wasn't given.
func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)

	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}

	if err != nil {
		dief("bad config: %s", err)
	}

	return cfg
}

// legacyMode returns the --legacy mode, dying if it is not known.
func legacyMode() ienv.LegacyMode {
	mode, err := ienv.ParseLegacyMode(legacyName)
	if err != nil {
		die(err)
	}

	return mode
}

// openDiagnosticLog opens the configured diagnostic log, else the newest
// server log, else a log in a temp dir.
func openDiagnosticLog(cfg *config.Config) *diaglog.Log {
	var (
		log *diaglog.Log
		err error
	)

	switch {
	case cfg.DiagnosticLog != "":
		log, err = diaglog.Open(cfg.DiagnosticLog)
	default:
		log, err = diaglog.OpenServerLog(cfg.ServerLogDir)
		if errors.Is(err, diaglog.ErrNoLog) || errors.Is(err, os.ErrNotExist) {
			path := filepath.Join(os.TempDir(), fallbackLogBasename)

			warn("no server log in %s; logging commands to %s", cfg.ServerLogDir, path)

			log, err = diaglog.Open(path)
		}
	}

	if err != nil {
		dief("failed to open diagnostic log: %s", err)
	}

	info("diagnostic log: %s", log.Path())

	return log
}

// newFactory returns a session factory for the configured server, and a
// function to call when done with it, which may be called more than once.
func newFactory() (*session.Factory, func()) {
	cfg := loadConfig()
	log := openDiagnosticLog(cfg)

	transcript := diaglog.Quiet()
	if verbose {
		transcript = diaglog.NewTranscript(os.Stderr)
	}

	f := session.NewFactory(cfg, log, &transcript)
	f.LegacyMode = legacyMode()

	var once sync.Once

	return f, func() {
		once.Do(func() {
			if err := log.Close(); err != nil {
				warn("failed to close diagnostic log: %s", err)
			}
		})
	}
}

// transcriptLogger is a convenience for commands that want to note things in
// the session transcript.
func transcriptLogger(f *session.Factory) *zerolog.Logger {
	if f.Transcript == nil {
		l := diaglog.Quiet()

		return &l
	}

	return f.Transcript
}

// logToFile logs to the given file.
func logToFile(path string) {
	fh, err := log15.FileHandler(path, log15.LogfmtFormat())
	if err != nil {
		fh = log15.StderrHandler

		warn("can't write to log file; logging to stderr instead (%s)", err)
	}

	appLogger.SetHandler(fh)
}

func cliPrint(msg string) {
	fmt.Fprint(os.Stdout, msg)
}

// cliPrintf outputs the message to STDOUT.
func cliPrintf(msg string, a ...interface{}) {
	fmt.Fprintf(os.Stdout, msg, a...)
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(err error) {
	appLogger.Error(err.Error())
	os.Exit(1)
}

// dief is a convenience to log a message at the Error level and exit non zero.
func dief(msg string, a ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}
