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

// package session provides Session, an iRODS identity with its own local
// environment files, under which iCommands can be run and their output
// asserted on.

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/ienv"
)

const (
	tempDirPattern = "irods-testing-*"
	idTimeFormat   = "2006-01-02Z15:04:05"

	authBasename       = "irods_authentication"
	legacyAuthBasename = ".irodsA"

	EnvFileVar        = "IRODS_ENVIRONMENT_FILE"
	AuthFileVar       = "IRODS_AUTHENTICATION_FILE"
	LegacyEnvFileVar  = "irodsEnvFile"
	LegacyAuthFileVar = "irodsAuthFileName"
)

var ErrMissingIdentity = errors.New("environment lacks a user or zone name")

type state int

const (
	constructing state = iota
	active
	tornDown
)

// Options configure a new Session.
type Options struct {
	// Env is the session's environment; it must have user and zone names.
	Env ienv.Config

	// Password is used to iinit.
	Password string

	// ManageData makes the session create a private collection to work in,
	// and remove it when closed.
	ManageData bool

	// Log, if set, has every command recorded in it before it runs.
	Log *diaglog.Log

	// Transcript, if set, gets a running account of commands and assertions.
	Transcript *zerolog.Logger

	// LegacyMode says how to write the legacy .irodsEnv file.
	LegacyMode ienv.LegacyMode

	// TempDir is where the session's local directory is made; defaults to
	// os.TempDir().
	TempDir string
}

// Session is one authenticated iRODS identity bound to one local directory
// holding its environment and authentication files. It is not safe for
// concurrent use.
type Session struct {
	env        ienv.Config
	password   string
	manageData bool
	log        *diaglog.Log
	transcript zerolog.Logger
	legacyMode ienv.LegacyMode
	dir        string
	id         string
	stale      bool
	skipped    []string
	state      state
}

// New creates a local directory for a session, writes its environment files
// and iinits with the password. If ManageData is set, it then makes and
// changes to the session's collection. Any failure leaves nothing behind.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Env.UserName() == "" || opts.Env.ZoneName() == "" {
		return nil, ErrMissingIdentity
	}

	dir, err := os.MkdirTemp(opts.TempDir, tempDirPattern)
	if err != nil {
		return nil, err
	}

	s := &Session{
		env:        opts.Env.Clone(),
		password:   opts.Password,
		manageData: opts.ManageData,
		log:        opts.Log,
		transcript: zerolog.Nop(),
		legacyMode: opts.LegacyMode,
		dir:        dir,
		id:         time.Now().UTC().Format(idTimeFormat) + "--" + filepath.Base(dir),
		stale:      true,
	}

	if opts.Transcript != nil {
		s.transcript = opts.Transcript.With().Str("user", s.UserName()).Logger()
	}

	if err = s.start(ctx); err != nil {
		s.state = tornDown

		os.RemoveAll(dir)

		return nil, err
	}

	s.state = active

	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	if _, err := s.Assert(ctx, icmd.New(icmd.IInit, s.password), expect.Nothing()); err != nil {
		return fmt.Errorf("could not authenticate as %s: %w", s.UserName(), err)
	}

	if !s.manageData {
		return nil
	}

	coll := s.SessionCollection()

	if _, err := s.Assert(ctx, icmd.New(icmd.IMkdir, coll), expect.Nothing()); err != nil {
		s.abandon(ctx, icmd.New(icmd.IExit, "full"))

		return err
	}

	if _, err := s.Assert(ctx, icmd.New(icmd.ICd, coll), expect.Nothing()); err != nil {
		s.abandon(ctx, icmd.New(icmd.IRm, "-rf", coll), icmd.New(icmd.IExit, "full"))

		return err
	}

	return nil
}

// abandon runs cmds to undo a partly started session. Failures are only noted
// in the transcript; the error that stopped the start is what matters.
func (s *Session) abandon(ctx context.Context, cmds ...icmd.Command) {
	for _, cmd := range cmds {
		if _, err := s.Assert(ctx, cmd, expect.Nothing()); err != nil {
			s.transcript.Warn().Err(err).Str("cmd", cmd.String()).Msg("failed to undo session start")
		}
	}
}

// UserName returns the session's iRODS user name.
func (s *Session) UserName() string { return s.env.UserName() }

// ZoneName returns the session's iRODS zone.
func (s *Session) ZoneName() string { return s.env.ZoneName() }

// DefaultResource returns the session's default resource.
func (s *Session) DefaultResource() string { return s.env.DefaultResource() }

// Password returns the password the session authenticated with.
func (s *Session) Password() string { return s.password }

// ManagesData reports whether the session owns a collection it will remove.
func (s *Session) ManagesData() bool { return s.manageData }

// ID returns the session's unique ID, which names its collection.
func (s *Session) ID() string { return s.id }

// LocalDir returns the session's local directory.
func (s *Session) LocalDir() string { return s.dir }

// HomeCollection returns /<zone>/home/<user>.
func (s *Session) HomeCollection() string {
	return ienv.HomeCollection(s.ZoneName(), s.UserName())
}

// SessionCollection returns the session's private collection within its
// home collection.
func (s *Session) SessionCollection() string {
	return path.Join(s.HomeCollection(), s.id)
}

// EnvFile returns the path of the session's JSON environment file.
func (s *Session) EnvFile() string { return filepath.Join(s.dir, ienv.JSONBasename) }

// LegacyEnvFile returns the path of the session's .irodsEnv file.
func (s *Session) LegacyEnvFile() string { return filepath.Join(s.dir, ienv.LegacyBasename) }

// AuthFile returns the path of the session's authentication file.
func (s *Session) AuthFile() string { return filepath.Join(s.dir, authBasename) }

// LegacyAuthFile returns the path of the session's .irodsA file.
func (s *Session) LegacyAuthFile() string { return filepath.Join(s.dir, legacyAuthBasename) }

// Env returns a copy of the session's environment. Changing it has no effect
// unless passed to SetEnv.
func (s *Session) Env() ienv.Config {
	return s.env.Clone()
}

// SetEnv replaces the session's environment. The files are rewritten before
// the next command.
func (s *Session) SetEnv(c ienv.Config) {
	if c == nil {
		c = ienv.Config{}
	}

	s.env = c.Clone()
	s.stale = true
}

// UpdateEnv sets the given settings in the session's environment. The files
// are rewritten before the next command.
func (s *Session) UpdateEnv(c ienv.Config) {
	s.env.Update(c)
	s.stale = true
}

// MarkDirty makes the environment files be rewritten before the next command,
// eg. after a test has altered them directly.
func (s *Session) MarkDirty() {
	s.stale = true
}

// Stale reports whether the environment files need rewriting.
func (s *Session) Stale() bool {
	return s.stale
}

// Flush writes the environment files now if they are stale.
func (s *Session) Flush() error {
	if !s.stale {
		return nil
	}

	skipped, err := ienv.WriteFiles(s.env, s.EnvFile(), s.LegacyEnvFile(), s.legacyMode)
	if err != nil {
		return err
	}

	if len(skipped) > 0 {
		s.transcript.Debug().Strs("keys", skipped).Msg("settings left out of legacy environment")
	}

	s.skipped = skipped
	s.stale = false

	return nil
}

// SkippedLegacyKeys returns the settings left out of the last legacy file
// written, because they have no legacy name.
func (s *Session) SkippedLegacyKeys() []string {
	return s.skipped
}

// Environ returns the variables that point iCommands at this session's
// files.
func (s *Session) Environ() []string {
	vars := []string{
		EnvFileVar + "=" + s.EnvFile(),
		AuthFileVar + "=" + s.AuthFile(),
	}

	if s.legacyMode != ienv.LegacyOff {
		vars = append(vars,
			LegacyEnvFileVar+"="+s.LegacyEnvFile(),
			LegacyAuthFileVar+"="+s.LegacyAuthFile())
	}

	return vars
}

// RunOption alters how a command is run.
type RunOption func(*icmd.Invocation)

// WithStdin feeds the given text to the command.
func WithStdin(stdin string) RunOption {
	return func(inv *icmd.Invocation) { inv.Stdin = stdin }
}

// WithEnv runs the command with exactly the given environment, instead of
// the current one plus the session's variables.
func WithEnv(env []string) RunOption {
	return func(inv *icmd.Invocation) { inv.Env = env }
}

// WithDir runs the command in the given directory.
func WithDir(dir string) RunOption {
	return func(inv *icmd.Invocation) { inv.Dir = dir }
}

// prepare records cmd, then readies the environment files and the invocation
// that will run it.
func (s *Session) prepare(cmd icmd.Command, opts []RunOption, record func(line string)) (icmd.Invocation, error) {
	if s.state == tornDown {
		return icmd.Invocation{}, errs.ErrSessionClosed
	}

	if !cmd.Name.Valid() {
		return icmd.Invocation{}, &errs.UnknownCommandError{Command: cmd.Name.String()}
	}

	record(cmd.String())

	if err := s.Flush(); err != nil {
		return icmd.Invocation{}, err
	}

	inv := cmd.Invocation()
	inv.Env = icmd.Environ(s.Environ()...)

	for _, opt := range opts {
		opt(&inv)
	}

	return inv, nil
}

// Run runs cmd as this session's user and returns the result without
// checking it.
func (s *Session) Run(ctx context.Context, cmd icmd.Command, opts ...RunOption) (*icmd.Result, error) {
	inv, err := s.prepare(cmd, opts, func(line string) {
		s.log.Command(s.UserName(), line)
		s.transcript.Info().Str("cmd", line).Msg("icommand")
	})
	if err != nil {
		return nil, err
	}

	return icmd.Run(ctx, inv)
}

// Assert runs cmd and checks the result meets exp. Returns the result, along
// with an *errs.AssertionError if it didn't.
func (s *Session) Assert(ctx context.Context, cmd icmd.Command, exp expect.Expectation,
	opts ...RunOption) (*icmd.Result, error) {
	return s.assert(ctx, cmd, exp, false, opts)
}

// AssertFail is like Assert, but the output must NOT meet exp. Any return
// code in exp must still match.
func (s *Session) AssertFail(ctx context.Context, cmd icmd.Command, exp expect.Expectation,
	opts ...RunOption) (*icmd.Result, error) {
	return s.assert(ctx, cmd, exp, true, opts)
}

func (s *Session) assert(ctx context.Context, cmd icmd.Command, exp expect.Expectation, negate bool,
	opts []RunOption) (*icmd.Result, error) {
	res, err := s.Run(ctx, cmd, opts...)
	if err != nil {
		return nil, err
	}

	err = expect.Verify(cmd.String(), res, exp, negate)
	if err != nil {
		s.transcript.Error().Err(err).Msg("assertion failed")
	}

	return res, err
}

// Interrupt runs cmd as this session's user, terminating it once the local
// file at path reaches threshold bytes. On timeout the returned
// *errs.TimeoutError includes a listing of path's directory and of the
// session's current collection.
func (s *Session) Interrupt(ctx context.Context, cmd icmd.Command, path string, threshold int64,
	opts icmd.WatchOptions) (*icmd.Interrupted, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	inv, err := s.prepare(cmd, nil, func(line string) {
		s.log.Interrupt(s.UserName(), line)
		s.transcript.Info().Str("cmd", line).Str("file", abs).
			Int64("threshold", threshold).Msg("interrupting icommand")
	})
	if err != nil {
		return nil, err
	}

	in, err := icmd.RunUntilSize(ctx, inv, abs, threshold, opts)

	var te *errs.TimeoutError
	if errors.As(err, &te) {
		te.Output += s.forensics(ctx, abs)
		s.transcript.Error().Err(te).Msg("interrupt timed out")
	}

	return in, err
}

func (s *Session) forensics(ctx context.Context, path string) string {
	var out string

	ls, err := icmd.Run(ctx, icmd.Invocation{Argv: []string{"ls", "-l", filepath.Dir(path)}})
	if err == nil {
		out += "\nls -l " + filepath.Dir(path) + ":\n" + ls.Stdout
	}

	ils, err := s.Run(ctx, icmd.New(icmd.ILs, "-l"))
	if err == nil {
		out += "\nils -l:\n" + ils.Stdout + ils.Stderr
	}

	return out
}

// Close tears the session down. If it manages data, its collection is
// removed and the trash emptied; then it iexits and its local directory is
// deleted. Every step is attempted even if earlier ones fail; any failures
// are returned in an *errs.CleanupError, earliest first. Closing again does
// nothing.
func (s *Session) Close(ctx context.Context) error {
	if s.state == tornDown {
		return nil
	}

	var failures []error

	attempt := func(cmd icmd.Command) {
		if _, err := s.Assert(ctx, cmd, expect.Nothing()); err != nil {
			s.transcript.Warn().Err(err).Str("cmd", cmd.String()).Msg("cleanup step failed")

			failures = append(failures, err)
		}
	}

	if s.manageData {
		attempt(icmd.New(icmd.ICd))
		attempt(icmd.New(icmd.IRm, "-rf", s.SessionCollection()))
		attempt(icmd.New(icmd.IRmTrash))
	}

	attempt(icmd.New(icmd.IExit, "full"))

	s.state = tornDown

	if err := os.RemoveAll(s.dir); err != nil {
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		return &errs.CleanupError{Errs: failures}
	}

	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.state == tornDown
}
