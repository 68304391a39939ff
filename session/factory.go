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

package session

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/ienv"
)

// UserType is an iRODS user type.
type UserType string

const (
	RodsAdmin UserType = "rodsadmin"
	RodsUser  UserType = "rodsuser"
)

// Factory makes sessions for the pre-existing administrator, for existing
// users, and for users it creates through the administrator.
type Factory struct {
	// Provider supplies the service account environment, from which the
	// administrator's name and the zone are taken.
	Provider ienv.Provider

	// Host is the iCAT server the administrator connects to.
	Host string

	// AdminPassword is the pre-existing administrator's password.
	AdminPassword string

	// EnvOptions are used for every session environment made.
	EnvOptions ienv.EnvOptions

	Log        *diaglog.Log
	Transcript *zerolog.Logger
	LegacyMode ienv.LegacyMode
	TempDir    string
}

// NewFactory returns a Factory configured by cfg.
func NewFactory(cfg *config.Config, log *diaglog.Log, transcript *zerolog.Logger) *Factory {
	return &Factory{
		Provider:      cfg.ServiceAccount(),
		Host:          cfg.ICATHostname,
		AdminPassword: cfg.AdminPassword,
		EnvOptions:    cfg.EnvOptions(),
		Log:           log,
		Transcript:    transcript,
	}
}

func (f *Factory) options(env ienv.Config, password string, manageData bool) Options {
	return Options{
		Env:        env,
		Password:   password,
		ManageData: manageData,
		Log:        f.Log,
		Transcript: f.Transcript,
		LegacyMode: f.LegacyMode,
		TempDir:    f.TempDir,
	}
}

// Zone returns the service account's zone.
func (f *Factory) Zone() (string, error) {
	sa, err := f.Provider.ServiceAccount()
	if err != nil {
		return "", err
	}

	return sa.ZoneName(), nil
}

// ExistingAdmin returns a session for the service account's user, which
// doesn't manage any data.
func (f *Factory) ExistingAdmin(ctx context.Context) (*Session, error) {
	sa, err := f.Provider.ServiceAccount()
	if err != nil {
		return nil, err
	}

	env := ienv.NewEnvironment(sa.UserName(), f.Host, sa.ZoneName(), f.EnvOptions)

	return New(ctx, f.options(env, f.AdminPassword, false))
}

// ExistingUser returns a session for a user that already exists, which
// doesn't manage any data.
func (f *Factory) ExistingUser(ctx context.Context, user, password, host, zone string) (*Session, error) {
	return f.UserSession(ctx, user, password, host, zone, false)
}

// UserSession returns a session for a user that already exists, which manages
// its own collection if manageData is true.
func (f *Factory) UserSession(ctx context.Context, user, password, host, zone string,
	manageData bool) (*Session, error) {
	env := ienv.NewEnvironment(user, host, zone, f.EnvOptions)

	return New(ctx, f.options(env, password, manageData))
}

// WithAdmin calls fn with an administrator session that is closed afterwards.
// fn's error takes precedence over any error closing.
func (f *Factory) WithAdmin(ctx context.Context, fn func(admin *Session) error) (err error) {
	admin, err := f.ExistingAdmin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if errc := admin.Close(ctx); err == nil {
			err = errc
		}
	}()

	return fn(admin)
}

// MkUser has the administrator make a user of the given type with the given
// password, then returns a session for them connecting to host that manages
// its own data.
func (f *Factory) MkUser(ctx context.Context, userType UserType, name, password, host string) (*Session, error) {
	zone, err := f.Zone()
	if err != nil {
		return nil, err
	}

	var s *Session

	err = f.WithAdmin(ctx, func(admin *Session) error {
		if _, erra := admin.Assert(ctx, icmd.New(icmd.IAdmin, "mkuser", name, string(userType)),
			expect.Nothing()); erra != nil {
			return erra
		}

		if _, erra := admin.Assert(ctx, icmd.New(icmd.IAdmin, "moduser", name, "password", password),
			expect.Nothing()); erra != nil {
			return rmUserAfter(ctx, admin, name, erra)
		}

		var errn error

		s, errn = New(ctx, f.options(ienv.NewEnvironment(name, host, zone, f.EnvOptions), password, true))
		if errn != nil {
			return rmUserAfter(ctx, admin, name, errn)
		}

		return nil
	})

	return s, err
}

// rmUserAfter removes a user that was made before err stopped MkUser, returning
// err.
func rmUserAfter(ctx context.Context, admin *Session, name string, err error) error {
	admin.Assert(ctx, icmd.New(icmd.IAdmin, "rmuser", name), expect.Nothing()) //nolint:errcheck

	return err
}

// RmUser has the administrator remove a user.
func (f *Factory) RmUser(ctx context.Context, name string) error {
	return f.admin(ctx, icmd.New(icmd.IAdmin, "rmuser", name))
}

// MkGroup has the administrator make a group and add the given users to it.
func (f *Factory) MkGroup(ctx context.Context, group string, users ...string) error {
	cmds := []icmd.Command{icmd.New(icmd.IAdmin, "mkgroup", group)}

	for _, user := range users {
		cmds = append(cmds, icmd.New(icmd.IAdmin, "atg", group, user))
	}

	return f.admin(ctx, cmds...)
}

// RmGroup has the administrator remove a group.
func (f *Factory) RmGroup(ctx context.Context, group string) error {
	return f.admin(ctx, icmd.New(icmd.IAdmin, "rmgroup", group))
}

func (f *Factory) admin(ctx context.Context, cmds ...icmd.Command) error {
	return f.WithAdmin(ctx, func(admin *Session) error {
		for _, cmd := range cmds {
			if _, err := admin.Assert(ctx, cmd, expect.Nothing()); err != nil {
				return err
			}
		}

		return nil
	})
}

// Account is a user name and password.
type Account struct {
	Name     string
	Password string
}

// Fixture is a set of freshly made administrator and user sessions, for tests
// that need several identities.
type Fixture struct {
	Factory *Factory
	Admins  []*Session
	Users   []*Session
}

// NewFixture makes a rodsadmin for each of admins and a rodsuser for each of
// users, with sessions connecting from this host. If any can't be made,
// those already made are torn down again.
func NewFixture(ctx context.Context, f *Factory, admins, users []Account) (*Fixture, error) {
	fx := &Fixture{Factory: f}
	host := config.Hostname()

	for _, group := range []struct {
		accounts []Account
		userType UserType
		sessions *[]*Session
	}{
		{admins, RodsAdmin, &fx.Admins},
		{users, RodsUser, &fx.Users},
	} {
		for _, acc := range group.accounts {
			s, err := f.MkUser(ctx, group.userType, acc.Name, acc.Password, host)
			if err != nil {
				fx.Close(ctx) //nolint:errcheck

				return nil, err
			}

			*group.sessions = append(*group.sessions, s)
		}
	}

	return fx, nil
}

// Admin returns the i'th administrator session.
func (fx *Fixture) Admin(i int) *Session { return fx.Admins[i] }

// User returns the i'th user session.
func (fx *Fixture) User(i int) *Session { return fx.Users[i] }

// Close tears down every session and has the administrator remove their
// users. Every step is attempted; failures are returned in an
// *errs.CleanupError.
func (fx *Fixture) Close(ctx context.Context) error {
	var failures []error

	sessions := append(append([]*Session{}, fx.Admins...), fx.Users...)

	for _, s := range sessions {
		if errc := s.Close(ctx); errc != nil {
			failures = append(failures, errc)
		}
	}

	err := fx.Factory.WithAdmin(ctx, func(admin *Session) error {
		for _, s := range sessions {
			if _, errr := admin.Assert(ctx, icmd.New(icmd.IAdmin, "rmuser", s.UserName()),
				expect.Nothing()); errr != nil {
				failures = append(failures, errr)
			}
		}

		return nil
	})
	if err != nil {
		failures = append(failures, err)
	}

	fx.Admins, fx.Users = nil, nil

	if len(failures) > 0 {
		return &errs.CleanupError{Errs: failures}
	}

	return nil
}
