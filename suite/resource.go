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

// package suite provides what integration scenarios need beyond sessions: a
// standard set of users and data, SSL files, grid configuration, server
// control, server log inspection and local file helpers.

package suite

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/session"
)

const (
	// TestFileName is the data object every Resource starts with.
	TestFileName = "pydevtest_testfile.txt"

	// TestDirName is the collection every Resource starts with.
	TestDirName = "testdir"

	publicCollection = "public"
	coreRulesFile    = "core.re"
)

// ResourceAccounts are the users a Resource makes: one extra rodsadmin and
// two rodsusers.
func ResourceAccounts() (admins, users []session.Account) {
	return []session.Account{{Name: "otherrods", Password: "rods"}},
		[]session.Account{{Name: "user0", Password: "user0pass"}, {Name: "user1", Password: "user1pass"}}
}

// Resource is the standard scenario starting point: a fixture of an admin
// and two users, with a test file put in the admin's session collection and
// in the public collection, readable by everyone, and an empty test
// collection.
type Resource struct {
	*session.Fixture

	// LocalDir holds the local copy of the test file.
	LocalDir string

	// TestFile is the name of the test file, relative to the admin's
	// session collection.
	TestFile string

	// TestDir is the name of the test collection, relative to the admin's
	// session collection.
	TestDir string
}

// NewResource makes the Resource fixture. localDir must exist.
func NewResource(ctx context.Context, f *session.Factory, localDir string) (*Resource, error) {
	admins, users := ResourceAccounts()

	fx, err := session.NewFixture(ctx, f, admins, users)
	if err != nil {
		return nil, err
	}

	r := &Resource{Fixture: fx, LocalDir: localDir, TestFile: TestFileName, TestDir: TestDirName}

	if err = r.populate(ctx); err != nil {
		fx.Close(ctx) //nolint:errcheck

		return nil, err
	}

	return r, nil
}

// Admin returns the resource's administrator session.
func (r *Resource) Admin() *session.Session { return r.Fixture.Admin(0) }

// PublicCollection returns /<zone>/home/public.
func (r *Resource) PublicCollection() string {
	return path.Join("/", r.Admin().ZoneName(), "home", publicCollection)
}

// PublicTestFile returns the path of the test file in the public collection.
func (r *Resource) PublicTestFile() string {
	return path.Join(r.PublicCollection(), r.TestFile)
}

func (r *Resource) populate(ctx context.Context) error {
	local, err := CreateLocalTestFile(filepath.Join(r.LocalDir, r.TestFile))
	if err != nil {
		return err
	}

	admin := r.Admin()

	for _, cmd := range []icmd.Command{
		icmd.New(icmd.IPut, local),
		icmd.New(icmd.IPut, "-f", local, r.PublicTestFile()),
		icmd.New(icmd.IChmod, "read", "public", r.PublicTestFile()),
		icmd.New(icmd.IMkdir, r.TestDir),
	} {
		if _, err = admin.Assert(ctx, cmd, expect.Nothing()); err != nil {
			return err
		}
	}

	return nil
}

// Close removes the public test file and the local one, then closes the
// fixture.
func (r *Resource) Close(ctx context.Context) error {
	var errs []error

	if _, err := r.Admin().Assert(ctx, icmd.New(icmd.IRm, "-f", r.PublicTestFile()), expect.Nothing()); err != nil {
		errs = append(errs, err)
	}

	if err := os.Remove(filepath.Join(r.LocalDir, r.TestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}

	if err := r.Fixture.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// WithCoreRule puts rule at the start of core.re in serverConfigDir, calls
// fn, then restores the original rules.
func WithCoreRule(serverConfigDir, rule string, fn func() error) error {
	rules := filepath.Join(serverConfigDir, coreRulesFile)

	return FileBackedUp(rules, func() error {
		if err := PrependStringToFile(rule+"\n", rules); err != nil {
			return err
		}

		return fn()
	})
}
