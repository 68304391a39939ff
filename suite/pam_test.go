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

package suite

import (
	"context"
	"os/user"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/ienv"
	"github.com/wtsi-hgi/itest/internal/testutil"
	"github.com/wtsi-hgi/itest/session"
)

const (
	pamScheme       = "pam_password"
	passwordMinTime = "password_min_time"
	passwordMaxTime = "password_max_time"
	pamPrompt       = "PAM password"
	invalidTTL      = "PAM_AUTH_PASSWORD_INVALID_TTL"
	secondsPerHour  = 3600
	sslRequireRule  = "acPreConnect(*OUT) {\n    *OUT = 'CS_NEG_REQUIRE';\n}\n"
)

// pamFixture is an admin and a PAM-authenticating user, plus what's needed to
// switch the server to SSL for them.
type pamFixture struct {
	live       *testutil.Live
	admin      *session.Session
	auth       *session.Session
	ssl        *SSLFiles
	controller *Controller
}

func TestPAMPassword(t *testing.T) {
	live := testutil.NewLive(t)
	if live == nil {
		return
	}

	if live.Config.UseSSL {
		SkipConvey("Skipping PAM tests since SSL is already enabled", t, func() {})

		return
	}

	if _, err := user.Lookup(live.Config.AuthUser); err != nil {
		t.Fatalf("OS user [%s] with password [%s] must exist to run these tests",
			live.Config.AuthUser, live.Config.AuthPassword)
	}

	unlock := testutil.Serial(t)
	defer unlock()

	ctx := context.Background()

	Convey("Given an admin, a PAM user and SSL files", t, func() {
		pf := newPAMFixture(ctx, t, live)

		defer pf.close(ctx)

		for _, option := range []string{passwordMaxTime, passwordMinTime} {
			Convey("invalid "+option+" values fall back to defaults", func() {
				original := pf.gridConfiguration(ctx, option)

				pf.withPAMOverSSL(ctx, func() {
					So(pf.gridConfiguration(ctx, option), ShouldEqual, original)
					pf.authenticate(ctx)

					for _, value := range []string{" ", "nope", "-1", "18446744073709552000", "-18446744073709552000"} {
						pf.setGridConfiguration(ctx, option, value)
						pf.authenticate(ctx)
					}
				}, map[string]string{option: original})
			})
		}

		Convey("a max time below the min time makes every TTL invalid", func() {
			originalMin := pf.gridConfiguration(ctx, passwordMinTime)
			originalMax := pf.gridConfiguration(ctx, passwordMaxTime)
			originals := map[string]string{passwordMaxTime: originalMax, passwordMinTime: originalMin}

			pf.withPAMOverSSL(ctx, func() {
				So(pf.gridConfiguration(ctx, passwordMaxTime), ShouldEqual, originalMax)

				for _, hours := range []int{2, 336} {
					seconds := hours * secondsPerHour

					pf.setGridConfiguration(ctx, passwordMinTime, strconv.Itoa(seconds+10))
					pf.setGridConfiguration(ctx, passwordMaxTime, strconv.Itoa(seconds-10))

					for _, ttl := range []int{hours, hours - 1, hours + 1} {
						_, err := pf.auth.Assert(ctx, icmd.New(icmd.IInit, "--ttl", strconv.Itoa(ttl)),
							expect.Err(invalidTTL), session.WithStdin(pf.auth.Password()+"\n"))
						So(err, ShouldBeNil)
					}
				}

				pf.restoreGridConfiguration(ctx, originals)

				_, err := pf.auth.Assert(ctx, icmd.New(icmd.IInit, "--ttl", "1"), expect.Out(),
					session.WithStdin(pf.auth.Password()+"\n"))
				So(err, ShouldBeNil)

				_, err = pf.auth.Assert(ctx, icmd.New(icmd.ILs), expect.Out(pf.auth.SessionCollection()))
				So(err, ShouldBeNil)
			}, originals)
		})

		Convey("passwords expire after the min time", func() {
			originals := map[string]string{
				passwordMaxTime: pf.gridConfiguration(ctx, passwordMaxTime),
				passwordMinTime: pf.gridConfiguration(ctx, passwordMinTime),
			}

			pf.withPAMOverSSL(ctx, func() {
				ttl := 4

				pf.setGridConfiguration(ctx, passwordMinTime, strconv.Itoa(ttl))
				pf.authenticate(ctx)

				time.Sleep(time.Duration(ttl+1) * time.Second)

				_, err := pf.auth.Assert(ctx, icmd.New(icmd.ILs),
					expect.Err("CAT_PASSWORD_EXPIRED: failed to perform request"))
				So(err, ShouldBeNil)

				_, err = pf.auth.Assert(ctx, icmd.New(icmd.ILs),
					expect.Err("CAT_INVALID_AUTHENTICATION: failed to perform request"))
				So(err, ShouldBeNil)

				pf.restoreGridConfiguration(ctx, originals)
				pf.authenticate(ctx)
			}, originals)
		})
	})
}

func newPAMFixture(ctx context.Context, t *testing.T, live *testutil.Live) *pamFixture {
	t.Helper()

	cfg := live.Config

	admin, err := live.Factory.MkUser(ctx, session.RodsAdmin, "otherrods", "rods", live.Config.ICATHostname)
	So(err, ShouldBeNil)

	auth, err := live.Factory.MkUser(ctx, session.RodsUser, cfg.AuthUser, cfg.AuthPassword, cfg.ICATHostname)
	So(err, ShouldBeNil)

	ssl, err := GenerateSSLFiles(ctx, filepath.Join(cfg.IRODSDir, "test"), DefaultSSLBits)
	So(err, ShouldBeNil)

	return &pamFixture{
		live:       live,
		admin:      admin,
		auth:       auth,
		ssl:        ssl,
		controller: NewController(cfg, live.Factory, live.Log),
	}
}

func (pf *pamFixture) close(ctx context.Context) {
	So(pf.auth.Close(ctx), ShouldBeNil)
	So(pf.ssl.Remove(), ShouldBeNil)

	_, err := pf.admin.Assert(ctx, icmd.New(icmd.IAdmin, "rmuser", pf.auth.UserName()), expect.Nothing())
	So(err, ShouldBeNil)

	So(pf.admin.Close(ctx), ShouldBeNil)
	So(pf.live.Factory.RmUser(ctx, pf.admin.UserName()), ShouldBeNil)
}

func (pf *pamFixture) gridConfiguration(ctx context.Context, option string) string {
	value, err := GridConfiguration(ctx, pf.admin, PAMPasswordNamespace, option)
	So(err, ShouldBeNil)

	return value
}

func (pf *pamFixture) setGridConfiguration(ctx context.Context, option, value string) {
	So(SetGridConfiguration(ctx, pf.admin, PAMPasswordNamespace, option, value), ShouldBeNil)
}

func (pf *pamFixture) restoreGridConfiguration(ctx context.Context, originals map[string]string) {
	for _, option := range []string{passwordMaxTime, passwordMinTime} {
		if value, ok := originals[option]; ok {
			pf.setGridConfiguration(ctx, option, value)
		}
	}
}

// authenticate has the PAM user iinit and list their collection.
func (pf *pamFixture) authenticate(ctx context.Context) {
	_, err := pf.auth.Assert(ctx, icmd.New(icmd.IInit), expect.Out(pamPrompt),
		session.WithStdin(pf.auth.Password()+"\n"))
	So(err, ShouldBeNil)

	_, err = pf.auth.Assert(ctx, icmd.New(icmd.ILs), expect.Out(pf.auth.SessionCollection()))
	So(err, ShouldBeNil)
}

// withPAMOverSSL stops the server, switches the service account, the admin
// and the PAM user to SSL (the user also to PAM authentication), requires
// SSL in core.re and restarts the server for fn. Afterwards everything is
// put back, the server restarted and the grid configuration restored.
func (pf *pamFixture) withPAMOverSSL(ctx context.Context, fn func(), originals map[string]string) {
	So(pf.controller.Stop(ctx), ShouldBeNil)

	adminEnv, authEnv := pf.admin.Env(), pf.auth.Env()
	serviceEnv := pf.live.Config.ServiceAccount().JSONPath()

	defer func() {
		pf.admin.SetEnv(adminEnv)
		pf.auth.SetEnv(authEnv)

		So(pf.controller.Restart(ctx), ShouldBeNil)
		pf.restoreGridConfiguration(ctx, originals)
		So(pf.controller.Restart(ctx), ShouldBeNil)
	}()

	err := FileBackedUp(serviceEnv, func() error {
		client := pf.ssl.ClientEnvironment()

		if errj := ienv.UpdateJSONFile(serviceEnv, client); errj != nil {
			return errj
		}

		pf.admin.UpdateEnv(client)

		client[ienv.KeyAuthScheme] = pamScheme
		pf.auth.UpdateEnv(client)

		return WithCoreRule(pf.live.Config.ServerConfigDir, sslRequireRule, func() error {
			if errs := pf.controller.Start(ctx); errs != nil {
				return errs
			}

			fn()

			return nil
		})
	})
	So(err, ShouldBeNil)
}
