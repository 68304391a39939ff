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
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/ienv"
	"github.com/wtsi-hgi/itest/internal/testirods"
	"github.com/wtsi-hgi/itest/session"
)

func TestFiles(t *testing.T) {
	Convey("Given a temp dir", t, func() {
		dir := t.TempDir()

		Convey("you can make zero-filled files of any size", func() {
			for _, size := range []int64{0, 1, 100000} {
				path := filepath.Join(dir, "f")
				So(MakeFile(path, size), ShouldBeNil)

				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, size)
			}

			data, err := os.ReadFile(filepath.Join(dir, "f"))
			So(err, ShouldBeNil)
			So(data[99999], ShouldEqual, 0)
		})

		Convey("you can make a test file that names itself", func() {
			path, err := CreateLocalTestFile(filepath.Join(dir, TestFileName))
			So(err, ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "TESTFILE -- ["+path+"]")
		})

		Convey("you can make a directory of small files", func() {
			sub := filepath.Join(dir, "small")
			So(CreateDirectoryOfSmallFiles(sub, 3), ShouldBeNil)

			data, err := os.ReadFile(filepath.Join(sub, "2"))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "iglkg3fqfhwpwpo-AA")

			entries, err := os.ReadDir(sub)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
		})

		Convey("you can make a new directory of larger files", func() {
			sub := filepath.Join(dir, "large")

			names, err := MakeLargeLocalTmpDir(sub, 2, 1024)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"junk0000", "junk0001"})

			info, err := os.Stat(filepath.Join(sub, "junk0001"))
			So(err, ShouldBeNil)
			So(info.Size(), ShouldEqual, 1024)

			_, err = MakeLargeLocalTmpDir(sub, 1, 1)
			So(err, ShouldNotBeNil)
		})

		Convey("files can be changed and restored", func() {
			path := filepath.Join(dir, "conf")
			So(os.WriteFile(path, []byte("original\n"), 0600), ShouldBeNil)

			errFn := errors.New("failed")

			err := FileBackedUp(path, func() error {
				So(PrependStringToFile("new\n", path), ShouldBeNil)

				data, errr := os.ReadFile(path)
				So(errr, ShouldBeNil)
				So(string(data), ShouldEqual, "new\noriginal\n")

				return errFn
			})
			So(err, ShouldEqual, errFn)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "original\n")

			Convey("including core.re", func() {
				rules := filepath.Join(dir, "core.re")
				So(os.WriteFile(rules, []byte("acSetRescSchemeForCreate {}\n"), 0600), ShouldBeNil)

				err = WithCoreRule(dir, "acPreConnect(*OUT) { *OUT = 'CS_NEG_REQUIRE'; }", func() error {
					data, errr := os.ReadFile(rules)
					So(errr, ShouldBeNil)
					So(string(data), ShouldStartWith, "acPreConnect")

					return nil
				})
				So(err, ShouldBeNil)

				data, err = os.ReadFile(rules)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "acSetRescSchemeForCreate {}\n")
			})
		})

		Convey("ils output can be split into entries", func() {
			So(ILSEntries("/z/home/u:\n  a.txt\n  C- /z/home/u/sub\n"), ShouldResemble,
				[]string{"a.txt", "C- /z/home/u/sub"})
			So(ILSEntries("/z/home/u:\n"), ShouldBeEmpty)
		})
	})
}

func TestSystem(t *testing.T) {
	Convey("Given server logs", t, func() {
		dir := t.TempDir()
		old := filepath.Join(dir, "rodsLog.2026.01.01")
		newest := filepath.Join(dir, "rodsLog.2026.02.01")

		So(os.WriteFile(old, []byte("x x x"), 0600), ShouldBeNil)
		So(os.WriteFile(newest, []byte("abcabc"), 0600), ShouldBeNil)

		past := time.Now().Add(-time.Hour)
		So(os.Chtimes(old, past, past), ShouldBeNil)

		Convey("you can find, measure and search the newest", func() {
			path, err := ServerLogPath(dir, diaglog.Server)
			So(err, ShouldBeNil)
			So(path, ShouldEqual, newest)

			size, err := ServerLogSize(dir, diaglog.Server)
			So(err, ShouldBeNil)
			So(size, ShouldEqual, 6)

			n, err := CountOccurrencesInLog(dir, diaglog.Server, "abc", 0)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			n, err = CountOccurrencesInLog(dir, diaglog.Server, "abc", 1)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			_, err = ServerLogPath(dir, diaglog.RE)
			So(errors.Is(err, diaglog.ErrNoLog), ShouldBeTrue)
		})
	})

	Convey("os-release files can be parsed", t, func() {
		path := filepath.Join(t.TempDir(), "os-release")
		So(os.WriteFile(path, []byte("# comment\nNAME=\"Ubuntu\"\nID=ubuntu\nVERSION_ID=\"22.04\"\n"), 0600),
			ShouldBeNil)

		d, err := ReadOSRelease(path)
		So(err, ShouldBeNil)
		So(d, ShouldResemble, Distribution{ID: "ubuntu", Name: "Ubuntu", VersionID: "22.04"})
		So(d.MajorVersion(), ShouldEqual, "22")

		So(os.WriteFile(path, []byte("FOO=bar\n"), 0600), ShouldBeNil)

		_, err = ReadOSRelease(path)
		So(err, ShouldEqual, ErrNoDistribution)
	})
}

func TestSSL(t *testing.T) {
	if _, err := exec.LookPath("openssl"); err != nil {
		SkipConvey("Skipping SSL tests since openssl isn't available", t, func() {})

		return
	}

	Convey("You can generate SSL files and a client environment for them", t, func() {
		files, err := GenerateSSLFiles(context.Background(), t.TempDir(), 512)
		So(err, ShouldBeNil)

		for _, path := range []string{files.Key, files.Chain, files.DHParams} {
			_, err = os.Stat(path)
			So(err, ShouldBeNil)
		}

		env := files.ClientEnvironment()
		So(env[ienv.KeySSLCACertificateFile], ShouldEqual, files.Chain)
		So(env[ienv.KeySSLCertificateKeyFile], ShouldEqual, files.Key)

		So(files.Remove(), ShouldBeNil)
		So(files.Remove(), ShouldBeNil)

		_, err = os.Stat(files.Key)
		So(os.IsNotExist(err), ShouldBeTrue)
	})
}

func TestWithPseudoICommands(t *testing.T) {
	ctx := context.Background()

	Convey("Given pseudo iCommands and a factory", t, func() {
		p, err := testirods.AddPseudoICommandsToPath(t)
		So(err, ShouldBeNil)

		f := &session.Factory{
			Provider: ienv.StaticProvider{Config: ienv.Config{
				ienv.KeyUserName: "rods",
				ienv.KeyZoneName: "tempZone",
			}},
			Host:          "localhost",
			AdminPassword: "rods",
			TempDir:       t.TempDir(),
		}

		Convey("you can make and tear down the standard resource", func() {
			r, err := NewResource(ctx, f, t.TempDir())
			So(err, ShouldBeNil)
			So(r.Admin().UserName(), ShouldEqual, "otherrods")
			So(r.User(1).UserName(), ShouldEqual, "user1")
			So(r.PublicTestFile(), ShouldEqual, "/tempZone/home/public/"+TestFileName)

			lines, err := p.CommandLines()
			So(err, ShouldBeNil)
			So(lines, ShouldContain, "ichmod read public "+r.PublicTestFile())
			So(lines, ShouldContain, "imkdir "+TestDirName)

			admin := r.Admin()
			So(p.CollectionExists(admin.SessionCollection()+"/"+TestDirName), ShouldBeTrue)
			So(p.ObjectExists(admin.SessionCollection()+"/"+TestFileName), ShouldBeTrue)
			So(p.ObjectExists(r.PublicTestFile()), ShouldBeTrue)

			Convey("and query the admin's vault", func() {
				vault, err := VaultSessionPath(ctx, admin)
				So(err, ShouldBeNil)
				So(vault, ShouldEqual, "/var/lib/irods/Vault/home/otherrods/"+admin.ID())
			})

			Convey("and get and set grid configuration", func() {
				value, err := GridConfiguration(ctx, admin, PAMPasswordNamespace, "password_max_time")
				So(err, ShouldBeNil)
				So(value, ShouldEqual, "1209600")

				So(SetGridConfiguration(ctx, admin, PAMPasswordNamespace, "password_min_time", "-1"), ShouldBeNil)

				lines, err = p.CommandLines()
				So(err, ShouldBeNil)
				So(lines, ShouldContain,
					"iadmin set_grid_configuration -- authentication::pam_password password_min_time -1")
			})

			So(p.ResetCalls(), ShouldBeNil)
			So(r.Close(ctx), ShouldBeNil)

			lines, err = p.CommandLines()
			So(err, ShouldBeNil)
			So(lines[0], ShouldEqual, "irm -f "+r.PublicTestFile())
			So(lines, ShouldContain, "iadmin rmuser user0")

			_, err = os.Stat(filepath.Join(r.LocalDir, TestFileName))
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("a failure populating the resource removes its users", func() {
			p.Fail(icmd.IChmod)

			_, err = NewResource(ctx, f, t.TempDir())

			var ae *errs.AssertionError
			So(errors.As(err, &ae), ShouldBeTrue)

			lines, errc := p.CommandLines()
			So(errc, ShouldBeNil)
			So(lines, ShouldContain, "iadmin rmuser otherrods")
		})

		Convey("you can control a server", func() {
			cfg := config.Default()
			cfg.Controller = config.Controller{Start: "echo started", Stop: "echo stopped"}

			logPath := filepath.Join(t.TempDir(), "rodsLog")
			dlog, err := diaglog.Open(logPath)
			So(err, ShouldBeNil)

			defer dlog.Close()

			c := NewController(cfg, f, dlog)
			So(c.Restart(ctx), ShouldBeNil)

			lines, err := p.CommandLines()
			So(err, ShouldBeNil)
			So(lines, ShouldResemble, []string{"iinit rods", "ils", "iexit full"})

			data, err := os.ReadFile(logPath)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "server control: echo stopped")
			So(string(data), ShouldContainSubstring, "server control: echo started")

			c.Commands.Stop = "echo oops >&2"
			err = c.Stop(ctx)

			var ae *errs.AssertionError
			So(errors.As(err, &ae), ShouldBeTrue)

			c.Commands.Restart = "false"
			So(c.Restart(ctx), ShouldNotBeNil)
		})

		Convey("waiting for a server gives up", func() {
			p.Fail(icmd.ILs)

			c := &Controller{
				Commands:     config.Controller{Start: "true"},
				Factory:      f,
				StartTimeout: 500 * time.Millisecond,
			}

			So(c.Start(ctx), ShouldNotBeNil)
		})
	})
}
