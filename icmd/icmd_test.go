package icmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/itest/errs"
)

func TestNames(t *testing.T) {
	Convey("Every iCommand name parses back to itself", t, func() {
		for _, n := range Names() {
			So(n.Valid(), ShouldBeTrue)

			got, err := ParseName(n.String())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, n)
		}

		So(ILs.String(), ShouldEqual, "ils")
		So(IZoneReport.String(), ShouldEqual, "izonereport")
	})

	Convey("Unknown names are rejected", t, func() {
		_, err := ParseName("ls")

		var uce *errs.UnknownCommandError
		So(errors.As(err, &uce), ShouldBeTrue)
		So(uce.Command, ShouldEqual, "ls")

		So(Name(-1).Valid(), ShouldBeFalse)
		So(numNames.String(), ShouldStartWith, "icommand(")
	})
}

func TestCommand(t *testing.T) {
	Convey("Parse splits a command line with shell rules", t, func() {
		c, err := Parse(`iquest "select sum(DATA_SIZE) where COLL_NAME like '/z/home/%'"`)
		So(err, ShouldBeNil)
		So(c.Name, ShouldEqual, IQuest)
		So(c.Args, ShouldResemble, []string{"select sum(DATA_SIZE) where COLL_NAME like '/z/home/%'"})
		So(c.Shell(), ShouldBeFalse)
		So(c.Invocation().Argv, ShouldResemble, c.Argv())

		c, err = Parse("iexit full")
		So(err, ShouldBeNil)
		So(c.String(), ShouldEqual, "iexit full")

		Convey("but not unknown commands or empty lines", func() {
			_, err = Parse("rm -rf /")
			So(err, ShouldNotBeNil)

			var uce *errs.UnknownCommandError
			So(errors.As(err, &uce), ShouldBeTrue)

			_, err = Parse("   ")
			So(err, ShouldNotBeNil)

			_, err = ParseArgv(nil)
			So(err, ShouldNotBeNil)

			So(func() { MustParse("bogus") }, ShouldPanic)
		})
	})

	Convey("ParseShell keeps the line for the shell", t, func() {
		c, err := ParseShell("izonereport > out.txt")
		So(err, ShouldBeNil)
		So(c.Name, ShouldEqual, IZoneReport)
		So(c.Shell(), ShouldBeTrue)
		So(c.String(), ShouldEqual, "izonereport > out.txt")

		inv := c.Invocation()
		So(inv.Shell, ShouldBeTrue)
		So(inv.Line, ShouldEqual, "izonereport > out.txt")

		_, err = ParseShell("cat /etc/passwd | ils")
		So(err, ShouldNotBeNil)
	})

	Convey("New builds an argv", t, func() {
		c := New(IMkdir, "-p", "a/b")
		So(c.Argv(), ShouldResemble, []string{"imkdir", "-p", "a/b"})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Run captures exit code, stdout and stderr, feeding stdin", t, func() {
		res, err := Run(ctx, Invocation{
			Argv:  []string{"sh", "-c", "cat; echo err >&2; exit 3"},
			Stdin: "hello",
		})
		So(err, ShouldBeNil)
		So(res.Code, ShouldEqual, 3)
		So(res.OK(), ShouldBeFalse)
		So(res.Stdout, ShouldEqual, "hello")
		So(res.Stderr, ShouldEqual, "err\n")
	})

	Convey("Run doesn't deadlock on large input and output", t, func() {
		big := strings.Repeat("0123456789abcdef", 1<<16)

		res, err := Run(ctx, Invocation{
			Argv:  []string{"sh", "-c", "cat; head -c 1048576 /dev/zero >&2"},
			Stdin: big,
		})
		So(err, ShouldBeNil)
		So(res.Code, ShouldEqual, 0)
		So(len(res.Stdout), ShouldEqual, len(big))
		So(len(res.Stderr), ShouldEqual, 1<<20)
	})

	Convey("Run splits lines, honours Dir and Env, and supports the shell", t, func() {
		dir := t.TempDir()

		res, err := Run(ctx, Invocation{Line: "sh -c 'pwd; echo $ITEST_X'", Dir: dir,
			Env: MergeEnv(os.Environ(), "ITEST_X=set")})
		So(err, ShouldBeNil)

		So(res.Stdout, ShouldEndWith, filepath.Base(dir)+"\nset\n")

		res, err = Run(ctx, Invocation{Line: "echo a | tr a b > out.txt", Shell: true, Dir: dir})
		So(err, ShouldBeNil)
		So(res.Code, ShouldEqual, 0)

		content, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		So(err, ShouldBeNil)
		So(string(content), ShouldEqual, "b\n")

		res, err = RunLine(ctx, "echo 'one two'")
		So(err, ShouldBeNil)
		So(res.Stdout, ShouldEqual, "one two\n")
	})

	Convey("Run errors only when the program can't be started", t, func() {
		_, err := Run(ctx, Invocation{Argv: []string{"/nonexistent/itest/program"}})
		So(err, ShouldNotBeNil)

		_, err = Run(ctx, Invocation{Line: "unbalanced 'quote"})
		So(err, ShouldNotBeNil)
	})

	Convey("MergeEnv replaces existing keys", t, func() {
		env := MergeEnv([]string{"A=1", "B=2", "C=3"}, "B=4", "D=5")
		So(env, ShouldResemble, []string{"A=1", "C=3", "B=4", "D=5"})
	})
}

func TestRunUntilSize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a file to watch", t, func() {
		path := filepath.Join(t.TempDir(), "watched")

		Convey("a command that writes past the threshold is terminated", func() {
			inv := Invocation{Argv: []string{"sh", "-c",
				"head -c 100000 /dev/zero > " + path + "; exec sleep 30"}}

			in, err := RunUntilSize(ctx, inv, path, 1000, WatchOptions{Timeout: 10 * time.Second})
			So(err, ShouldBeNil)
			So(in.Size, ShouldBeGreaterThanOrEqualTo, 1000)
			So(in.Code, ShouldNotEqual, 0)
			So(in.Elapsed, ShouldBeLessThan, 10*time.Second)
		})

		Convey("a command that never writes times out", func() {
			start := time.Now()

			_, err := RunUntilSize(ctx, Invocation{Argv: []string{"sleep", "30"}}, path, 1,
				WatchOptions{Timeout: 200 * time.Millisecond, Interval: 10 * time.Millisecond})
			So(err, ShouldNotBeNil)
			So(time.Since(start), ShouldBeLessThan, 10*time.Second)

			var te *errs.TimeoutError
			So(errors.As(err, &te), ShouldBeTrue)
			So(te.Path, ShouldEqual, path)
			So(te.Threshold, ShouldEqual, 1)
			So(te.Command, ShouldEqual, "sleep 30")
		})

		Convey("a command is terminated when the context ends first", func() {
			cctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			defer cancel()

			start := time.Now()

			_, err := RunUntilSize(cctx, Invocation{Argv: []string{"sleep", "30"}}, path, 1,
				WatchOptions{Timeout: 20 * time.Second, Interval: 10 * time.Millisecond})
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 10*time.Second)

			var te *errs.TimeoutError
			So(errors.As(err, &te), ShouldBeFalse)
		})
	})

	Convey("Terminating a process is idempotent and fine after it exits", t, func() {
		p, err := Start(ctx, Invocation{Argv: []string{"true"}})
		So(err, ShouldBeNil)

		res := p.Wait(time.Second)
		So(res.Code, ShouldEqual, 0)
		So(p.Exited(), ShouldBeTrue)
		So(p.Terminate(), ShouldBeNil)
		So(p.Terminate(), ShouldBeNil)

		p, err = Start(ctx, Invocation{Argv: []string{"sleep", "30"}})
		So(err, ShouldBeNil)
		So(p.Exited(), ShouldBeFalse)
		So(p.Terminate(), ShouldBeNil)
		So(p.Terminate(), ShouldBeNil)

		res = p.Wait(5 * time.Second)
		So(res.Code, ShouldEqual, -1)
		So(p.Exited(), ShouldBeTrue)
	})
}
