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

package expect

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/icmd"
)

func TestKind(t *testing.T) {
	Convey("Kinds have the classic names and parse back", t, func() {
		for k := Empty; k <= StderrMultiLine; k++ {
			got, err := ParseKind(k.String())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, k)
		}

		k, err := ParseKind("stdout_singleline")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, StdoutSingleLine)

		_, err = ParseKind("STDOUT_ANYWHERE")
		So(err, ShouldNotBeNil)

		So(Kind(99).String(), ShouldEqual, "Kind(99)")
	})
}

func TestCheck(t *testing.T) {
	Convey("Unexpected stderr fails every non-stderr kind", t, func() {
		for _, k := range []Kind{Empty, Stdout, StdoutSingleLine, StdoutMultiLine} {
			ok, err := Check(k, "", "oops", nil, false)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		}

		ok, err := Check(Empty, "", "", nil, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, _ = Check(Empty, "x", "", nil, false) //nolint:errcheck
		So(ok, ShouldBeFalse)
	})

	Convey("STDOUT and STDERR look anywhere in their stream", t, func() {
		ok, err := Check(Stdout, "hello\nworld\n", "", []string{"lo\nwo", "hell"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(Stdout, "hello\n", "", []string{"hello", "bye"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)

		ok, err = Check(Stderr, "ignored", "USER_SOCK_CONNECT_ERR -4000\n", []string{"CONNECT_ERR"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(Stderr, "CONNECT_ERR", "", []string{"CONNECT_ERR"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})

	Convey("SINGLELINE needs one line matching all values", t, func() {
		out := "C- /tempZone/home/rods:\n  C- /tempZone/home/rods/sub\n"

		ok, err := Check(StdoutSingleLine, out, "", []string{"C-", "sub"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(StdoutSingleLine, out, "", []string{"rods:", "sub"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)

		ok, err = Check(StderrSingleLine, "", "a b\r\nc d\r\n", []string{"c", "d"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
	})

	Convey("MULTILINE needs each value on some line", t, func() {
		ok, err := Check(StdoutMultiLine, "a\nb\n", "", []string{"a", "b"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(StdoutMultiLine, "a\nb\n", "", []string{"a", "c"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)

		ok, err = Check(StderrMultiLine, "", "x\ry\r", []string{"y", "x"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(StdoutMultiLine, "", "", []string{"a"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})

	Convey("Values can be regular expressions", t, func() {
		ok, err := Check(StdoutSingleLine, "expiry: 1700000000\n", "", []string{`^expiry: \d+$`}, true)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(Stdout, "a.c", "", []string{"a.c"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		ok, err = Check(Stdout, "abc", "", []string{"a.c"}, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)

		_, err = Check(Stdout, "abc", "", []string{"("}, true)
		So(err, ShouldNotBeNil)
	})

	Convey("No values always match a stream that is allowed", t, func() {
		ok, err := Check(Stdout, "", "", nil, false)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
	})
}

func TestVerify(t *testing.T) {
	Convey("Given some results", t, func() {
		good := &icmd.Result{Code: 0, Stdout: "a\nb\n"}
		noisy := &icmd.Result{Code: 0, Stdout: "a\n", Stderr: "warning\n"}
		failed := &icmd.Result{Code: 1, Stdout: "a\nb\n"}

		Convey("a failure check is the negation of the success check", func() {
			for _, res := range []*icmd.Result{good, noisy} {
				for _, e := range []Expectation{
					Nothing(), Out("a"), Out("z"), Err("warning"), OutLines("a", "b"),
					OutLine("a", "b"), ErrLine("warn"), ErrLines("nope"),
				} {
					pass := Verify("ils", res, e, false) == nil
					failPass := Verify("ils", res, e, true) == nil
					So(failPass, ShouldEqual, !pass)
				}
			}
		})

		Convey("a return code mismatch fails even when output matches", func() {
			So(Verify("ils", good, OutLines("a", "b").WithRC(0), false), ShouldBeNil)

			err := Verify("ils", failed, OutLines("a", "b").WithRC(0), false)
			So(err, ShouldNotBeNil)

			var ae *errs.AssertionError
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Command, ShouldEqual, "ils")
			So(ae.Transcript, ShouldContainSubstring, "actual [1] desired [0]")
			So(ae.Transcript, ShouldContainSubstring, "RETURN CODE CHECK FAILED")
		})

		Convey("return code checks are not negated", func() {
			So(Verify("ils", failed, Out("zzz").WithRC(1), true), ShouldBeNil)
			So(Verify("ils", failed, Out("zzz").WithRC(0), true), ShouldNotBeNil)
			So(Verify("ils", failed, Out("a").WithRC(1), true), ShouldNotBeNil)

			rc, has := Out("a").RC()
			So(has, ShouldBeFalse)
			So(rc, ShouldEqual, 0)
		})

		Convey("failures carry a transcript of expected and actual output", func() {
			err := Verify("ils -l", noisy, Out("a"), false)

			var ae *errs.AssertionError
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Transcript, ShouldContainSubstring, `Expecting STDOUT: ["a"]`)
			So(ae.Transcript, ShouldContainSubstring, "    | a\n")
			So(ae.Transcript, ShouldContainSubstring, "    | warning\n")
			So(ae.Transcript, ShouldContainSubstring, "Unexpected output on stderr")
			So(ae.Transcript, ShouldEndWith, "FAILED TESTING ASSERTION\n")
			So(ae.Error(), ShouldContainSubstring, "ils -l")

			err = Verify("ils", good, Out("a").AsRegex(), true)
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Transcript, ShouldContainSubstring, `Expecting STDOUT (expecting failure): regex ["a"]`)
			So(ae.Transcript, ShouldContainSubstring, "Output found")

			err = Verify("ils", good, Nothing(), false)
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Transcript, ShouldContainSubstring, "Unexpected output on stdout")

			err = Verify("ils", good, Out("zzz"), false)
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Transcript, ShouldContainSubstring, "Output not found")
		})

		Convey("invalid regular expressions are errors, not failures", func() {
			err := Verify("ils", good, Out("[").AsRegex(), false)
			So(err, ShouldNotBeNil)

			var ae *errs.AssertionError
			So(errors.As(err, &ae), ShouldBeFalse)
		})
	})
}
