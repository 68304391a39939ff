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

// package expect checks the output of commands against expectations, the way
// the iRODS test suites have always done: by looking for strings (or regular
// expressions) in stdout or stderr, treating any unexpected stderr as a
// failure.

package expect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-hgi/itest/icmd"
)

// Kind says where expected values should be looked for.
type Kind int

const (
	// Empty expects no stdout (and, like all non-stderr kinds, no stderr).
	Empty Kind = iota

	// Stdout expects every value somewhere in stdout.
	Stdout

	// Stderr expects every value somewhere in stderr.
	Stderr

	// StdoutSingleLine expects a single line of stdout to contain every value.
	StdoutSingleLine

	// StderrSingleLine expects a single line of stderr to contain every value.
	StderrSingleLine

	// StdoutMultiLine expects each value to be on some line of stdout.
	StdoutMultiLine

	// StderrMultiLine expects each value to be on some line of stderr.
	StderrMultiLine
)

var kindNames = [...]string{ //nolint:gochecknoglobals
	Empty:            "EMPTY",
	Stdout:           "STDOUT",
	Stderr:           "STDERR",
	StdoutSingleLine: "STDOUT_SINGLELINE",
	StderrSingleLine: "STDERR_SINGLELINE",
	StdoutMultiLine:  "STDOUT_MULTILINE",
	StderrMultiLine:  "STDERR_MULTILINE",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// ParseKind returns the Kind with the given name, eg. "STDOUT_SINGLELINE".
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}

	return 0, fmt.Errorf("unknown output check type [%s]", s)
}

func (k Kind) onStderr() bool {
	return k == Stderr || k == StderrSingleLine || k == StderrMultiLine
}

// Check reports whether the given output satisfies kind and values. Values
// are literal substrings unless useRegex is true. Any stderr output fails
// kinds that aren't about stderr.
func Check(kind Kind, stdout, stderr string, values []string, useRegex bool) (bool, error) {
	if !kind.onStderr() && stderr != "" {
		return false, nil
	}

	matchers, err := compile(values, useRegex)
	if err != nil {
		return false, err
	}

	output := stdout
	if kind.onStderr() {
		output = stderr
	}

	switch kind {
	case Empty:
		return stdout == "", nil
	case Stdout, Stderr:
		return matchAll(matchers, output), nil
	case StdoutSingleLine, StderrSingleLine:
		return matchAllOnOneLine(matchers, splitLines(output)), nil
	case StdoutMultiLine, StderrMultiLine:
		return matchEachOnSomeLine(matchers, splitLines(output)), nil
	default:
		return false, fmt.Errorf("unknown output check type [%s]", kind)
	}
}

type matcher func(string) bool

func compile(values []string, useRegex bool) ([]matcher, error) {
	matchers := make([]matcher, len(values))

	for i, v := range values {
		if !useRegex {
			value := v
			matchers[i] = func(s string) bool { return strings.Contains(s, value) }

			continue
		}

		re, err := regexp.Compile(v)
		if err != nil {
			return nil, err
		}

		matchers[i] = re.MatchString
	}

	return matchers, nil
}

func matchAll(matchers []matcher, s string) bool {
	for _, m := range matchers {
		if !m(s) {
			return false
		}
	}

	return true
}

func matchAllOnOneLine(matchers []matcher, lines []string) bool {
	for _, line := range lines {
		if matchAll(matchers, line) {
			return true
		}
	}

	return false
}

func matchEachOnSomeLine(matchers []matcher, lines []string) bool {
	for _, m := range matchers {
		found := false

		for _, line := range lines {
			if m(line) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// splitLines splits s on \n, \r\n and \r line endings. A final line ending
// doesn't start another line, and "" has no lines.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")

	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}

// Expectation is what a command's output and, optionally, return code should
// be.
type Expectation struct {
	Kind   Kind
	Values []string
	Regex  bool

	rc    int
	hasRC bool
}

// Nothing expects no output on stdout or stderr.
func Nothing() Expectation {
	return Expectation{Kind: Empty}
}

// Out expects every value somewhere in stdout.
func Out(values ...string) Expectation {
	return Expectation{Kind: Stdout, Values: values}
}

// Err expects every value somewhere in stderr.
func Err(values ...string) Expectation {
	return Expectation{Kind: Stderr, Values: values}
}

// OutLine expects one line of stdout to contain every value.
func OutLine(values ...string) Expectation {
	return Expectation{Kind: StdoutSingleLine, Values: values}
}

// ErrLine expects one line of stderr to contain every value.
func ErrLine(values ...string) Expectation {
	return Expectation{Kind: StderrSingleLine, Values: values}
}

// OutLines expects each value on some line of stdout.
func OutLines(values ...string) Expectation {
	return Expectation{Kind: StdoutMultiLine, Values: values}
}

// ErrLines expects each value on some line of stderr.
func ErrLines(values ...string) Expectation {
	return Expectation{Kind: StderrMultiLine, Values: values}
}

// AsRegex returns a copy of e that treats its values as regular expressions.
func (e Expectation) AsRegex() Expectation {
	e.Regex = true

	return e
}

// WithRC returns a copy of e that also expects the given return code.
func (e Expectation) WithRC(rc int) Expectation {
	e.rc = rc
	e.hasRC = true

	return e
}

// RC returns the expected return code, and whether there is one.
func (e Expectation) RC() (int, bool) {
	return e.rc, e.hasRC
}

// Match reports whether the given output meets e's output expectation,
// ignoring any return code.
func (e Expectation) Match(stdout, stderr string) (bool, error) {
	return Check(e.Kind, stdout, stderr, e.Values, e.Regex)
}

// Verify checks res against e. When negate is true the output must NOT meet
// the expectation; a return code expectation is never negated. Returns an
// *errs.AssertionError with a transcript if the check fails.
func Verify(command string, res *icmd.Result, e Expectation, negate bool) error {
	matched, err := e.Match(res.Stdout, res.Stderr)
	if err != nil {
		return err
	}

	ok := matched != negate

	var rcLine string

	if rc, has := e.RC(); has {
		rcLine = fmt.Sprintf("Checking return code: actual [%d] desired [%d]", res.Code, rc)

		if res.Code != rc {
			rcLine += "\nRETURN CODE CHECK FAILED"
			ok = false
		}
	}

	if ok {
		return nil
	}

	return &errs.AssertionError{
		Command:    command,
		Transcript: Transcript(e, res, negate, matched, rcLine),
	}
}

// Transcript describes what was expected of a command and what it actually
// output, for diagnosing failures.
func Transcript(e Expectation, res *icmd.Result, negate, matched bool, rcLine string) string {
	var b strings.Builder

	regexMsg := ""
	if e.Regex {
		regexMsg = "regex "
	}

	fail := ""
	if negate {
		fail = " (expecting failure)"
	}

	fmt.Fprintf(&b, "Expecting %s%s: %s%q\n", e.Kind, fail, regexMsg, e.Values)
	b.WriteString("  stdout:\n")
	writeIndented(&b, res.Stdout)
	b.WriteString("  stderr:\n")
	writeIndented(&b, res.Stderr)

	b.WriteString(outcome(e.Kind, res, matched))
	b.WriteByte('\n')

	if rcLine != "" {
		b.WriteString(rcLine)
		b.WriteByte('\n')
	}

	b.WriteString("FAILED TESTING ASSERTION\n")

	return b.String()
}

func outcome(kind Kind, res *icmd.Result, matched bool) string {
	switch {
	case matched:
		return "Output found"
	case !kind.onStderr() && res.Stderr != "":
		return "Unexpected output on stderr"
	case kind == Empty:
		return "Unexpected output on stdout"
	default:
		return "Output not found"
	}
}

func writeIndented(b *strings.Builder, s string) {
	lines := splitLines(s)
	if len(lines) == 0 {
		b.WriteString("    | \n")

		return
	}

	for _, line := range lines {
		b.WriteString("    | ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
