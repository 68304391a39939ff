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

package icmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Invocation describes one run of an external program.
type Invocation struct {
	// Argv is the program and its arguments. If empty, Line is split using
	// shell word rules instead.
	Argv []string

	// Line is a command line. It is only used when Argv is empty.
	Line string

	// Shell makes Line be interpreted by /bin/sh -c.
	Shell bool

	// Stdin is written to the program's standard input.
	Stdin string

	// Env replaces the inherited environment when not nil.
	Env []string

	// Dir is the working directory; empty means the current one.
	Dir string
}

// String returns the command line being invoked.
func (inv Invocation) String() string {
	if len(inv.Argv) > 0 && !inv.Shell {
		return strings.Join(inv.Argv, " ")
	}

	return inv.Line
}

func (inv Invocation) command(ctx context.Context) (*exec.Cmd, error) {
	var argv []string

	switch {
	case inv.Shell:
		argv = []string{shellExe, "-c", inv.Line}
	case len(inv.Argv) > 0:
		argv = inv.Argv
	default:
		words, err := Split(inv.Line)
		if err != nil {
			return nil, err
		}

		argv = words
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Env = inv.Env
	cmd.Dir = inv.Dir

	return cmd, nil
}

// Result is the outcome of a completed Invocation.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// OK reports whether the program exited 0.
func (r *Result) OK() bool {
	return r.Code == 0
}

// Run runs inv and waits for it to exit, returning its exit code and output.
// Stdin is fed and both output streams are drained concurrently, so programs
// that produce lots of output don't block. A non-zero exit is not an error;
// only a failure to run the program at all is.
func Run(ctx context.Context, inv Invocation) (*Result, error) {
	cmd, err := inv.command(ctx)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdin = strings.NewReader(inv.Stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := &Result{}

	err = cmd.Run()

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.Code = exitErr.ExitCode()
	default:
		return nil, err
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	return res, nil
}

// RunLine runs the given command line, splitting it with shell word rules.
func RunLine(ctx context.Context, line string) (*Result, error) {
	return Run(ctx, Invocation{Line: line})
}

// Environ returns the current process environment with the given KEY=value
// pairs set, replacing any existing values for those keys.
func Environ(overrides ...string) []string {
	return MergeEnv(os.Environ(), overrides...)
}

// MergeEnv returns base with the given KEY=value pairs set.
func MergeEnv(base []string, overrides ...string) []string {
	keys := make(map[string]bool, len(overrides))

	for _, kv := range overrides {
		k, _, _ := strings.Cut(kv, "=")
		keys[k] = true
	}

	env := make([]string, 0, len(base)+len(overrides))

	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if !keys[k] {
			env = append(env, kv)
		}
	}

	return append(env, overrides...)
}
