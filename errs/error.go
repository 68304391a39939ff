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

package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnencodableValue is returned when a setting value cannot be written
	// to a single legacy environment file line.
	ErrUnencodableValue = errors.New("value cannot be represented in legacy environment file")

	// ErrExitedEarly is returned by an interrupted run when the command had
	// already finished by the time its watched file reached the threshold.
	ErrExitedEarly = errors.New("command exited before it could be interrupted")

	// ErrSessionClosed is returned when a command is run on a torn down
	// session.
	ErrSessionClosed = errors.New("session has been closed")
)

// UnmappableKeyError is returned when an environment setting has no
// counterpart in the legacy environment file format.
type UnmappableKeyError struct {
	Key string
}

func (e *UnmappableKeyError) Error() string {
	return fmt.Sprintf("environment setting [%s] has no legacy name", e.Key)
}

func (e *UnmappableKeyError) Is(err error) bool {
	var other *UnmappableKeyError
	if errors.As(err, &other) {
		return other.Key == e.Key
	}

	return false
}

// UnknownCommandError is returned when asked to run something that isn't one
// of the known iCommands.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown icommand [%s]", e.Command)
}

// AssertionError describes a failed expectation about a command's output or
// return code. Transcript holds the expected and actual output.
type AssertionError struct {
	Command    string
	Transcript string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed for [%s]\n%s", e.Command, e.Transcript)
}

// TimeoutError is returned when an interrupted run's watched file did not
// reach its threshold in time. Output holds whatever diagnostics could be
// gathered.
type TimeoutError struct {
	Command   string
	Path      string
	Threshold int64
	Output    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for [%s] to reach %d bytes while running [%s]\n%s",
		e.Path, e.Threshold, e.Command, e.Output)
}

// CleanupError collects the errors from teardown steps that failed. It
// unwraps to all of them, the first being the one reported first.
type CleanupError struct {
	Errs []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, len(e.Errs))

	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}

	return "cleanup failed: " + strings.Join(msgs, "; ")
}

func (e *CleanupError) Unwrap() []error {
	return e.Errs
}

// First returns the earliest error recorded.
func (e *CleanupError) First() error {
	if len(e.Errs) == 0 {
		return nil
	}

	return e.Errs[0]
}
