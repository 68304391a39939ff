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
	"sync"
	"syscall"
	"time"

	"github.com/wtsi-hgi/itest/errs"
	"github.com/wtsi-ssg/wr/backoff"
	btime "github.com/wtsi-ssg/wr/backoff/time"
	"github.com/wtsi-ssg/wr/retry"
)

const (
	DefaultWatchTimeout  = 30 * time.Second
	DefaultWatchInterval = 5 * time.Millisecond

	terminateGrace = 5 * time.Second
)

var errBelowThreshold = errors.New("watched file is below threshold")

// Process is a program started without waiting for it to finish.
type Process struct {
	cmd            *exec.Cmd
	stdout, stderr bytes.Buffer
	done           chan struct{}
	waitErr        error
	termOnce       sync.Once
	termErr        error
}

// Start starts inv in the background.
func Start(ctx context.Context, inv Invocation) (*Process, error) {
	cmd, err := inv.command(ctx)
	if err != nil {
		return nil, err
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}

	cmd.Stdin = strings.NewReader(inv.Stdin)
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr
	cmd.WaitDelay = terminateGrace

	if err = cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// Exited reports whether the process has finished.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Terminate sends the process SIGTERM. Only the first call does anything, and
// it is not an error if the process had already exited.
func (p *Process) Terminate() error {
	p.termOnce.Do(func() {
		if p.Exited() {
			return
		}

		err := p.cmd.Process.Signal(syscall.SIGTERM)
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.termErr = err
		}
	})

	return p.termErr
}

// Wait waits for the process to exit, killing it if it hasn't exited within
// the given grace period of being asked to, and returns its Result.
func (p *Process) Wait(grace time.Duration) *Result {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.cmd.Process.Kill() //nolint:errcheck
		<-p.done
	}

	res := &Result{Stdout: p.stdout.String(), Stderr: p.stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		res.Code = exitErr.ExitCode()
	}

	return res
}

// WatchOptions control how RunUntilSize polls.
type WatchOptions struct {
	// Timeout is how long to wait for the file to reach the threshold;
	// defaults to 30s.
	Timeout time.Duration

	// Interval is how often the file size is checked; defaults to 5ms.
	Interval time.Duration
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultWatchTimeout
	}

	if o.Interval <= 0 {
		o.Interval = DefaultWatchInterval
	}

	return o
}

// Interrupted describes a run that RunUntilSize cut short.
type Interrupted struct {
	*Result
	Size    int64
	Elapsed time.Duration
}

// RunUntilSize starts inv, then polls the size of the file at path until it
// is at least threshold bytes, at which point the program is terminated.
//
// If the program had already exited by then, returns errs.ErrExitedEarly. If
// the file doesn't get big enough before the timeout, the program is
// terminated and an *errs.TimeoutError holding its output is returned. If ctx
// ends first, the program is terminated and ctx's error is returned.
func RunUntilSize(ctx context.Context, inv Invocation, path string, threshold int64,
	opts WatchOptions) (*Interrupted, error) {
	opts = opts.withDefaults()
	start := time.Now()

	p, err := Start(ctx, inv)
	if err != nil {
		return nil, err
	}

	size, err := waitForSize(ctx, path, threshold, opts)
	if err != nil {
		p.Terminate() //nolint:errcheck

		res := p.Wait(terminateGrace)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &errs.TimeoutError{
			Command:   inv.String(),
			Path:      path,
			Threshold: threshold,
			Output:    "stdout:\n" + res.Stdout + "\nstderr:\n" + res.Stderr,
		}
	}

	exitedEarly := p.Exited()

	if err = p.Terminate(); err != nil {
		return nil, err
	}

	in := &Interrupted{Result: p.Wait(terminateGrace), Size: size, Elapsed: time.Since(start)}

	if exitedEarly {
		return in, errs.ErrExitedEarly
	}

	return in, nil
}

// waitForSize checks the size of path every opts.Interval until it reaches
// threshold, returning the size seen. Returns an error if opts.Timeout passes
// first.
func waitForSize(ctx context.Context, path string, threshold int64, opts WatchOptions) (int64, error) {
	ctx, cancelFn := context.WithTimeout(ctx, opts.Timeout)
	defer cancelFn()

	var size int64

	status := retry.Do(ctx, func() error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		size = info.Size()
		if size < threshold {
			return errBelowThreshold
		}

		return nil
	}, &retry.UntilNoError{}, &backoff.Backoff{
		Min:     opts.Interval,
		Max:     opts.Interval,
		Factor:  1,
		Sleeper: &btime.Sleeper{},
	}, "waiting for "+path+" to grow")

	return size, status.Err
}
