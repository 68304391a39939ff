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

package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/wtsi-ssg/wr/backoff"
	btime "github.com/wtsi-ssg/wr/backoff/time"
	"github.com/wtsi-ssg/wr/retry"
)

const (
	fileSizeCheckInterval = 10 * time.Millisecond
	secondCheckInterval   = 5 * time.Millisecond
)

// ErrFileTooSmall is returned while a file is smaller than awaited.
var ErrFileTooSmall = errors.New("file not big enough yet")

var errSameSecond = errors.New("still the same second")

// WaitForFileSize waits up to timeout for the local file at path to reach at
// least size bytes.
func WaitForFileSize(tb testing.TB, path string, size int64, timeout time.Duration) error {
	tb.Helper()

	return poll(timeout, fileSizeCheckInterval, "WaitForFileSize", func() error {
		stat, err := os.Stat(path)
		if err != nil {
			return err
		}

		if stat.Size() < size {
			return fmt.Errorf("%w: %d < %d", ErrFileTooSmall, stat.Size(), size)
		}

		return nil
	})
}

// WaitForNextSecond blocks until the clock ticks over to a new second and
// returns the time then, so that a catalog timestamp taken straight
// afterwards is very likely to be in the same second.
func WaitForNextSecond(tb testing.TB) time.Time {
	tb.Helper()

	start := time.Now().Unix()

	var now time.Time

	if err := poll(2*time.Second, secondCheckInterval, "WaitForNextSecond", func() error {
		now = time.Now()
		if now.Unix() == start {
			return errSameSecond
		}

		return nil
	}); err != nil {
		tb.Fatalf("clock did not advance: %v", err)
	}

	return now
}

// poll calls f every interval until it returns nil or timeout passes.
func poll(timeout, interval time.Duration, activity string, f func() error) error {
	ctx, cancelFn := context.WithTimeout(context.Background(), timeout)
	defer cancelFn()

	status := retry.Do(ctx, f, &retry.UntilNoError{}, &backoff.Backoff{
		Min:     interval,
		Max:     interval,
		Factor:  1,
		Sleeper: &btime.Sleeper{},
	}, activity)

	return status.Err
}
