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
	"time"

	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/session"
	"github.com/wtsi-ssg/wr/backoff"
	btime "github.com/wtsi-ssg/wr/backoff/time"
	"github.com/wtsi-ssg/wr/retry"
)

const (
	defaultStartTimeout = 30 * time.Second
	startMinBackoff     = 250 * time.Millisecond
	startMaxBackoff     = 3 * time.Second
	startBackoffFactor  = 1.5
)

// Controller stops and starts the server under test by running the
// configured command lines through the shell.
type Controller struct {
	Commands config.Controller

	// Factory makes the administrator session used to confirm the server
	// is answering after a start.
	Factory *session.Factory

	// Log, if set, has each control command noted in it.
	Log *diaglog.Log

	// StartTimeout bounds how long Start waits for the server to answer.
	StartTimeout time.Duration
}

// NewController returns a Controller for the configured commands.
func NewController(cfg *config.Config, f *session.Factory, log *diaglog.Log) *Controller {
	return &Controller{
		Commands:     cfg.Controller,
		Factory:      f,
		Log:          log,
		StartTimeout: defaultStartTimeout,
	}
}

// Stop runs the stop command, which must exit 0 without writing to stderr.
func (c *Controller) Stop(ctx context.Context) error {
	return c.run(ctx, c.Commands.Stop)
}

// Start runs the start command, then waits until the administrator can list
// their home collection.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.run(ctx, c.Commands.Start); err != nil {
		return err
	}

	return c.waitForServer(ctx)
}

// Restart runs the restart command if there is one, otherwise stops then
// starts.
func (c *Controller) Restart(ctx context.Context) error {
	if c.Commands.Restart == "" {
		if err := c.Stop(ctx); err != nil {
			return err
		}

		return c.Start(ctx)
	}

	if err := c.run(ctx, c.Commands.Restart); err != nil {
		return err
	}

	return c.waitForServer(ctx)
}

func (c *Controller) run(ctx context.Context, line string) error {
	c.Log.Note("server control: " + line)

	res, err := icmd.Run(ctx, icmd.Invocation{Line: line, Shell: true})
	if err != nil {
		return err
	}

	return expect.Verify(line, res, expect.Out().WithRC(0), false)
}

func (c *Controller) waitForServer(ctx context.Context) error {
	timeout := c.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	zone, err := c.Factory.Zone()
	if err != nil {
		return err
	}

	status := retry.Do(ctx, func() error {
		return c.Factory.WithAdmin(ctx, func(admin *session.Session) error {
			_, erra := admin.Assert(ctx, icmd.New(icmd.ILs), expect.OutLine(zone))

			return erra
		})
	}, &retry.UntilNoError{}, &backoff.Backoff{
		Min:     startMinBackoff,
		Max:     startMaxBackoff,
		Factor:  startBackoffFactor,
		Sleeper: &btime.Sleeper{},
	}, "waitForServer")

	return status.Err
}
