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
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wtsi-hgi/itest/config"
	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/internal/testirods"
	"github.com/wtsi-hgi/itest/session"
)

const randomHexBytes = 4

var serialMu sync.Mutex //nolint:gochecknoglobals

// DefaultLiveCommands are the iCommands every live test needs.
func DefaultLiveCommands() []icmd.Name {
	return []icmd.Name{icmd.IInit, icmd.IExit, icmd.ILs, icmd.IMkdir, icmd.ICd, icmd.IRm, icmd.IRmTrash, icmd.IAdmin}
}

// RequireLive skips the test unless ITEST_LIVE is set and the given
// iCommands (DefaultLiveCommands if none) are on the PATH. Returns the
// harness configuration from the environment.
func RequireLive(tb testing.TB, names ...icmd.Name) *config.Config {
	tb.Helper()

	if os.Getenv(testirods.LiveEnvKey) == "" {
		tb.Skipf("skipping live iRODS tests since %s not set", testirods.LiveEnvKey)

		return nil
	}

	if len(names) == 0 {
		names = DefaultLiveCommands()
	}

	for _, name := range names {
		if _, err := exec.LookPath(name.String()); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				tb.Skipf("skipping live iRODS tests since the iCommand '%s' is not available", name)

				return nil
			}

			tb.Fatalf("error checking iCommand %s: %v", name, err)
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		tb.Fatalf("bad harness config: %v", err)
	}

	return cfg
}

// Live is what a live test needs to make sessions against a real server.
type Live struct {
	Config  *config.Config
	Log     *diaglog.Log
	Factory *session.Factory
}

// NewLive calls RequireLive, then opens the diagnostic log (the configured
// one, else the newest server log, else a file in a temp dir) and returns a
// session factory that uses it. The log is closed when the test ends.
func NewLive(tb testing.TB, names ...icmd.Name) *Live {
	tb.Helper()

	cfg := RequireLive(tb, names...)
	if cfg == nil {
		return nil
	}

	log := openDiagnosticLog(tb, cfg)

	tb.Cleanup(func() { log.Close() })

	transcript := zerolog.New(tbWriter{tb}).With().Timestamp().Logger()

	return &Live{
		Config:  cfg,
		Log:     log,
		Factory: session.NewFactory(cfg, log, &transcript),
	}
}

// tbWriter sends transcript lines to the test log.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))

	return len(p), nil
}

func openDiagnosticLog(tb testing.TB, cfg *config.Config) *diaglog.Log {
	tb.Helper()

	var (
		log *diaglog.Log
		err error
	)

	switch {
	case cfg.DiagnosticLog != "":
		log, err = diaglog.Open(cfg.DiagnosticLog)
	default:
		log, err = diaglog.OpenServerLog(cfg.ServerLogDir)
		if errors.Is(err, diaglog.ErrNoLog) || errors.Is(err, os.ErrNotExist) {
			log, err = diaglog.Open(filepath.Join(tb.TempDir(), "itest.log"))
		}
	}

	if err != nil {
		tb.Fatalf("failed to open diagnostic log: %v", err)
	}

	return log
}

// UniqueName returns prefix followed by random hex, for users, groups and
// collections that mustn't clash with those of earlier runs.
func UniqueName(tb testing.TB, prefix string) string {
	tb.Helper()

	buf := make([]byte, randomHexBytes)
	if _, err := rand.Read(buf); err != nil {
		tb.Fatalf("failed to read random bytes: %v", err)
	}

	return prefix + hex.EncodeToString(buf)
}

// Serial locks a shared test mutex and returns an unlock function.
func Serial(tb testing.TB) func() {
	tb.Helper()
	serialMu.Lock()

	return func() {
		serialMu.Unlock()
	}
}
