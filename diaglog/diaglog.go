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

// package diaglog writes the diagnostic log that records every command the
// harness runs, and the console transcript of the same.

package diaglog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/inconshreveable/log15"
)

// Source is a kind of iRODS server log.
type Source int

const (
	// Server is the main server log, rodsLog*.
	Server Source = iota

	// RE is the rule engine log, reLog*.
	RE
)

func (s Source) prefix() string {
	if s == RE {
		return "reLog"
	}

	return "rodsLog"
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var ErrNoLog = errors.New("no server log found")

// LatestPath returns the most recently modified log of the given source in
// dir, eg. /var/lib/irods/iRODS/server/log/rodsLog.2026.10.01.
func LatestPath(dir string, src Source) (string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, src.prefix()+"*"))
	if err != nil {
		return "", err
	}

	var (
		latest     string
		latestTime time.Time
	)

	for _, path := range paths {
		info, errs := os.Stat(path)
		if errs != nil || info.IsDir() {
			continue
		}

		if latest == "" || info.ModTime().After(latestTime) {
			latest, latestTime = path, info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w: %s*", ErrNoLog, filepath.Join(dir, src.prefix()))
	}

	return latest, nil
}

// CountOccurrences returns how many times s appears in the file at path,
// ignoring the first start bytes. Overlapping occurrences are counted.
func CountOccurrences(path, s string, start int64) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	if start >= int64(len(data)) || s == "" {
		return 0, nil
	}

	if start > 0 {
		data = data[start:]
	}

	n := 0
	needle := []byte(s)

	for {
		i := bytes.Index(data, needle)
		if i < 0 {
			return n, nil
		}

		n++
		data = data[i+1:]
	}
}

// Log is an append-only diagnostic log. Every entry is written with a single
// write to a file opened for appending, so Logs for different sessions can
// share a file without interleaving within lines.
//
// A nil *Log discards everything.
type Log struct {
	logger  log15.Logger
	handler log15.Handler
	path    string
}

// Open opens (creating if necessary) the log file at path for appending.
func Open(path string) (*Log, error) {
	fh, err := log15.FileHandler(path, Format())
	if err != nil {
		return nil, err
	}

	logger := log15.New()
	logger.SetHandler(fh)

	return &Log{logger: logger, handler: fh, path: path}, nil
}

// OpenServerLog opens the newest server log in dir.
func OpenServerLog(dir string) (*Log, error) {
	path, err := LatestPath(dir, Server)
	if err != nil {
		return nil, err
	}

	return Open(path)
}

// Format returns the log15 format for diagnostic entries:
//
//	2026-10-15T09:01:02.345Z --- IrodsSession: icommand executed by [rods] [ils -l] ---
func Format() log15.Format { //nolint:ireturn
	return log15.FormatFunc(func(r *log15.Record) []byte {
		var b bytes.Buffer

		b.WriteString(r.Time.UTC().Format(timeFormat))
		b.WriteString(" --- ")
		b.WriteString(r.Msg)
		b.WriteString(" --- \n")

		return b.Bytes()
	})
}

// Path returns the path of the log file.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}

	return l.path
}

// Command records that user is about to run cmdline.
func (l *Log) Command(user, cmdline string) {
	l.write(CommandMessage(user, cmdline))
}

// Interrupt records that user is about to run cmdline, which will be
// interrupted.
func (l *Log) Interrupt(user, cmdline string) {
	l.write(fmt.Sprintf("interrupt icommand by [%s] [%s]", user, cmdline))
}

// Note records an arbitrary message.
func (l *Log) Note(msg string) {
	l.write(msg)
}

func (l *Log) write(msg string) {
	if l == nil {
		return
	}

	l.logger.Info(msg)
}

// Close closes the log file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}

	if c, ok := l.handler.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// CommandMessage is the message logged before a session runs a command.
func CommandMessage(user, cmdline string) string {
	return fmt.Sprintf("IrodsSession: icommand executed by [%s] [%s]", user, cmdline)
}
