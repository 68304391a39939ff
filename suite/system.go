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
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/wtsi-hgi/itest/diaglog"
	"github.com/wtsi-hgi/itest/icmd"
)

const osReleasePath = "/etc/os-release"

var ErrNoDistribution = errors.New("no distribution name found")

// ServerLogPath returns the path of the newest log of the given source in
// dir.
func ServerLogPath(dir string, src diaglog.Source) (string, error) {
	return diaglog.LatestPath(dir, src)
}

// ServerLogSize returns the current size of the newest log of the given
// source, for use as a start offset with CountOccurrencesInLog.
func ServerLogSize(dir string, src diaglog.Source) (int64, error) {
	path, err := diaglog.LatestPath(dir, src)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// CountOccurrencesInLog counts the occurrences of s in the newest log of the
// given source, from byte offset start.
func CountOccurrencesInLog(dir string, src diaglog.Source, s string, start int64) (int, error) {
	path, err := diaglog.LatestPath(dir, src)
	if err != nil {
		return 0, err
	}

	return diaglog.CountOccurrences(path, s, start)
}

// ValidateJSON runs the given python validation script on file against the
// schema at url.
func ValidateJSON(ctx context.Context, script, file, url string) (*icmd.Result, error) {
	return icmd.Run(ctx, icmd.Invocation{Argv: []string{"python", script, file, url}})
}

// Distribution identifies the host's operating system.
type Distribution struct {
	ID        string
	Name      string
	VersionID string
}

// MajorVersion returns the part of the version before the first dot.
func (d Distribution) MajorVersion() string {
	major, _, _ := strings.Cut(d.VersionID, ".")

	return major
}

// OSDistribution describes this host's operating system, from
// /etc/os-release.
func OSDistribution() (Distribution, error) {
	return ReadOSRelease(osReleasePath)
}

// ReadOSRelease parses an os-release file.
func ReadOSRelease(path string) (Distribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return Distribution{}, err
	}
	defer f.Close()

	var d Distribution

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}

		value = strings.Trim(value, `"'`)

		switch key {
		case "ID":
			d.ID = value
		case "NAME":
			d.Name = value
		case "VERSION_ID":
			d.VersionID = value
		}
	}

	if err = scanner.Err(); err != nil {
		return Distribution{}, err
	}

	if d.Name == "" && d.ID == "" {
		return Distribution{}, ErrNoDistribution
	}

	return d, nil
}
