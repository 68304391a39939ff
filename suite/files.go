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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	smallFilePrefix = "iglkg3fqfhwpwpo-"
	largeFilePrefix = "junk"
	filePerms       = 0600
	dirPerms        = 0755
)

// MakeFile creates a file of size zero bytes at path.
func MakeFile(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if size > 0 {
		_, err = io.CopyN(f, zeroReader{}, size)
	}

	if errc := f.Close(); err == nil {
		err = errc
	}

	return err
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)

	return len(p), nil
}

// CreateLocalTestFile writes a small file at path that names its own
// absolute path, and returns that path.
func CreateLocalTestFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return abs, os.WriteFile(abs, []byte("TESTFILE -- ["+abs+"]"), filePerms)
}

// CreateDirectoryOfSmallFiles makes dir if necessary and fills it with n
// files named 0 to n-1, where file i is i bytes longer than file 0.
func CreateDirectoryOfSmallFiles(dir string, n int) error {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		content := smallFilePrefix + strings.Repeat("A", i)

		if err := os.WriteFile(filepath.Join(dir, fmt.Sprint(i)), []byte(content), filePerms); err != nil {
			return err
		}
	}

	return nil
}

// MakeLargeLocalTmpDir makes the new directory dir containing n files of
// size bytes, named junk0000 onwards, and returns their names.
func MakeLargeLocalTmpDir(dir string, n int, size int64) ([]string, error) {
	if err := os.Mkdir(dir, dirPerms); err != nil {
		return nil, err
	}

	names := make([]string, n)

	for i := range names {
		names[i] = fmt.Sprintf("%s%04d", largeFilePrefix, i)

		if err := MakeFile(filepath.Join(dir, names[i]), size); err != nil {
			return nil, err
		}
	}

	return names, nil
}

// FileBackedUp copies path aside, calls fn, then puts the original content
// back whether or not fn succeeded. fn's error takes precedence.
func FileBackedUp(path string, fn func() error) (err error) {
	original, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	defer func() {
		if errw := os.WriteFile(path, original, info.Mode().Perm()); err == nil {
			err = errw
		}
	}()

	return fn()
}

// PrependStringToFile puts s at the start of the file at path.
func PrependStringToFile(s, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, append([]byte(s), content...), info.Mode().Perm())
}

// ILSEntries returns the trimmed entry lines of ils output, without the
// leading collection line.
func ILSEntries(stdout string) []string {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) < 2 { //nolint:mnd
		return []string{}
	}

	entries := make([]string, len(lines)-1)

	for i, line := range lines[1:] {
		entries[i] = strings.TrimSpace(line)
	}

	return entries
}
