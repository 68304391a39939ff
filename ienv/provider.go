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

package ienv

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// JSONBasename is the name iCommands give the modern environment file.
	JSONBasename = "irods_environment.json"

	// LegacyBasename is the name of the pre-4.1 environment file.
	LegacyBasename = ".irodsEnv"

	serviceAccountSubdir = ".irods"
)

// Provider supplies the environment of the pre-existing service (admin)
// account that sessions are bootstrapped from.
type Provider interface {
	ServiceAccount() (Config, error)
}

// HomeProvider reads the service account environment from a directory laid
// out like ~/.irods.
type HomeProvider struct {
	Dir string
}

// NewHomeProvider returns a HomeProvider for the current user's ~/.irods.
func NewHomeProvider() (*HomeProvider, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return &HomeProvider{Dir: filepath.Join(home, serviceAccountSubdir)}, nil
}

// ServiceAccount returns the settings in irods_environment.json, or those in
// .irodsEnv if there is no JSON file. Any other problem reading the JSON file
// is returned as is.
func (h *HomeProvider) ServiceAccount() (Config, error) {
	c, err := LoadJSON(filepath.Join(h.Dir, JSONBasename))
	if err == nil {
		return c, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return LoadLegacy(filepath.Join(h.Dir, LegacyBasename))
}

// JSONPath returns the path of the service account's JSON environment file.
func (h *HomeProvider) JSONPath() string {
	return filepath.Join(h.Dir, JSONBasename)
}

// StaticProvider is a Provider that always returns a copy of its Config.
type StaticProvider struct {
	Config Config
}

func (s StaticProvider) ServiceAccount() (Config, error) {
	return s.Config.Clone(), nil
}
