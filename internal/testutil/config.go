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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/wtsi-hgi/itest/config"
	"gopkg.in/yaml.v3"
)

// WriteConfig writes cfg as a JSON harness config file in a temp dir and
// points ITEST_CONFIG at it for the rest of the test.
func WriteConfig(tb testing.TB, cfg *config.Config) string {
	tb.Helper()

	return WriteConfigFile(tb, cfg, "itest.json")
}

// WriteConfigFile is like WriteConfig, but the file gets the given basename,
// and is encoded as TOML or YAML if that ends .toml, .yaml or .yml.
func WriteConfigFile(tb testing.TB, cfg *config.Config, basename string) string {
	tb.Helper()

	var (
		data []byte
		err  error
	)

	switch filepath.Ext(basename) {
	case ".toml":
		data, err = toml.Marshal(cfg)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "\t")
	}

	if err != nil {
		tb.Fatalf("failed to encode config: %v", err)
	}

	path := filepath.Join(tb.TempDir(), basename)

	if err = os.WriteFile(path, data, 0600); err != nil { //nolint:mnd
		tb.Fatalf("failed to write config: %v", err)
	}

	if setter, ok := tb.(interface{ Setenv(key, value string) }); ok {
		setter.Setenv(config.ConfigKey, path)
	} else {
		tb.Fatalf("can't set %s for %T", config.ConfigKey, tb)
	}

	return path
}
