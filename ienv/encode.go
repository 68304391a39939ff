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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wtsi-hgi/itest/errs"
)

const (
	jsonIndent = "    "
	filePerms  = 0600
)

// LegacyMode says how WriteFiles should treat settings that have no legacy
// name.
type LegacyMode int

const (
	// LegacyMapped writes a legacy file containing only the settings that
	// have legacy names.
	LegacyMapped LegacyMode = iota

	// LegacyRequired fails with an UnmappableKeyError if any setting lacks a
	// legacy name.
	LegacyRequired

	// LegacyOff does not write a legacy file at all.
	LegacyOff
)

var legacyModeNames = [...]string{"mapped", "required", "off"} //nolint:gochecknoglobals

func (m LegacyMode) String() string {
	if m < 0 || int(m) >= len(legacyModeNames) {
		return fmt.Sprintf("LegacyMode(%d)", int(m))
	}

	return legacyModeNames[m]
}

// ParseLegacyMode returns the LegacyMode named "mapped", "required" or "off".
func ParseLegacyMode(s string) (LegacyMode, error) {
	for i, name := range legacyModeNames {
		if strings.EqualFold(s, name) {
			return LegacyMode(i), nil
		}
	}

	return 0, fmt.Errorf("unknown legacy mode [%s]", s) //nolint:err113
}

// intKeys are the legacy settings whose values are numbers; everything else
// read back from a legacy file is a string.
var intKeys = map[string]bool{ //nolint:gochecknoglobals
	KeyPort:       true,
	KeySaltSize:   true,
	KeyHashRounds: true,
}

// EncodeJSON returns c as an indented irods_environment.json document. Keys
// are sorted, so encoding the same Config always gives the same bytes.
func EncodeJSON(c Config) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)

	if err := enc.Encode(map[string]any(c)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeJSON parses an irods_environment.json document. Integral numbers
// become ints.
func DecodeJSON(r io.Reader) (Config, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	c := make(Config, len(raw))

	for k, v := range raw {
		c[k] = fromJSON(v)
	}

	return c, nil
}

func fromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}

		f, err := val.Float64()
		if err != nil {
			return val.String()
		}

		return f
	case []any:
		for i := range val {
			val[i] = fromJSON(val[i])
		}

		return val
	case map[string]any:
		for k := range val {
			val[k] = fromJSON(val[k])
		}

		return val
	default:
		return v
	}
}

// EncodeLegacy returns c as a pre-4.1 .irodsEnv file: one "name value" line
// per setting, ordered by modern name. It fails with an UnmappableKeyError if
// a setting has no legacy name.
func EncodeLegacy(c Config) ([]byte, error) {
	var buf bytes.Buffer

	for _, key := range c.Keys() {
		name, ok := legacyNames[key]
		if !ok {
			return nil, &errs.UnmappableKeyError{Key: key}
		}

		if err := writeLegacyLine(&buf, key, name, c[key]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// EncodeLegacyMapped is like EncodeLegacy, but leaves out settings without a
// legacy name instead of failing, returning their names.
func EncodeLegacyMapped(c Config) ([]byte, []string, error) {
	var (
		buf     bytes.Buffer
		skipped []string
	)

	for _, key := range c.Keys() {
		name, ok := legacyNames[key]
		if !ok {
			skipped = append(skipped, key)

			continue
		}

		if err := writeLegacyLine(&buf, key, name, c[key]); err != nil {
			return nil, skipped, err
		}
	}

	return buf.Bytes(), skipped, nil
}

// writeLegacyLine writes a "name value" line for the setting key. Only values
// that DecodeLegacy gives back unchanged are accepted: ints for numeric
// settings, and strings that don't look like ints for the rest.
func writeLegacyLine(buf *bytes.Buffer, key, name string, v any) error {
	value, ok := legacyValue(key, v)
	if !ok || strings.ContainsAny(value, "\r\n") || strings.TrimSpace(value) != value {
		return fmt.Errorf("%w: %s [%#v]", errs.ErrUnencodableValue, name, v)
	}

	buf.WriteString(name)
	buf.WriteByte(' ')
	buf.WriteString(value)
	buf.WriteByte('\n')

	return nil
}

func legacyValue(key string, v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if _, isInt := typedLegacyValue(key, val).(int); isInt {
			return "", false
		}

		return val, true
	case int:
		return strconv.Itoa(val), intKeys[key]
	default:
		return "", false
	}
}

// DecodeLegacy parses a pre-4.1 .irodsEnv file. Lines that don't start with a
// known legacy name are ignored. Numeric settings become ints.
func DecodeLegacy(r io.Reader) (Config, error) {
	c := make(Config)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimLeft(strings.TrimRight(scanner.Text(), "\r"), " \t")

		name, value, _ := strings.Cut(line, " ")

		key, ok := modernNames[name]
		if !ok {
			continue
		}

		c[key] = typedLegacyValue(key, strings.TrimSpace(value))
	}

	return c, scanner.Err()
}

// ParseSetting parses a key=value setting, as given on a command line.
// Numeric settings get int values.
func ParseSetting(s string) (string, any, error) {
	key, value, found := strings.Cut(s, "=")

	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", nil, fmt.Errorf("setting [%s] is not of the form key=value", s) //nolint:err113
	}

	return key, typedLegacyValue(key, value), nil
}

func typedLegacyValue(key, value string) any {
	if !intKeys[key] {
		return value
	}

	if i, err := strconv.Atoi(value); err == nil {
		return i
	}

	return value
}

// WriteFiles writes c to jsonPath as JSON and, depending on mode, to
// legacyPath in the legacy format. Both encodings are made before anything is
// written. Returns the names of settings left out of the legacy file.
func WriteFiles(c Config, jsonPath, legacyPath string, mode LegacyMode) ([]string, error) {
	jsonData, err := EncodeJSON(c)
	if err != nil {
		return nil, err
	}

	var (
		legacyData []byte
		skipped    []string
	)

	switch mode {
	case LegacyRequired:
		legacyData, err = EncodeLegacy(c)
	case LegacyMapped:
		legacyData, skipped, err = EncodeLegacyMapped(c)
	case LegacyOff:
	}

	if err != nil {
		return skipped, err
	}

	if err = writeAtomic(jsonPath, jsonData); err != nil {
		return skipped, err
	}

	if mode == LegacyOff {
		return skipped, nil
	}

	return skipped, writeAtomic(legacyPath, legacyData)
}

// writeAtomic writes data to a temp file next to path, then renames it into
// place.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	tmp := f.Name()

	if _, err = f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)

		return err
	}

	if err = f.Chmod(filePerms); err == nil {
		err = f.Close()
	} else {
		f.Close()
	}

	if err != nil {
		os.Remove(tmp)

		return err
	}

	return os.Rename(tmp, path)
}

// LoadJSON reads an irods_environment.json file.
func LoadJSON(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeJSON(f)
}

// LoadLegacy reads a .irodsEnv file.
func LoadLegacy(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeLegacy(f)
}

// UpdateJSONFile sets the settings in update on the JSON environment file at
// path, keeping its other settings.
func UpdateJSONFile(path string, update Config) error {
	c, err := LoadJSON(path)
	if err != nil {
		return err
	}

	c.Update(update)

	data, err := EncodeJSON(c)
	if err != nil {
		return err
	}

	return writeAtomic(path, data)
}
