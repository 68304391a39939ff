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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/ienv"
)

const (
	// DefaultSSLBits is the key and DH parameter size used by default.
	DefaultSSLBits = 2048

	sslCertDays = "365"
)

// SSLFiles are the paths of a generated key, self-signed certificate chain
// and DH parameters.
type SSLFiles struct {
	Key      string
	Chain    string
	DHParams string
}

// GenerateSSLFiles uses openssl to make server.key, chain.pem and
// dhparams.pem in dir, with keys of the given number of bits.
func GenerateSSLFiles(ctx context.Context, dir string, bits int) (*SSLFiles, error) {
	if bits <= 0 {
		bits = DefaultSSLBits
	}

	files := &SSLFiles{
		Key:      filepath.Join(dir, "server.key"),
		Chain:    filepath.Join(dir, "chain.pem"),
		DHParams: filepath.Join(dir, "dhparams.pem"),
	}

	for _, argv := range [][]string{
		{"openssl", "genrsa", "-out", files.Key, strconv.Itoa(bits)},
		{"openssl", "req", "-batch", "-new", "-x509", "-key", files.Key, "-out", files.Chain, "-days", sslCertDays},
		{"openssl", "dhparam", "-2", "-out", files.DHParams, strconv.Itoa(bits)},
	} {
		res, err := icmd.Run(ctx, icmd.Invocation{Argv: argv})
		if err != nil {
			return nil, err
		}

		if !res.OK() {
			return nil, fmt.Errorf("%s %s failed [%d]: %s", argv[0], argv[1], res.Code, res.Stderr)
		}
	}

	return files, nil
}

// ClientEnvironment returns the settings a client needs to require SSL
// using these files, with the chain as the CA certificate.
func (f *SSLFiles) ClientEnvironment() ienv.Config {
	return ienv.SSLClientEnvironment(f.Key, f.Chain, f.DHParams, "")
}

// Remove deletes any of the files that exist.
func (f *SSLFiles) Remove() error {
	var errs []error

	for _, path := range []string{f.Key, f.Chain, f.DHParams} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
