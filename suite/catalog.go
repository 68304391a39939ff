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
	"path"
	"strings"

	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/session"
)

// PAMPasswordNamespace is the grid configuration namespace for PAM password
// authentication.
const PAMPasswordNamespace = "authentication::pam_password"

var ErrVaultQuery = errors.New("iquest wrote to stderr")

// GridConfiguration returns the value of a grid configuration option.
func GridConfiguration(ctx context.Context, admin *session.Session, namespace, option string) (string, error) {
	res, err := admin.Assert(ctx, icmd.New(icmd.IAdmin, "get_grid_configuration", namespace, option), expect.Out())
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(res.Stdout), nil
}

// SetGridConfiguration sets a grid configuration option. Values may start
// with a dash.
func SetGridConfiguration(ctx context.Context, admin *session.Session, namespace, option, value string) error {
	_, err := admin.Assert(ctx,
		icmd.New(icmd.IAdmin, "set_grid_configuration", "--", namespace, option, value), expect.Nothing())

	return err
}

// VaultPath returns the vault path of the named resource.
func VaultPath(ctx context.Context, s *session.Session, resource string) (string, error) {
	res, err := s.Run(ctx, icmd.New(icmd.IQuest, "%s",
		"select RESC_VAULT_PATH where RESC_NAME = '"+resource+"'"))
	if err != nil {
		return "", err
	}

	if res.Stderr != "" {
		return "", fmt.Errorf("%w: %s", ErrVaultQuery, strings.TrimSpace(res.Stderr))
	}

	return strings.TrimRight(res.Stdout, "\n"), nil
}

// VaultSessionPath returns where the session's collection is stored in the
// vault of its default resource.
func VaultSessionPath(ctx context.Context, s *session.Session) (string, error) {
	vault, err := VaultPath(ctx, s, s.DefaultResource())
	if err != nil {
		return "", err
	}

	return path.Join(vault, "home", s.UserName(), s.ID()), nil
}
