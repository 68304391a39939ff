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

// package baton inspects the iRODS catalog out of band, using baton via
// extendo, so that tests can confirm what iCommands run through a session
// actually did.

package baton

import (
	"errors"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	ex "github.com/wtsi-npg/extendo/v2"
	logs "github.com/wtsi-npg/logshim"
	"github.com/wtsi-npg/logshim-zerolog/zlog"
)

const (
	extendoLogLevel  = logs.ErrorLevel
	extendoNotExist  = "does not exist"
	operationTimeout = 15 * time.Second
)

// ErrOperationTimeout is returned when baton takes too long to answer.
var ErrOperationTimeout = errors.New("iRODS operation timed out")

// Inspector answers questions about the catalog through a single baton
// client, connected as whoever the process's own iRODS environment names.
type Inspector struct {
	pool   *ex.ClientPool
	client *ex.Client
	mu     sync.Mutex
}

// NewInspector starts a baton client. If you don't have baton-do in your
// PATH, you'll get an error.
func NewInspector() (*Inspector, error) {
	setupExtendoLogger()

	if _, err := ex.FindBaton(); err != nil {
		return nil, err
	}

	params := ex.DefaultClientPoolParams
	params.MaxSize = 1
	pool := ex.NewClientPool(params, "")

	client, err := pool.Get()
	if err != nil {
		pool.Close()

		return nil, err
	}

	return &Inspector{pool: pool, client: client}, nil
}

// setupExtendoLogger installs the STDERR logger extendo needs to work.
func setupExtendoLogger() {
	logs.InstallLogger(zlog.New(zerolog.SyncWriter(os.Stderr), extendoLogLevel))
}

// timeoutOp runs op, returning ErrOperationTimeout if it doesn't finish in
// time.
func timeoutOp(op func() error) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- op()
	}()

	timer := time.NewTimer(operationTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		return ErrOperationTimeout
	}
}

func (i *Inspector) list(args ex.Args, item ex.RodsItem) (ex.RodsItem, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var it ex.RodsItem

	err := timeoutOp(func() error {
		var errl error

		it, errl = i.client.ListItem(args, item)

		return errl
	})
	if err != nil {
		if strings.Contains(err.Error(), extendoNotExist) {
			return it, false, nil
		}

		return it, false, err
	}

	return it, true, nil
}

// CollectionExists reports whether the given collection is in the catalog.
func (i *Inspector) CollectionExists(coll string) (bool, error) {
	_, exists, err := i.list(ex.Args{}, ex.RodsItem{IPath: coll})

	return exists, err
}

// ObjectExists reports whether the given data object is in the catalog.
func (i *Inspector) ObjectExists(obj string) (bool, error) {
	_, exists, err := i.list(ex.Args{}, objectItem(obj))

	return exists, err
}

// Metadata returns the AVUs on the given data object as a map. A missing
// object has no metadata.
func (i *Inspector) Metadata(obj string) (map[string]string, error) {
	it, _, err := i.list(ex.Args{AVU: true}, objectItem(obj))
	if err != nil {
		return nil, err
	}

	return avusToMap(it.IAVUs), nil
}

func objectItem(obj string) ex.RodsItem {
	return ex.RodsItem{IPath: path.Dir(obj), IName: path.Base(obj)}
}

func avusToMap(avus []ex.AVU) map[string]string {
	meta := make(map[string]string, len(avus))

	for _, avu := range avus {
		meta[avu.Attr] = avu.Value
	}

	return meta
}

// Close stops the client and closes its pool.
func (i *Inspector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()

	timeoutOp(func() error { //nolint:errcheck
		i.client.StopIgnoreError()

		return nil
	})

	i.pool.Close()
}
