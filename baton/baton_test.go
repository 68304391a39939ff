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

package baton

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/itest/expect"
	"github.com/wtsi-hgi/itest/icmd"
	"github.com/wtsi-hgi/itest/internal/testutil"
	ex "github.com/wtsi-npg/extendo/v2"
)

func TestHelpers(t *testing.T) {
	Convey("Data object paths become items in their collection", t, func() {
		So(objectItem("/zone/home/u/file.txt"), ShouldResemble,
			ex.RodsItem{IPath: "/zone/home/u", IName: "file.txt"})
	})

	Convey("AVUs become a map", t, func() {
		So(avusToMap(nil), ShouldBeEmpty)
		So(avusToMap([]ex.AVU{{Attr: "a", Value: "1"}, {Attr: "b", Value: "2"}}), ShouldResemble,
			map[string]string{"a": "1", "b": "2"})
	})
}

func TestInspector(t *testing.T) {
	live := testutil.NewLive(t)
	if live == nil {
		return
	}

	insp, err := NewInspector()
	if err != nil {
		t.Logf("NewInspector error: %s", err)
		SkipConvey("Skipping baton tests since couldn't find baton", t, func() {})

		return
	}

	defer insp.Close()

	ctx := context.Background()

	Convey("Given a live user session that manages data", t, func() {
		name := testutil.UniqueName(t, "itestbaton")

		s, err := live.Factory.MkUser(ctx, "rodsuser", name, "pw", live.Config.ICATHostname)
		So(err, ShouldBeNil)

		defer live.Factory.RmUser(ctx, name) //nolint:errcheck

		Convey("its collection can be seen in the catalog until it is closed", func() {
			exists, err := insp.CollectionExists(s.SessionCollection())
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)

			exists, err = insp.ObjectExists(s.SessionCollection() + "/nothing")
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)

			So(s.Close(ctx), ShouldBeNil)

			exists, err = insp.CollectionExists(s.SessionCollection())
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})

		Convey("files it puts are in the catalog", func() {
			local := filepath.Join(t.TempDir(), "file")
			So(os.WriteFile(local, []byte("data\n"), 0600), ShouldBeNil)

			_, err = s.Assert(ctx, icmd.New(icmd.IPut, local), expect.Nothing())
			So(err, ShouldBeNil)

			exists, err := insp.ObjectExists(s.SessionCollection() + "/file")
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)

			meta, err := insp.Metadata(s.SessionCollection() + "/file")
			So(err, ShouldBeNil)
			So(meta, ShouldBeEmpty)

			So(s.Close(ctx), ShouldBeNil)
		})
	})
}
