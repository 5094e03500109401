/*
 * Copyright 2019 The CovenantSQL Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CovenantSQL/multidb/types"
)

func TestBindFlags(t *testing.T) {
	Convey("bind flags parse names, positions and values", t, func() {
		var b bindFlags
		So(b.Set(":name=alice"), ShouldBeNil)
		So(b.Set("2=42"), ShouldBeNil)
		So(b.Set("ratio=0.5"), ShouldBeNil)
		So(b.Set("expr=a=b"), ShouldBeNil)
		So(b, ShouldResemble, bindFlags{
			{param: ":name", value: "alice"},
			{param: 2, value: int64(42)},
			{param: "ratio", value: 0.5},
			{param: "expr", value: "a=b"},
		})
		So(b.String(), ShouldEqual, ":name=alice,2=42,ratio=0.5,expr=a=b")

		So(b.Set("novalue"), ShouldNotBeNil)
		So(b.Set("=1"), ShouldNotBeNil)
	})
}

func TestPrintRows(t *testing.T) {
	rows := []*types.Row{
		types.NewRow([]string{"id", "name"}, []interface{}{int64(1), "alice"}).Tagged("db0"),
	}

	Convey("json output keeps the origin tag", t, func() {
		var buf bytes.Buffer
		So(printRows(&buf, formatJSON, rows), ShouldBeNil)

		var decoded []map[string]interface{}
		So(json.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
		So(decoded, ShouldHaveLength, 1)
		So(decoded[0]["name"], ShouldEqual, "alice")
		So(decoded[0][types.RowInfoKey], ShouldResemble, map[string]interface{}{
			"DatabaseFetchedFrom": "db0",
			"ColumnCount":         float64(2),
		})

		buf.Reset()
		So(printRows(&buf, formatJSON, nil), ShouldBeNil)
		So(buf.String(), ShouldEqual, "[]\n")
	})

	Convey("dump output lists every column", t, func() {
		var buf bytes.Buffer
		So(printRows(&buf, formatDump, rows), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "alice")
		So(buf.String(), ShouldContainSubstring, "db0")
	})

	Convey("unknown formats are rejected", t, func() {
		So(printRows(&bytes.Buffer{}, "xml", rows), ShouldNotBeNil)
	})
}
