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

package multidb

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/CovenantSQL/multidb/types"
)

func intRows(column string, values ...int64) *ResultSet {
	rs := &ResultSet{}
	for i, v := range values {
		rs.rows = append(rs.rows, types.NewRow([]string{"pos", column}, []interface{}{int64(i), v}))
	}
	return rs
}

func textRows(column string, values ...string) *ResultSet {
	rs := &ResultSet{}
	for i, v := range values {
		rs.rows = append(rs.rows, types.NewRow([]string{"pos", column}, []interface{}{int64(i), v}))
	}
	return rs
}

func positions(rs *ResultSet) (pos []int64) {
	for _, r := range rs.AllRows() {
		p, _ := r.Get("pos").Int64()
		pos = append(pos, p)
	}
	return
}

func valuesOf(rs *ResultSet, name string) (vals []string) {
	for _, r := range rs.AllRows() {
		vals = append(vals, r.Get(name).String())
	}
	return
}

func TestResultSetSortBy(t *testing.T) {
	Convey("integers sort numerically", t, func() {
		rs := intRows("age", 30, 10, 20)
		So(rs.SortBy("age", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "age"), ShouldResemble, []string{"10", "20", "30"})
		So(rs.SortBy("age", SortDesc), ShouldBeNil)
		So(valuesOf(rs, "age"), ShouldResemble, []string{"30", "20", "10"})
	})

	Convey("numbers are not compared as text", t, func() {
		rs := intRows("n", 100, 9, 25)
		So(rs.SortBy("n", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "n"), ShouldResemble, []string{"9", "25", "100"})
	})

	Convey("text sorts byte-wise", t, func() {
		rs := textRows("name", "b", "a", "c")
		So(rs.SortBy("name", SortDesc), ShouldBeNil)
		So(valuesOf(rs, "name"), ShouldResemble, []string{"c", "b", "a"})
		So(rs.SortBy("name", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "name"), ShouldResemble, []string{"a", "b", "c"})

		rs = textRows("name", "b", "B", "a")
		So(rs.SortBy("name", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "name"), ShouldResemble, []string{"B", "a", "b"})
	})

	Convey("text comparator applies when the first row is text", t, func() {
		rs := &ResultSet{rows: []*types.Row{
			types.NewRow([]string{"v"}, []interface{}{"10"}),
			types.NewRow([]string{"v"}, []interface{}{int64(9)}),
			types.NewRow([]string{"v"}, []interface{}{nil}),
		}}
		So(rs.SortBy("v", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "v"), ShouldResemble, []string{"", "10", "9"})
	})

	Convey("mixed numerics compare as numbers, non-numerics first", t, func() {
		rs := &ResultSet{rows: []*types.Row{
			types.NewRow([]string{"v"}, []interface{}{int64(3)}),
			types.NewRow([]string{"v"}, []interface{}{2.5}),
			types.NewRow([]string{"v"}, []interface{}{nil}),
			types.NewRow([]string{"v"}, []interface{}{int64(1)}),
		}}
		So(rs.SortBy("v", SortAsc), ShouldBeNil)
		So(valuesOf(rs, "v"), ShouldResemble, []string{"", "1", "2.5", "3"})
	})

	Convey("sort is stable in both directions", t, func() {
		rs := intRows("k", 1, 0, 1, 0)
		So(rs.SortBy("k", SortAsc), ShouldBeNil)
		So(positions(rs), ShouldResemble, []int64{1, 3, 0, 2})

		rs = intRows("k", 1, 0, 1, 0)
		So(rs.SortBy("k", SortDesc), ShouldBeNil)
		So(positions(rs), ShouldResemble, []int64{0, 2, 1, 3})
	})

	Convey("invalid direction leaves the buffer untouched", t, func() {
		rs := intRows("age", 30, 10, 20)
		err := rs.SortBy("age", "SIDEWAYS")
		So(errors.Cause(err), ShouldEqual, ErrInvalidSortDirection)
		So(positions(rs), ShouldResemble, []int64{0, 1, 2})
		So(errors.Cause(rs.SortBy("age", "asc")), ShouldEqual, ErrInvalidSortDirection)
	})

	Convey("empty buffer is a no-op", t, func() {
		rs := &ResultSet{}
		So(rs.SortBy("age", SortAsc), ShouldBeNil)
		So(rs.RowCount(), ShouldEqual, 0)
	})
}

func TestResultSetLimitTo(t *testing.T) {
	Convey("Given a 5 row buffer", t, func() {
		rs := intRows("v", 0, 1, 2, 3, 4)

		Convey("a window keeps limit rows from offset", func() {
			So(rs.LimitTo(2, 1), ShouldBeNil)
			So(positions(rs), ShouldResemble, []int64{1, 2})
		})

		Convey("limit -1 keeps everything from offset", func() {
			So(rs.LimitTo(-1, 2), ShouldBeNil)
			So(positions(rs), ShouldResemble, []int64{2, 3, 4})
		})

		Convey("a limit equal to the row count leaves the buffer untouched", func() {
			So(rs.LimitTo(5, 3), ShouldBeNil)
			So(positions(rs), ShouldResemble, []int64{0, 1, 2, 3, 4})
		})

		Convey("a limit above the row count leaves the buffer untouched", func() {
			So(rs.LimitTo(10, 2), ShouldBeNil)
			So(rs.RowCount(), ShouldEqual, 5)
		})

		Convey("windows are clamped to the buffer", func() {
			So(rs.LimitTo(3, 4), ShouldBeNil)
			So(positions(rs), ShouldResemble, []int64{4})

			rs = intRows("v", 0, 1, 2, 3, 4)
			So(rs.LimitTo(1, 9), ShouldBeNil)
			So(rs.RowCount(), ShouldEqual, 0)

			rs = intRows("v", 0, 1, 2, 3, 4)
			So(rs.LimitTo(0, 0), ShouldBeNil)
			So(rs.RowCount(), ShouldEqual, 0)
		})

		Convey("invalid arguments are rejected", func() {
			So(errors.Cause(rs.LimitTo(-2, 0)), ShouldEqual, ErrInvalidLimit)
			So(errors.Cause(rs.LimitTo(2, -1)), ShouldEqual, ErrInvalidLimit)
			So(rs.RowCount(), ShouldEqual, 5)
		})
	})
}

func TestResultSetNextRow(t *testing.T) {
	Convey("rows are popped in order", t, func() {
		rs := intRows("v", 7, 8)
		all := rs.AllRows()
		So(all, ShouldHaveLength, 2)

		r, ok := rs.NextRow()
		So(ok, ShouldBeTrue)
		So(r, ShouldEqual, all[0])
		So(rs.RowCount(), ShouldEqual, 1)

		r, ok = rs.NextRow()
		So(ok, ShouldBeTrue)
		So(r, ShouldEqual, all[1])

		r, ok = rs.NextRow()
		So(ok, ShouldBeFalse)
		So(r, ShouldBeNil)
		So(rs.RowCount(), ShouldEqual, 0)
	})

	Convey("AllRows returns a snapshot", t, func() {
		rs := intRows("v", 7, 8)
		all := rs.AllRows()
		all[0] = nil
		So(rs.AllRows()[0], ShouldNotBeNil)
	})
}
