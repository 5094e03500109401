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
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/types"
)

const (
	// SortAsc sorts in non-decreasing order.
	SortAsc = "ASC"
	// SortDesc sorts in non-increasing order.
	SortDesc = "DESC"
)

// ResultSet is the row buffer filled by an execution, in database order
// then fetch order.
type ResultSet struct {
	rows []*types.Row
}

// RowCount returns the buffered row count.
func (rs *ResultSet) RowCount() int {
	return len(rs.rows)
}

// AllRows returns the buffered rows without consuming them.
func (rs *ResultSet) AllRows() []*types.Row {
	return append([]*types.Row(nil), rs.rows...)
}

// NextRow removes and returns the first buffered row, ok is false once the
// buffer is empty.
func (rs *ResultSet) NextRow() (row *types.Row, ok bool) {
	if len(rs.rows) == 0 {
		return
	}
	row, ok = rs.rows[0], true
	rs.rows[0] = nil
	rs.rows = rs.rows[1:]
	return
}

// LimitTo keeps the window [offset, offset+limit) of the buffer when it holds
// more than limit rows; limit -1 keeps everything from offset on. A buffer of
// limit rows or fewer is left as is.
func (rs *ResultSet) LimitTo(limit, offset int) error {
	if limit < -1 || offset < 0 {
		return errors.Wrapf(ErrInvalidLimit, "limit %d offset %d", limit, offset)
	}
	if limit != -1 && len(rs.rows) <= limit {
		return nil
	}

	start := offset
	if start > len(rs.rows) {
		start = len(rs.rows)
	}
	end := len(rs.rows)
	if limit != -1 && start+limit < end {
		end = start + limit
	}

	rs.rows = append([]*types.Row(nil), rs.rows[start:end]...)
	return nil
}

type sortEntry struct {
	row *types.Row
	val types.Value
	key string
}

// SortBy stably sorts the buffer on column. The comparison follows the kind
// of the first row's value: numeric values compare as numbers, anything else
// compares every row's value as text, byte-wise.
func (rs *ResultSet) SortBy(column, direction string) error {
	if direction != SortAsc && direction != SortDesc {
		return errors.Wrapf(ErrInvalidSortDirection, "%q", direction)
	}
	if len(rs.rows) == 0 {
		return nil
	}

	entries := make([]sortEntry, len(rs.rows))
	for i, r := range rs.rows {
		entries[i] = sortEntry{row: r, val: r.Get(column)}
	}

	var cmp func(a, b *sortEntry) int
	if rs.rows[0].Get(column).IsNumeric() {
		cmp = compareNumeric
	} else {
		for i := range entries {
			entries[i].key = entries[i].val.String()
		}
		cmp = func(a, b *sortEntry) int { return strings.Compare(a.key, b.key) }
	}

	desc := direction == SortDesc
	sort.SliceStable(entries, func(i, j int) bool {
		c := cmp(&entries[i], &entries[j])
		if desc {
			return c > 0
		}
		return c < 0
	})

	for i := range entries {
		rs.rows[i] = entries[i].row
	}
	return nil
}

// compareNumeric orders non-numeric values before numbers.
func compareNumeric(a, b *sortEntry) int {
	an, bn := a.val.IsNumeric(), b.val.IsNumeric()
	switch {
	case !an && !bn:
		return 0
	case !an:
		return -1
	case !bn:
		return 1
	}

	if a.val.Kind() == types.KindInteger && b.val.Kind() == types.KindInteger {
		ai, _ := a.val.Int64()
		bi, _ := b.val.Int64()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}

	af, _ := a.val.Float64()
	bf, _ := b.val.Float64()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}
