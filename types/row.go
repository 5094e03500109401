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


package types

import (
	"bytes"
	"encoding/json"
)

// RowInfoKey is the JSON key of the merge metadata of a row.
const RowInfoKey = "MultiDB-RowInfo"

// RowInfo is the merge metadata attached to a row fetched by a broadcast.
type RowInfo struct {
	// Database is the logical name of the connection the row came from.
	Database string `json:"DatabaseFetchedFrom"`
	// ColumnCount is the column count of the row before tagging.
	ColumnCount int `json:"ColumnCount"`
}

// Row is a fetched row: column name to value, in select order.
type Row struct {
	Columns []string
	Values  map[string]Value
	Info    *RowInfo
}

// NewRow builds a row from the column names and the scanned driver values.
func NewRow(columns []string, values []interface{}) *Row {
	r := &Row{
		Columns: make([]string, 0, len(columns)),
		Values:  make(map[string]Value, len(columns)),
	}
	for i, c := range columns {
		if _, dup := r.Values[c]; !dup {
			r.Columns = append(r.Columns, c)
		}
		// the last duplicate column wins, as associative fetches do
		if i < len(values) {
			r.Values[c] = NewValue(values[i])
		} else {
			r.Values[c] = Null()
		}
	}
	return r
}

// Get returns the value of column, NULL if the row has no such column.
func (r *Row) Get(column string) Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return Null()
}

// Has reports whether the row has column.
func (r *Row) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}

// Len returns the column count of the row, metadata excluded.
func (r *Row) Len() int {
	return len(r.Columns)
}

// Tagged returns a copy of the row carrying the origin metadata.
func (r *Row) Tagged(database string) *Row {
	return &Row{
		Columns: r.Columns,
		Values:  r.Values,
		Info: &RowInfo{
			Database:    database,
			ColumnCount: r.Len(),
		},
	}
}

// Map returns the row as column name to driver value.
func (r *Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Values))
	for c, v := range r.Values {
		m[c] = v.Interface()
	}
	return m
}

// MarshalJSON encodes the row as an object keeping the column order, with
// the metadata first.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(k string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		return nil
	}

	if r.Info != nil {
		if err := writeKey(RowInfoKey); err != nil {
			return nil, err
		}
		ib, err := json.Marshal(r.Info)
		if err != nil {
			return nil, err
		}
		buf.Write(ib)
	}
	for _, c := range r.Columns {
		if err := writeKey(c); err != nil {
			return nil, err
		}
		vb, err := r.Values[c].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
