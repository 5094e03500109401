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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/multidb"
	"github.com/CovenantSQL/multidb/types"
)

const (
	formatJSON = "json"
	formatDump = "dump"
)

type binding struct {
	param interface{}
	value interface{}
}

// bindFlags collects repeated -bind name=value flags.
type bindFlags []binding

func (b *bindFlags) String() string {
	parts := make([]string, len(*b))
	for i, v := range *b {
		parts[i] = fmt.Sprintf("%v=%v", v.param, v.value)
	}
	return strings.Join(parts, ",")
}

func (b *bindFlags) Set(s string) error {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || kv[0] == "" {
		return errors.Errorf("bind %q is not name=value", s)
	}

	var param interface{} = kv[0]
	if pos, err := strconv.Atoi(kv[0]); err == nil {
		param = pos
	}

	var value interface{} = kv[1]
	if i, err := strconv.ParseInt(kv[1], 10, 64); err == nil {
		value = i
	} else if f, err := strconv.ParseFloat(kv[1], 64); err == nil {
		value = f
	}

	*b = append(*b, binding{param: param, value: value})
	return nil
}

func (b bindFlags) apply(stmt *multidb.MultiStatement) error {
	for _, v := range b {
		if err := stmt.Bind(v.param, v.value); err != nil {
			return err
		}
	}
	return nil
}

func printRows(w io.Writer, format string, rows []*types.Row) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []*types.Row{}
		}
		return enc.Encode(rows)
	case formatDump:
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
		for _, r := range rows {
			m := r.Map()
			if r.Info != nil {
				m[types.RowInfoKey] = *r.Info
			}
			cfg.Fdump(w, m)
		}
		return nil
	default:
		return errors.Errorf("unknown format %q", format)
	}
}
