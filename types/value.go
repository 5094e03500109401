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

// Package types defines the row and column value types merged by multidb.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind tags the dynamic type of a column value.
type Kind int

const (
	// KindNull is a SQL NULL.
	KindNull Kind = iota
	// KindInteger is a signed integer.
	KindInteger
	// KindFloat is a floating point number.
	KindFloat
	// KindText is a character string.
	KindText
	// KindBool is a boolean.
	KindBool
	// KindBytes is a raw byte string.
	KindBytes
	// KindTime is a timestamp.
	KindTime
	// KindOther is anything else a driver returned.
	KindOther
)

var kindStrMap = [...]string{
	"Null",
	"Integer",
	"Float",
	"Text",
	"Bool",
	"Bytes",
	"Time",
	"Other",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindStrMap) {
		return kindStrMap[k]
	}
	return "Unknown"
}

// Value is a tagged column value.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	raw  interface{}
}

// NewValue converts a value scanned from database/sql into a tagged Value.
func NewValue(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case int64:
		return Value{kind: KindInteger, i: x, raw: x}
	case int:
		return Value{kind: KindInteger, i: int64(x), raw: int64(x)}
	case int32:
		return Value{kind: KindInteger, i: int64(x), raw: int64(x)}
	case int16:
		return Value{kind: KindInteger, i: int64(x), raw: int64(x)}
	case int8:
		return Value{kind: KindInteger, i: int64(x), raw: int64(x)}
	case uint32:
		return Value{kind: KindInteger, i: int64(x), raw: int64(x)}
	case float64:
		return Value{kind: KindFloat, f: x, raw: x}
	case float32:
		return Value{kind: KindFloat, f: float64(x), raw: float64(x)}
	case string:
		return Value{kind: KindText, s: x, raw: x}
	case []byte:
		// drivers hand out reused buffers
		b := make([]byte, len(x))
		copy(b, x)
		return Value{kind: KindBytes, s: string(b), raw: b}
	case bool:
		return Value{kind: KindBool, raw: x}
	case time.Time:
		return Value{kind: KindTime, raw: x}
	default:
		return Value{kind: KindOther, raw: x}
	}
}

// Text returns a text value.
func Text(s string) Value {
	return NewValue(s)
}

// Int returns an integer value.
func Int(i int64) Value {
	return NewValue(i)
}

// Float returns a floating point value.
func Float(f float64) Value {
	return NewValue(f)
}

// Null returns a NULL value.
func Null() Value {
	return Value{kind: KindNull}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsNumeric reports whether the value is an integer or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

// Int64 returns the integer payload, truncating floats.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindFloat:
		return int64(v.f), true
	}
	return 0, false
}

// Float64 returns the numeric payload as a float64.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Interface returns the value as handed out by the driver, nil for NULL.
func (v Value) Interface() interface{} {
	return v.raw
}

// String renders the value as text: NULL is empty, booleans are "1" or
// empty, times use RFC3339Nano.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText, KindBytes:
		return v.s
	case KindBool:
		if v.raw.(bool) {
			return "1"
		}
		return ""
	case KindTime:
		return v.raw.(time.Time).Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.raw)
	}
}

// MarshalJSON encodes the driver value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInteger, KindFloat:
		return []byte(v.String()), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.raw.(bool))), nil
	default:
		return json.Marshal(v.String())
	}
}
