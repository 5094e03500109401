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
	"context"
	"crypto/rand"
	"fmt"

	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/guid"
	"github.com/CovenantSQL/multidb/utils/log"
)

// DefaultRandomIDLength is the length of GenerateRandomID ids when none is given.
const DefaultRandomIDLength = 48

const randomIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// largest multiple of the alphabet size below 256, bytes above are redrawn
const randomIDByteLimit = 256 - 256%len(randomIDAlphabet)

func randomString(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random bytes failed")
		}
		for _, b := range buf {
			if int(b) >= randomIDByteLimit {
				continue
			}
			out = append(out, randomIDAlphabet[int(b)%len(randomIDAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

func placeholder(kind conf.DriverKind) string {
	if kind == conf.PostgreSQL {
		return "$1"
	}
	return "?"
}

// GenerateRandomID returns a random alphanumeric string of length runes not
// yet present in column of table on any database. column and table are used
// verbatim.
func (cs *ConnectionSet) GenerateRandomID(ctx context.Context, column, table string, length int) (id string, err error) {
	if length <= 0 {
		length = DefaultRandomIDLength
	}

	query := func(kind conf.DriverKind) string {
		return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", table, column, placeholder(kind))
	}
	stmt, err := cs.prepare(ctx, query(""), query)
	if err != nil {
		return
	}
	defer stmt.Close()

	for i := 0; i < cs.opts.maxIDAttempts; i++ {
		if id, err = randomString(length); err != nil {
			return "", err
		}
		stmt.BindPositional(id)
		if err = stmt.Execute(ctx); err != nil {
			return "", err
		}
		if stmt.RowCount() == 0 {
			return
		}
		log.WithFields(log.Fields{
			"table":   table,
			"attempt": i + 1,
		}).Debug("random id taken")
		cs.opts.collector.IncIDCollision()
	}

	return "", errors.Wrapf(guid.ErrTooManyCollisions, "%d attempts on %s.%s", cs.opts.maxIDAttempts, table, column)
}
