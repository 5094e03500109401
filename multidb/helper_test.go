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
	"database/sql"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/storage"
	"github.com/CovenantSQL/multidb/utils/log"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

func tempDir(c C) string {
	dir, err := ioutil.TempDir("", "multidb")
	c.So(err, ShouldBeNil)
	return dir
}

func sqliteDescriptor(dir, name string) conf.Descriptor {
	return conf.Descriptor{
		Driver: "sqlite",
		Host:   "localhost",
		Name:   filepath.Join(dir, name),
	}
}

func sqliteDescriptors(dir string, n int) (descs []conf.Descriptor) {
	for i := 0; i < n; i++ {
		descs = append(descs, sqliteDescriptor(dir, fmt.Sprintf("db%d.db", i)))
	}
	return
}

// brokenDescriptor points at a directory that does not exist.
func brokenDescriptor(dir, name string) conf.Descriptor {
	return sqliteDescriptor(filepath.Join(dir, "missing"), name)
}

func rawDB(c C, d conf.Descriptor) *sql.DB {
	dsn, err := storage.SQLiteDSN(d.Name, time.Second)
	c.So(err, ShouldBeNil)
	db, err := sql.Open("sqlite3", dsn)
	c.So(err, ShouldBeNil)
	return db
}

func execOn(c C, d conf.Descriptor, query string, args ...interface{}) {
	db := rawDB(c, d)
	defer db.Close()
	_, err := db.Exec(query, args...)
	c.So(err, ShouldBeNil)
}

func countOn(c C, d conf.Descriptor, table string) (n int64) {
	db := rawDB(c, d)
	defer db.Close()
	c.So(db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n), ShouldBeNil)
	return
}

// fillItems creates table items(v) on d holding one row per value.
func fillItems(c C, d conf.Descriptor, values ...interface{}) {
	execOn(c, d, "CREATE TABLE IF NOT EXISTS items (v INTEGER)")
	for _, v := range values {
		execOn(c, d, "INSERT INTO items (v) VALUES (?)", v)
	}
}
