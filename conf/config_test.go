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


package conf

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
MultiDB:
  Databases:
    - Driver: mysql
      Host: 127.0.0.1
      Name: users
      User: root
      Secret: pass
    - Driver: sqlite
      Name: /tmp/users-2.db
  ConnectTimeout: 5s
  CloseOnFailure: true
`

func TestLoadConfig(t *testing.T) {
	Convey("load config from file", t, func() {
		dir, err := ioutil.TempDir("", "multidb-conf-")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "config.yaml")
		So(ioutil.WriteFile(path, []byte(testConfig), 0600), ShouldBeNil)

		cfg, err := LoadConfig(path)
		So(err, ShouldBeNil)
		So(cfg.Databases, ShouldHaveLength, 2)
		So(cfg.Databases[0], ShouldResemble, Descriptor{
			Driver: "mysql",
			Host:   "127.0.0.1",
			Name:   "users",
			User:   "root",
			Secret: "pass",
		})
		So(cfg.ConnectTimeout, ShouldEqual, 5*time.Second)
		So(cfg.CloseOnFailure, ShouldBeTrue)
		So(cfg.LedgerTable, ShouldEqual, DefaultLedgerTable)
		So(cfg.MaxIDAttempts, ShouldEqual, DefaultMaxIDAttempts)
		So(cfg.LogLevel, ShouldEqual, "info")

		clone := cfg.Clone()
		So(clone, ShouldResemble, cfg)
		clone.Databases[0].Host = "changed"
		So(cfg.Databases[0].Host, ShouldEqual, "127.0.0.1")
	})

	Convey("missing file", t, func() {
		_, err := LoadConfig("/nonexistent/multidb.yaml")
		So(err, ShouldNotBeNil)
	})

	Convey("invalid configs", t, func() {
		_, err := ParseConfig([]byte("Other: {}"))
		So(errors.Cause(err), ShouldEqual, ErrInvalidConfig)

		_, err = ParseConfig([]byte("MultiDB: {Databases: []}"))
		So(errors.Cause(err), ShouldEqual, ErrInvalidConfig)

		_, err = ParseConfig([]byte("MultiDB: {Databases: [{Name: a}]}"))
		So(errors.Cause(err), ShouldEqual, ErrInvalidConfig)

		_, err = ParseConfig([]byte("MultiDB: {Databases: [{Driver: mysql}]}"))
		So(errors.Cause(err), ShouldEqual, ErrInvalidConfig)

		_, err = ParseConfig([]byte("MultiDB: ["))
		So(err, ShouldNotBeNil)
	})

	Convey("driver kinds", t, func() {
		for in, want := range map[string]DriverKind{
			"mysql":    MySQL,
			"SQLite3":  SQLite,
			" pgsql ":  PostgreSQL,
			"postgres": PostgreSQL,
		} {
			kind, ok := ParseDriverKind(in)
			So(ok, ShouldBeTrue)
			So(kind, ShouldEqual, want)
		}
		_, ok := ParseDriverKind("oracle")
		So(ok, ShouldBeFalse)
	})
}
