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

package storage

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDSN(t *testing.T) {
	Convey("parse and format", t, func() {
		dsn, err := NewDSN("file:test.db?p2=v2&p1=v1")
		So(err, ShouldBeNil)
		So(dsn.GetFileName(), ShouldEqual, "test.db")
		So(dsn.Format(), ShouldEqual, "file:test.db?p1=v1&p2=v2")

		dsn.SetFileName("/dev/null")
		dsn.AddParam("key", "value")
		v, ok := dsn.GetParam("key")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, "value")

		dsn.AddParam("key", "")
		_, ok = dsn.GetParam("key")
		So(ok, ShouldBeFalse)
		So(dsn.Format(), ShouldEqual, "file:/dev/null?p1=v1&p2=v2")

		dsn, err = NewDSN("")
		So(err, ShouldBeNil)
		So(dsn.Format(), ShouldEqual, "file:")

		_, err = NewDSN("file:test.db?p1")
		So(err, ShouldNotBeNil)

		empty := &DSN{}
		empty.AddParam("cache", "shared")
		So(empty.Format(), ShouldEqual, "file:?cache=shared")
	})

	Convey("sqlite dsn with busy timeout", t, func() {
		s, err := SQLiteDSN("/tmp/a.db", 3*time.Second)
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "file:/tmp/a.db?_busy_timeout=3000")

		s, err = SQLiteDSN("file:/tmp/a.db?_busy_timeout=10&mode=rwc", 3*time.Second)
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "file:/tmp/a.db?_busy_timeout=10&mode=rwc")

		s, err = SQLiteDSN("a.db", 0)
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "file:a.db")
	})
}
