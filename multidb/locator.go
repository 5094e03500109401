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
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/xo/dburl"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/storage"
	"github.com/CovenantSQL/multidb/utils"
)

var driverNames = map[conf.DriverKind]string{
	conf.MySQL:      "mysql",
	conf.SQLite:     "sqlite3",
	conf.PostgreSQL: "pgx",
}

// Locator returns the diagnostic locator of a descriptor, credentials excluded.
func Locator(d conf.Descriptor) string {
	return fmt.Sprintf("%s:host=%s;dbname=%s;charset=utf8mb4", d.Driver, d.Host, d.Name)
}

func registered(driverName string) bool {
	for _, d := range sql.Drivers() {
		if d == driverName {
			return true
		}
	}
	return false
}

func resolveDriver(d conf.Descriptor) (kind conf.DriverKind, driverName string, err error) {
	var ok bool
	if kind, ok = conf.ParseDriverKind(d.Driver); !ok {
		err = errors.Wrapf(ErrUnsupportedDriver, "driver %q", d.Driver)
		return
	}
	if driverName = driverNames[kind]; !registered(driverName) {
		err = errors.Wrapf(ErrUnsupportedDriver, "driver %q is not registered", driverName)
	}
	return
}

func userinfo(d conf.Descriptor) *url.Userinfo {
	switch {
	case d.User == "":
		return nil
	case d.Secret == "":
		return url.User(d.User)
	default:
		return url.UserPassword(d.User, d.Secret)
	}
}

// dataSource returns the driver DSN of a descriptor.
func dataSource(kind conf.DriverKind, d conf.Descriptor, timeout time.Duration) (dsn string, err error) {
	var u *url.URL

	switch kind {
	case conf.SQLite:
		return storage.SQLiteDSN(utils.HomeDirExpand(d.Name), timeout)
	case conf.MySQL:
		q := url.Values{}
		q.Set("charset", "utf8mb4")
		q.Set("parseTime", "true")
		q.Set("timeout", timeout.String())
		u = &url.URL{Scheme: "mysql", User: userinfo(d), Host: d.Host, Path: "/" + d.Name, RawQuery: q.Encode()}
	case conf.PostgreSQL:
		secs := int(timeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(secs))
		u = &url.URL{Scheme: "postgres", User: userinfo(d), Host: d.Host, Path: "/" + d.Name, RawQuery: q.Encode()}
	default:
		err = errors.Wrapf(ErrUnsupportedDriver, "driver %q", kind)
		return
	}

	parsed, err := dburl.Parse(u.String())
	if err != nil {
		err = errors.Wrapf(err, "parse url of %s failed", Locator(d))
		return
	}
	dsn = parsed.DSN
	return
}
