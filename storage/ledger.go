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
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gopkg.in/gorp.v2"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/utils/log"
)

// LedgerColumn is the single column of the ledger table.
const LedgerColumn = "MDGUID"

// LedgerColumnSize is the declared width of LedgerColumn.
const LedgerColumnSize = 364

const (
	mysqlDupEntry     = 1062
	pgUniqueViolation = "23505"
)

var (
	// ErrDuplicate is returned by Claim when the id is already in the ledger.
	ErrDuplicate = errors.New("ledger entry already exists")
	// ErrUnknownDialect defines unsupported driver kind for the ledger.
	ErrUnknownDialect = errors.New("no ledger dialect for driver")
)

type ledgerEntry struct {
	MDGUID string `db:"MDGUID"`
}

// Ledger is a table of claimed identifiers guarded by a unique constraint.
type Ledger struct {
	table string
	db    *sql.DB
	dbMap *gorp.DbMap
}

// Dialect returns the gorp dialect of a driver kind.
func Dialect(kind conf.DriverKind) (gorp.Dialect, error) {
	switch kind {
	case conf.SQLite:
		return gorp.SqliteDialect{}, nil
	case conf.MySQL:
		return gorp.MySQLDialect{Engine: "InnoDB", Encoding: "UTF8MB4"}, nil
	case conf.PostgreSQL:
		return gorp.PostgresDialect{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownDialect, "driver %q", kind)
	}
}

// OpenLedger binds a ledger table on db. The table is not created until Reset.
func OpenLedger(db *sql.DB, dialect gorp.Dialect, table string) (l *Ledger, err error) {
	if db == nil || dialect == nil || table == "" {
		err = errors.New("invalid ledger arguments")
		return
	}

	dbMap := &gorp.DbMap{Db: db, Dialect: dialect}
	t := dbMap.AddTableWithName(ledgerEntry{}, table)
	t.ColMap(LedgerColumn).SetMaxSize(LedgerColumnSize).SetNotNull(true).SetUnique(true)

	l = &Ledger{
		table: table,
		db:    db,
		dbMap: dbMap,
	}
	return
}

// Table returns the ledger table name.
func (l *Ledger) Table() string {
	return l.table
}

// Reset creates the ledger table if absent and removes every entry.
func (l *Ledger) Reset() (err error) {
	if err = l.dbMap.CreateTablesIfNotExists(); err != nil {
		err = errors.Wrapf(err, "create ledger table %s failed", l.table)
		return
	}
	if err = l.dbMap.TruncateTables(); err != nil {
		err = errors.Wrapf(err, "truncate ledger table %s failed", l.table)
		return
	}

	log.WithField("table", l.table).Info("ledger table reset")
	return
}

// Claim inserts id, returning ErrDuplicate if another claim holds it.
func (l *Ledger) Claim(ctx context.Context, id string) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if err = l.dbMap.Insert(&ledgerEntry{MDGUID: id}); err != nil {
		if IsUniqueViolation(err) {
			err = errors.Wrapf(ErrDuplicate, "claim %s", id)
		} else {
			err = errors.Wrapf(err, "claim %s failed", id)
		}
	}
	return
}

// Release deletes the given ids, ids not in the ledger are ignored.
func (l *Ledger) Release(ctx context.Context, ids []string) (err error) {
	if len(ids) == 0 {
		return
	}

	stmt, err := l.db.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		l.quotedTable(), l.dbMap.Dialect.QuoteField(LedgerColumn), l.dbMap.Dialect.BindVar(0)))
	if err != nil {
		err = errors.Wrap(err, "prepare ledger release failed")
		return
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.ExecContext(ctx, id); err != nil {
			err = errors.Wrapf(err, "release %s failed", id)
			return
		}
	}
	return
}

// Contains reports whether id is claimed.
func (l *Ledger) Contains(ctx context.Context, id string) (ok bool, err error) {
	var n int64
	err = l.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s",
		l.quotedTable(), l.dbMap.Dialect.QuoteField(LedgerColumn), l.dbMap.Dialect.BindVar(0)), id).Scan(&n)
	if err != nil {
		err = errors.Wrap(err, "query ledger failed")
		return
	}
	ok = n > 0
	return
}

// Count returns the number of claimed ids.
func (l *Ledger) Count() (n int64, err error) {
	n, err = l.dbMap.SelectInt(fmt.Sprintf("SELECT COUNT(*) FROM %s", l.quotedTable()))
	if err != nil {
		err = errors.Wrap(err, "count ledger failed")
	}
	return
}

func (l *Ledger) quotedTable() string {
	return l.dbMap.Dialect.QuotedTableForQuery("", l.table)
}

// IsUniqueViolation reports whether err is a unique constraint violation of
// any supported driver.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDupEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
