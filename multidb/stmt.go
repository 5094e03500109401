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
	"database/sql"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/metric"
	"github.com/CovenantSQL/multidb/types"
	"github.com/CovenantSQL/multidb/utils/log"
)

// MultiStatement is a query prepared on every live database of a set. Bound
// arguments apply to every database alike. It is not safe for concurrent use.
type MultiStatement struct {
	*ResultSet

	set        *ConnectionSet
	query      string
	stmts      []*sql.Stmt
	names      []string
	positional map[int]interface{}
	named      map[string]interface{}

	succeeded        bool
	lastInsertTarget int
}

// Prepare prepares query on every live database in set order. If any
// database rejects it, the statements already prepared are closed.
func (cs *ConnectionSet) Prepare(ctx context.Context, query string) (*MultiStatement, error) {
	return cs.prepare(ctx, query, func(conf.DriverKind) string { return query })
}

func (cs *ConnectionSet) prepare(ctx context.Context, query string, queryFor func(conf.DriverKind) string) (
	s *MultiStatement, err error) {
	if err = cs.checkOpen(); err != nil {
		return
	}

	cs.Lock()
	conns := append([]*liveConn(nil), cs.conns...)
	cs.Unlock()

	if len(conns) == 0 {
		err = ErrNoLiveConnection
		return
	}

	s = &MultiStatement{
		ResultSet:        &ResultSet{},
		set:              cs,
		query:            query,
		stmts:            make([]*sql.Stmt, 0, len(conns)),
		names:            make([]string, 0, len(conns)),
		positional:       make(map[int]interface{}),
		named:            make(map[string]interface{}),
		lastInsertTarget: -1,
	}

	for i, c := range conns {
		var stmt *sql.Stmt
		if stmt, err = c.db.PrepareContext(ctx, queryFor(c.kind)); err != nil {
			_ = s.closeStatements()
			err = &PrepareError{Index: i, Database: c.name, Err: err}
			s = nil
			return
		}
		s.stmts = append(s.stmts, stmt)
		s.names = append(s.names, c.name)
	}

	if err = cs.track(s); err != nil {
		_ = s.closeStatements()
		s = nil
	}
	return
}

// Query returns the query text of the statement.
func (s *MultiStatement) Query() string {
	return s.query
}

// Bind binds value to a parameter of every database statement. param is a
// 1-based position (int) or a name (string) with an optional ':', '@' or '$'
// prefix. Binding a parameter again replaces its value.
func (s *MultiStatement) Bind(param interface{}, value interface{}) error {
	switch p := param.(type) {
	case int:
		if p < 1 {
			return errors.Wrapf(ErrInvalidParameter, "position %d", p)
		}
		s.positional[p] = value
	case string:
		name := strings.TrimLeft(p, ":@$")
		if name == "" {
			return errors.Wrapf(ErrInvalidParameter, "name %q", p)
		}
		s.named[name] = value
	default:
		return errors.Wrapf(ErrInvalidParameter, "type %T", param)
	}
	return nil
}

// BindValues binds every name of values.
func (s *MultiStatement) BindValues(values map[string]interface{}) error {
	for name, v := range values {
		if err := s.Bind(name, v); err != nil {
			return err
		}
	}
	return nil
}

// BindPositional binds values to positions 1 to len(values).
func (s *MultiStatement) BindPositional(values ...interface{}) {
	for i, v := range values {
		s.positional[i+1] = v
	}
}

// ClearBindings removes every bound value.
func (s *MultiStatement) ClearBindings() {
	s.positional = make(map[int]interface{})
	s.named = make(map[string]interface{})
}

func (s *MultiStatement) args() (args []interface{}) {
	maxPos := 0
	for p := range s.positional {
		if p > maxPos {
			maxPos = p
		}
	}
	args = make([]interface{}, 0, maxPos+len(s.named))
	for p := 1; p <= maxPos; p++ {
		args = append(args, s.positional[p])
	}

	names := make([]string, 0, len(s.named))
	for name := range s.named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, sql.Named(name, s.named[name]))
	}
	return
}

// Execute runs the statement on every database in set order and merges the
// fetched rows, each tagged with its database. It stops at the first
// database that fails: rows of that database and of the ones after it are
// not merged, and the error is an *ExecError.
func (s *MultiStatement) Execute(ctx context.Context) (err error) {
	if err = s.set.checkOpen(); err != nil {
		return
	}
	s.reset()

	var (
		collector = s.set.opts.collector
		args      = s.args()
	)
	for i, stmt := range s.stmts {
		var rows []*types.Row
		if rows, err = fetchAll(ctx, stmt, args); err != nil {
			err = &ExecError{Index: i, Database: s.names[i], Err: err}
			log.WithError(err).WithFields(log.Fields{
				"database": s.names[i],
				"skipped":  len(s.stmts) - i - 1,
			}).Warning("broadcast stopped at failing database")
			collector.IncFailFast()
			collector.ObserveExecution(metric.ModeBroadcast, false)
			return
		}

		for _, r := range rows {
			s.ResultSet.rows = append(s.ResultSet.rows, r.Tagged(s.names[i]))
		}
		collector.AddMergedRows(len(rows))
	}

	s.succeeded = true
	collector.ObserveExecution(metric.ModeBroadcast, true)
	return
}

// ExecuteInsert runs the statement once, on the database chosen by the set's
// router for table. No rows are fetched.
func (s *MultiStatement) ExecuteInsert(ctx context.Context, table string) (err error) {
	if table == "" {
		return ErrMissingTable
	}
	if err = s.set.checkOpen(); err != nil {
		return
	}
	s.reset()

	collector := s.set.opts.collector
	idx, err := s.set.opts.router.Route(ctx, s.set.targets(), table)
	if err != nil {
		collector.ObserveExecution(metric.ModeInsert, false)
		return
	}
	if idx < 0 || idx >= len(s.stmts) {
		collector.ObserveExecution(metric.ModeInsert, false)
		return errors.Errorf("router chose database #%d of %d", idx, len(s.stmts))
	}

	s.lastInsertTarget = idx
	if _, err = s.stmts[idx].ExecContext(ctx, s.args()...); err != nil {
		err = &ExecError{Index: idx, Database: s.names[idx], Err: err}
		collector.ObserveExecution(metric.ModeInsert, false)
		return
	}

	log.WithFields(log.Fields{
		"database": s.names[idx],
		"table":    table,
	}).Debug("insert executed")
	s.succeeded = true
	collector.ObserveExecution(metric.ModeInsert, true)
	return
}

// Succeeded reports whether the last execution succeeded.
func (s *MultiStatement) Succeeded() bool {
	return s.succeeded
}

// LastInsertTarget returns the index of the database of the last
// ExecuteInsert, -1 before any.
func (s *MultiStatement) LastInsertTarget() int {
	return s.lastInsertTarget
}

func (s *MultiStatement) reset() {
	s.ResultSet.rows = nil
	s.succeeded = false
}

// Close closes the statement on every database.
func (s *MultiStatement) Close() error {
	s.set.forget(s)
	return s.closeStatements()
}

func (s *MultiStatement) closeStatements() error {
	var errs []error
	for i, stmt := range s.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close statement on %s failed", s.names[i]))
		}
	}
	if len(errs) > 0 {
		return &CloseError{Errs: errs}
	}
	return nil
}

func fetchAll(ctx context.Context, stmt *sql.Stmt, args []interface{}) (result []*types.Row, err error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, err
		}
		result = append(result, types.NewRow(columns, values))
	}

	if err = rows.Err(); err != nil {
		result = nil
	}
	return
}
