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
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/guid"
	"github.com/CovenantSQL/multidb/storage"
	"github.com/CovenantSQL/multidb/utils/log"
)

const failureSeparator = " / "

type liveConn struct {
	db   *sql.DB
	name string
	kind conf.DriverKind
}

// ConnectionSet is an ordered set of live databases. Index i of the set is
// index i of every statement prepared on it.
type ConnectionSet struct {
	sync.Mutex
	opts      *options
	conns     []*liveConn
	failures  []string
	stmts     map[*MultiStatement]struct{}
	ledger    *storage.Ledger
	generator *guid.Generator
	closed    bool
}

// Open connects every descriptor in order. A database that cannot be reached
// is recorded as a failure and skipped. An empty descriptor list or an
// unsupported driver fails the whole call before any connection is made.
func Open(ctx context.Context, descriptors []conf.Descriptor, opts ...Option) (cs *ConnectionSet, err error) {
	if len(descriptors) == 0 {
		err = ErrNoDatabases
		return
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.router == nil {
		o.router = &LeastRowsRouter{Collector: o.collector}
	}

	kinds := make([]conf.DriverKind, len(descriptors))
	drivers := make([]string, len(descriptors))
	for i, d := range descriptors {
		if kinds[i], drivers[i], err = resolveDriver(d); err != nil {
			err = errors.Wrapf(err, "database #%d", i)
			return
		}
	}

	cs = &ConnectionSet{
		opts:  o,
		stmts: make(map[*MultiStatement]struct{}),
	}

	for i, d := range descriptors {
		db, cerr := connect(ctx, kinds[i], drivers[i], d, o)
		if cerr != nil {
			locator := Locator(d)
			log.WithError(cerr).WithField("locator", locator).Warning("connect database failed")
			o.collector.IncConnectFailure()
			cs.failures = append(cs.failures, locator)
			continue
		}
		cs.conns = append(cs.conns, &liveConn{db: db, name: d.Name, kind: kinds[i]})
	}

	log.WithFields(log.Fields{
		"live":   len(cs.conns),
		"failed": len(cs.failures),
	}).Info("database set opened")

	if o.closeOnFailure && len(cs.failures) > 0 {
		log.Warning("closing database set on connect failure")
		cs.Lock()
		if cerr := cs.teardown(); cerr != nil {
			log.WithError(cerr).Warning("teardown database set failed")
		}
		cs.Unlock()
		return
	}

	if len(cs.conns) > 0 {
		if err = cs.bootstrapLedger(); err != nil {
			_ = cs.Close()
			cs = nil
		}
	}
	return
}

// OpenConfig opens the databases of a loaded config.
func OpenConfig(ctx context.Context, c *conf.Config, opts ...Option) (*ConnectionSet, error) {
	return Open(ctx, c.Databases, append(ConfigOptions(c), opts...)...)
}

func connect(ctx context.Context, kind conf.DriverKind, driverName string, d conf.Descriptor, o *options) (
	db *sql.DB, err error) {
	dsn, err := dataSource(kind, d, o.connectTimeout)
	if err != nil {
		return
	}
	if db, err = sql.Open(driverName, dsn); err != nil {
		err = errors.Wrap(err, "open database failed")
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		db = nil
		err = errors.Wrap(err, "ping database failed")
	}
	return
}

func (cs *ConnectionSet) bootstrapLedger() (err error) {
	first := cs.conns[0]
	dialect, err := storage.Dialect(first.kind)
	if err != nil {
		return
	}
	if cs.ledger, err = storage.OpenLedger(first.db, dialect, cs.opts.ledgerTable); err != nil {
		return
	}
	if err = cs.ledger.Reset(); err != nil {
		return
	}
	cs.generator = guid.New(cs.ledger,
		guid.WithMaxAttempts(cs.opts.maxIDAttempts),
		guid.WithCollector(cs.opts.collector),
	)
	log.WithFields(log.Fields{
		"database": first.name,
		"table":    cs.opts.ledgerTable,
	}).Info("ledger ready")
	return
}

// HasErrors reports whether any database failed to connect.
func (cs *ConnectionSet) HasErrors() bool {
	cs.Lock()
	defer cs.Unlock()
	return len(cs.failures) > 0
}

// FailureSummary returns the locators of the failed databases joined by " / ".
func (cs *ConnectionSet) FailureSummary() string {
	cs.Lock()
	defer cs.Unlock()
	return strings.Join(cs.failures, failureSeparator)
}

// Failures returns the locators of the failed databases in configured order.
func (cs *ConnectionSet) Failures() []string {
	cs.Lock()
	defer cs.Unlock()
	return append([]string(nil), cs.failures...)
}

// DatabaseNames returns the names of the live databases in set order.
func (cs *ConnectionSet) DatabaseNames() []string {
	cs.Lock()
	defer cs.Unlock()
	names := make([]string, len(cs.conns))
	for i, c := range cs.conns {
		names[i] = c.name
	}
	return names
}

// Len returns the live database count.
func (cs *ConnectionSet) Len() int {
	cs.Lock()
	defer cs.Unlock()
	return len(cs.conns)
}

func (cs *ConnectionSet) checkOpen() error {
	cs.Lock()
	defer cs.Unlock()
	if cs.closed {
		return ErrClosed
	}
	return nil
}

func (cs *ConnectionSet) targets() []Target {
	cs.Lock()
	defer cs.Unlock()
	targets := make([]Target, len(cs.conns))
	for i, c := range cs.conns {
		targets[i] = Target{Name: c.name, DB: c.db}
	}
	return targets
}

// GenerateID claims a new MDGUID in the ledger. It stays claimed until
// ReleaseIDs or Close.
func (cs *ConnectionSet) GenerateID(ctx context.Context) (id string, err error) {
	g, err := cs.idGenerator()
	if err != nil {
		return
	}
	return g.Generate(ctx)
}

// ReleaseIDs removes every MDGUID claimed by this set from the ledger.
func (cs *ConnectionSet) ReleaseIDs(ctx context.Context) (err error) {
	g, err := cs.idGenerator()
	if err != nil {
		return
	}
	return g.Release(ctx)
}

// AllocatedIDs returns the MDGUIDs currently claimed by this set.
func (cs *ConnectionSet) AllocatedIDs() []string {
	g, err := cs.idGenerator()
	if err != nil {
		return nil
	}
	return g.Allocated()
}

func (cs *ConnectionSet) idGenerator() (*guid.Generator, error) {
	cs.Lock()
	defer cs.Unlock()
	if cs.closed {
		return nil, ErrClosed
	}
	if cs.generator == nil {
		return nil, ErrNoLiveConnection
	}
	return cs.generator, nil
}

func (cs *ConnectionSet) track(s *MultiStatement) error {
	cs.Lock()
	defer cs.Unlock()
	if cs.closed {
		return ErrClosed
	}
	cs.stmts[s] = struct{}{}
	return nil
}

func (cs *ConnectionSet) forget(s *MultiStatement) {
	cs.Lock()
	defer cs.Unlock()
	delete(cs.stmts, s)
}

// Close releases the claimed MDGUIDs, then closes every statement and
// database. Every later operation returns ErrClosed.
func (cs *ConnectionSet) Close() (err error) {
	cs.Lock()
	defer cs.Unlock()
	if cs.closed {
		return
	}
	err = cs.teardown()
	cs.failures = nil
	return
}

// teardown must be called with the lock held.
func (cs *ConnectionSet) teardown() error {
	var errs []error

	// ids go first, the ledger lives on the first database
	if cs.generator != nil {
		if err := cs.generator.Release(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	for s := range cs.stmts {
		if err := s.closeStatements(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range cs.conns {
		if err := c.db.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close database %s failed", c.name))
		}
	}

	log.WithField("databases", len(cs.conns)).Info("database set closed")

	cs.conns = nil
	cs.stmts = make(map[*MultiStatement]struct{})
	cs.generator = nil
	cs.ledger = nil
	cs.closed = true

	if len(errs) > 0 {
		return &CloseError{Errs: errs}
	}
	return nil
}
