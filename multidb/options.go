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
	"time"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/metric"
)

type options struct {
	connectTimeout time.Duration
	ledgerTable    string
	maxIDAttempts  int
	closeOnFailure bool
	collector      *metric.Collector
	router         Router
}

// Option is a configuration option of Open.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		connectTimeout: conf.DefaultConnectTimeout,
		ledgerTable:    conf.DefaultLedgerTable,
		maxIDAttempts:  conf.DefaultMaxIDAttempts,
	}
}

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithLedgerTable sets the table holding claimed MDGUIDs.
func WithLedgerTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.ledgerTable = table
		}
	}
}

// WithMaxIDAttempts bounds the retries of GenerateID and GenerateRandomID.
func WithMaxIDAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIDAttempts = n
		}
	}
}

// WithCloseOnFailure tears the set down as soon as one database failed to
// connect. Failures are still reported.
func WithCloseOnFailure() Option {
	return func(o *options) {
		o.closeOnFailure = true
	}
}

// WithCollector records execution metrics on c.
func WithCollector(c *metric.Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithRouter replaces the insert router, LeastRowsRouter by default.
func WithRouter(r Router) Option {
	return func(o *options) {
		if r != nil {
			o.router = r
		}
	}
}

// ConfigOptions maps a loaded config to options.
func ConfigOptions(c *conf.Config) (opts []Option) {
	opts = []Option{
		WithConnectTimeout(c.ConnectTimeout),
		WithLedgerTable(c.LedgerTable),
		WithMaxIDAttempts(c.MaxIDAttempts),
	}
	if c.CloseOnFailure {
		opts = append(opts, WithCloseOnFailure())
	}
	return
}
