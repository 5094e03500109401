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
	"fmt"

	"github.com/CovenantSQL/multidb/metric"
	"github.com/CovenantSQL/multidb/utils/log"
)

// Target is a live database offered to a Router.
type Target struct {
	Name string
	DB   *sql.DB
}

// Router chooses the single database receiving an insert into table and
// returns its index in targets.
type Router interface {
	Route(ctx context.Context, targets []Target, table string) (int, error)
}

// LeastRowsRouter routes to the database whose table holds the fewest rows,
// the lowest index on ties. A database whose count probe fails is left out.
type LeastRowsRouter struct {
	Collector *metric.Collector
}

// Route implements Router. table is used verbatim in the probe query.
func (r *LeastRowsRouter) Route(ctx context.Context, targets []Target, table string) (int, error) {
	if len(targets) == 0 {
		return -1, ErrNoLiveConnection
	}

	var (
		counts  = make([]int64, len(targets))
		ok      = make([]bool, len(targets))
		probe   = fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		lastErr error
	)
	for i, t := range targets {
		if err := t.DB.QueryRowContext(ctx, probe).Scan(&counts[i]); err != nil {
			lastErr = err
			log.WithError(err).WithFields(log.Fields{
				"database": t.Name,
				"table":    table,
			}).Warning("row count probe failed, database excluded from insert")
			r.Collector.IncProbeFailure()
			continue
		}
		ok[i] = true
	}

	idx, found := pickLeast(counts, ok)
	if !found {
		return -1, &RouteError{Table: table, Err: lastErr}
	}

	log.WithFields(log.Fields{
		"database": targets[idx].Name,
		"rows":     counts[idx],
		"table":    table,
	}).Debug("insert routed")
	return idx, nil
}

// pickLeast returns the index of the smallest count among the ok ones, the
// first on ties.
func pickLeast(counts []int64, ok []bool) (idx int, found bool) {
	idx = -1
	for i, n := range counts {
		if i < len(ok) && !ok[i] {
			continue
		}
		if !found || n < counts[idx] {
			idx, found = i, true
		}
	}
	return
}
