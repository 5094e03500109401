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
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoDatabases is returned by Open for an empty descriptor list.
	ErrNoDatabases = errors.New("no database to connect")
	// ErrUnsupportedDriver is returned by Open for an unknown or unregistered driver.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	// ErrNoLiveConnection indicates every database of the set failed to connect.
	ErrNoLiveConnection = errors.New("no live database connection")
	// ErrMissingTable is returned by ExecuteInsert without a table name.
	ErrMissingTable = errors.New("insert mode requires a table name")
	// ErrInvalidSortDirection is returned by SortBy for a direction other than ASC or DESC.
	ErrInvalidSortDirection = errors.New("invalid sort direction, use either ASC or DESC")
	// ErrInvalidLimit is returned by LimitTo for a negative offset or a limit below -1.
	ErrInvalidLimit = errors.New("invalid limit or offset")
	// ErrInvalidParameter is returned by Bind for a parameter that is neither a position nor a name.
	ErrInvalidParameter = errors.New("invalid bind parameter")
	// ErrClosed is returned by every operation of a closed set.
	ErrClosed = errors.New("database set is closed")
)

// ExecError reports the database a statement failed on.
type ExecError struct {
	Index    int
	Database string
	Err      error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute on database #%d (%s) failed: %v", e.Index, e.Database, e.Err)
}

// Cause returns the driver error.
func (e *ExecError) Cause() error { return e.Err }

// Unwrap returns the driver error.
func (e *ExecError) Unwrap() error { return e.Err }

// PrepareError reports the database a query could not be prepared on.
type PrepareError struct {
	Index    int
	Database string
	Err      error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare on database #%d (%s) failed: %v", e.Index, e.Database, e.Err)
}

// Cause returns the driver error.
func (e *PrepareError) Cause() error { return e.Err }

// Unwrap returns the driver error.
func (e *PrepareError) Unwrap() error { return e.Err }

// RouteError is returned when no database could be probed for an insert.
type RouteError struct {
	Table string
	Err   error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("no database could be probed for table %s: %v", e.Table, e.Err)
}

// Cause returns the last probe error.
func (e *RouteError) Cause() error { return e.Err }

// Unwrap returns the last probe error.
func (e *RouteError) Unwrap() error { return e.Err }

// CloseError holds every error met while closing a set.
type CloseError struct {
	Errs []error
}

func (e *CloseError) Error() string {
	es := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		es[i] = err.Error()
	}

	return fmt.Sprintf("failed to close %d resources: %s", len(e.Errs), strings.Join(es, ", "))
}
