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

// Package guid allocates MDGUIDs, identifiers unique across every process
// sharing a ledger table.
package guid

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/CovenantSQL/multidb/metric"
	"github.com/CovenantSQL/multidb/storage"
	"github.com/CovenantSQL/multidb/utils/log"
)

// DefaultMaxAttempts bounds the claims of a single Generate call.
const DefaultMaxAttempts = 16

const temporalHashSize = 16

// ErrTooManyCollisions is returned when every attempt of Generate collided.
var ErrTooManyCollisions = errors.New("too many id collisions")

// Ledger records claimed ids, Claim returns storage.ErrDuplicate for an id
// claimed before.
type Ledger interface {
	Claim(ctx context.Context, id string) error
	Release(ctx context.Context, ids []string) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts sets the claim attempts of Generate, values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithCandidate replaces the candidate id source.
func WithCandidate(f func() (string, error)) Option {
	return func(g *Generator) {
		if f != nil {
			g.candidate = f
		}
	}
}

// WithCollector counts collisions on c.
func WithCollector(c *metric.Collector) Option {
	return func(g *Generator) {
		g.collector = c
	}
}

// Generator claims ids in a ledger and remembers them until Release.
type Generator struct {
	sync.Mutex
	ledger      Ledger
	maxAttempts int
	candidate   func() (string, error)
	collector   *metric.Collector
	allocated   []string
}

// New returns a Generator claiming ids in ledger.
func New(ledger Ledger, opts ...Option) *Generator {
	g := &Generator{
		ledger:      ledger,
		maxAttempts: DefaultMaxAttempts,
		candidate:   NewCandidate,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewCandidate returns an unclaimed MDGUID candidate: the hex blake2b-128
// digest of the current time, a dash, and a random version 4 uuid.
func NewCandidate() (id string, err error) {
	var now [8]byte
	binary.BigEndian.PutUint64(now[:], uint64(time.Now().UnixNano()))

	h, err := blake2b.New(temporalHashSize, nil)
	if err != nil {
		return
	}
	_, _ = h.Write(now[:])

	u, err := uuid.NewV4()
	if err != nil {
		err = errors.Wrap(err, "generate uuid failed")
		return
	}

	id = hex.EncodeToString(h.Sum(nil)) + "-" + u.String()
	return
}

// Generate claims a new id. A candidate already in the ledger is retried
// with a fresh one, any other ledger error is returned.
func (g *Generator) Generate(ctx context.Context) (id string, err error) {
	g.Lock()
	defer g.Unlock()

	for i := 0; i < g.maxAttempts; i++ {
		if id, err = g.candidate(); err != nil {
			return "", err
		}

		err = g.ledger.Claim(ctx, id)
		if err == nil {
			g.allocated = append(g.allocated, id)
			return
		}
		if errors.Cause(err) != storage.ErrDuplicate {
			return "", errors.Wrap(err, "claim id failed")
		}

		log.WithFields(log.Fields{
			"id":      id,
			"attempt": i + 1,
		}).Debug("id collision")
		g.collector.IncIDCollision()
	}

	return "", errors.Wrapf(ErrTooManyCollisions, "%d attempts", g.maxAttempts)
}

// Allocated returns the ids claimed since the last Release.
func (g *Generator) Allocated() []string {
	g.Lock()
	defer g.Unlock()
	return append([]string(nil), g.allocated...)
}

// Release removes every allocated id from the ledger.
func (g *Generator) Release(ctx context.Context) (err error) {
	g.Lock()
	defer g.Unlock()

	if len(g.allocated) == 0 {
		return
	}
	if err = g.ledger.Release(ctx, g.allocated); err != nil {
		return errors.Wrap(err, "release ids failed")
	}

	log.WithField("count", len(g.allocated)).Debug("released ids")
	g.allocated = nil
	return
}
