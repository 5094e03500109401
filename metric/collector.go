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

package metric

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ModeBroadcast labels executions run on every connection.
	ModeBroadcast = "broadcast"
	// ModeInsert labels executions routed to a single connection.
	ModeInsert = "insert"
)

const (
	resultOK   = "ok"
	resultFail = "fail"
)

// statMetric provides description, value, and value type for a multidb stat metric.
type statMetric struct {
	desc    *prometheus.Desc
	eval    func(*Collector) float64
	valType prometheus.ValueType
}

type multiDBStatsMetrics []statMetric

type execKey struct {
	mode string
	ok   bool
}

// Collector counts fan-out activity. A nil *Collector is valid and records nothing.
type Collector struct {
	sync.RWMutex

	execs           map[execKey]int64
	connectFailures int64
	probeFailures   int64
	idCollisions    int64
	failFastStops   int64
	mergedRows      int64

	// metrics to describe and collect
	metrics multiDBStatsMetrics
}

func multiDBStatNamespace(s string) string {
	return fmt.Sprintf("multidb_%s", s)
}

func execMetric(mode string, ok bool) statMetric {
	result := resultFail
	if ok {
		result = resultOK
	}
	return statMetric{
		desc: prometheus.NewDesc(
			multiDBStatNamespace("execute_total"),
			"Statement executions by mode and result.",
			nil,
			prometheus.Labels{"mode": mode, "result": result},
		),
		eval: func(c *Collector) float64 {
			return c.read(func() int64 { return c.execs[execKey{mode: mode, ok: ok}] })
		},
		valType: prometheus.CounterValue,
	}
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	c := &Collector{
		execs: make(map[execKey]int64),
		metrics: multiDBStatsMetrics{
			execMetric(ModeBroadcast, true),
			execMetric(ModeBroadcast, false),
			execMetric(ModeInsert, true),
			execMetric(ModeInsert, false),
			{
				desc: prometheus.NewDesc(
					multiDBStatNamespace("connect_failures_total"),
					"Databases that could not be connected.",
					nil,
					nil,
				),
				eval:    func(c *Collector) float64 { return c.read(func() int64 { return c.connectFailures }) },
				valType: prometheus.CounterValue,
			},
			{
				desc: prometheus.NewDesc(
					multiDBStatNamespace("probe_failures_total"),
					"Row count probes failed while routing inserts.",
					nil,
					nil,
				),
				eval:    func(c *Collector) float64 { return c.read(func() int64 { return c.probeFailures }) },
				valType: prometheus.CounterValue,
			},
			{
				desc: prometheus.NewDesc(
					multiDBStatNamespace("id_collisions_total"),
					"Generated ids rejected by the ledger.",
					nil,
					nil,
				),
				eval:    func(c *Collector) float64 { return c.read(func() int64 { return c.idCollisions }) },
				valType: prometheus.CounterValue,
			},
			{
				desc: prometheus.NewDesc(
					multiDBStatNamespace("fail_fast_total"),
					"Broadcasts stopped at a failing database.",
					nil,
					nil,
				),
				eval:    func(c *Collector) float64 { return c.read(func() int64 { return c.failFastStops }) },
				valType: prometheus.CounterValue,
			},
			{
				desc: prometheus.NewDesc(
					multiDBStatNamespace("merged_rows_total"),
					"Rows merged into result buffers.",
					nil,
					nil,
				),
				eval:    func(c *Collector) float64 { return c.read(func() int64 { return c.mergedRows }) },
				valType: prometheus.CounterValue,
			},
		},
	}
	return c
}

// Describe returns all descriptions of the collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, i := range c.metrics {
		ch <- i.desc
	}
}

// Collect returns the current state of all metrics of the collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, i := range c.metrics {
		ch <- prometheus.MustNewConstMetric(i.desc, i.valType, i.eval(c))
	}
}

func (c *Collector) read(f func() int64) float64 {
	c.RLock()
	defer c.RUnlock()
	return float64(f())
}

func (c *Collector) update(f func()) {
	if c == nil {
		return
	}
	c.Lock()
	defer c.Unlock()
	f()
}

// ObserveExecution counts one execution in mode.
func (c *Collector) ObserveExecution(mode string, ok bool) {
	c.update(func() { c.execs[execKey{mode: mode, ok: ok}]++ })
}

// IncConnectFailure counts a database that could not be connected.
func (c *Collector) IncConnectFailure() {
	c.update(func() { c.connectFailures++ })
}

// IncProbeFailure counts a failed row count probe.
func (c *Collector) IncProbeFailure() {
	c.update(func() { c.probeFailures++ })
}

// IncIDCollision counts an id rejected by the ledger.
func (c *Collector) IncIDCollision() {
	c.update(func() { c.idCollisions++ })
}

// IncFailFast counts a broadcast stopped early.
func (c *Collector) IncFailFast() {
	c.update(func() { c.failFastStops++ })
}

// AddMergedRows counts rows appended to a result buffer.
func (c *Collector) AddMergedRows(n int) {
	c.update(func() { c.mergedRows += int64(n) })
}
