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
	"context"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/CovenantSQL/multidb/utils/log"
)

func TestCollector(t *testing.T) {
	log.SetLevel(log.DebugLevel)

	Convey("counters are collected", t, func() {
		c := NewCollector()
		c.ObserveExecution(ModeBroadcast, true)
		c.ObserveExecution(ModeBroadcast, true)
		c.ObserveExecution(ModeInsert, false)
		c.IncIDCollision()
		c.IncIDCollision()
		c.IncFailFast()
		c.AddMergedRows(7)

		So(testutil.CollectAndCount(c), ShouldEqual, 9)
		So(testutil.CollectAndCount(c, "multidb_execute_total"), ShouldEqual, 4)

		expected := `
# HELP multidb_id_collisions_total Generated ids rejected by the ledger.
# TYPE multidb_id_collisions_total counter
multidb_id_collisions_total 2
# HELP multidb_merged_rows_total Rows merged into result buffers.
# TYPE multidb_merged_rows_total counter
multidb_merged_rows_total 7
`
		err := testutil.CollectAndCompare(c, strings.NewReader(expected),
			"multidb_id_collisions_total", "multidb_merged_rows_total")
		So(err, ShouldBeNil)

		reg := StartMetricCollector(c)
		So(reg, ShouldNotBeNil)
		mfs, err := reg.Gather()
		So(err, ShouldBeNil)
		mm := make(SimpleMetricMap)
		for _, mf := range mfs {
			mm[mf.GetName()] = mf
		}
		crucial := mm.FilterCrucialMetrics()
		So(crucial["executions"], ShouldEqual, 3)
		So(crucial["merged_rows"], ShouldEqual, 7)
		So(crucial["fail_fast"], ShouldEqual, 1)
		So(crucial, ShouldContainKey, "goroutines")
	})

	Convey("nil collector records nothing", t, func() {
		var c *Collector
		So(func() {
			c.ObserveExecution(ModeInsert, true)
			c.IncConnectFailure()
			c.IncProbeFailure()
			c.AddMergedRows(1)
		}, ShouldNotPanic)
	})
}

func TestInitMetricWeb(t *testing.T) {
	Convey("metric web serves both endpoints", t, func() {
		c := NewCollector()
		c.IncConnectFailure()
		reg := StartMetricCollector(c)
		So(reg, ShouldNotBeNil)

		server, err := InitMetricWeb("127.0.0.1:0", reg)
		So(err, ShouldBeNil)
		defer server.Shutdown(context.Background())

		resp, err := http.Get("http://" + server.Addr + "/metrics")
		So(err, ShouldBeNil)
		body, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		So(err, ShouldBeNil)
		So(string(body), ShouldContainSubstring, "multidb_connect_failures_total 1")

		resp, err = http.Get("http://" + server.Addr + "/debug/metrics")
		So(err, ShouldBeNil)
		body, err = ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		So(err, ShouldBeNil)
		So(string(body), ShouldContainSubstring, "go:alloc")
		So(string(body), ShouldContainSubstring, "multidb:connect_failures")
	})
}
