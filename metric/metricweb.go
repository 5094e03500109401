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
	"expvar"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mw "github.com/zserge/metric"

	"github.com/CovenantSQL/multidb/utils/log"
)

const expvarPrefix = "multidb:"

func publishGauge(name string) expvar.Var {
	if v := expvar.Get(name); v != nil {
		return v
	}
	expvar.Publish(name, mw.NewGauge("1m1s", "5m5s", "1h1m"))
	return expvar.Get(name)
}

func collect(reg prometheus.Gatherer) (err error) {
	mfs, err := reg.Gather()
	if err != nil {
		err = errors.Wrap(err, "gathering metrics failed")
		return
	}
	mm := make(SimpleMetricMap, len(mfs))
	for _, mf := range mfs {
		mm[mf.GetName()] = mf
	}
	for k, v := range mm.FilterCrucialMetrics() {
		publishGauge(expvarPrefix + k).(mw.Metric).Add(v)
	}
	return
}

func sampleRuntime() {
	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)
	publishGauge("go:numgoroutine").(mw.Metric).Add(float64(runtime.NumGoroutine()))
	publishGauge("go:numcgocall").(mw.Metric).Add(float64(runtime.NumCgoCall()))
	publishGauge("go:alloc").(mw.Metric).Add(float64(m.Alloc) / float64(MB))
	publishGauge("go:alloctotal").(mw.Metric).Add(float64(m.TotalAlloc) / float64(MB))
}

// InitMetricWeb serves reg on /metrics and the expvar charts on /debug/metrics
// at addr. The returned server stops the samplers on Shutdown.
func InitMetricWeb(addr string, reg *prometheus.Registry) (server *http.Server, err error) {
	if err = collect(reg); err != nil {
		return
	}
	sampleRuntime()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		err = errors.Wrapf(err, "listen metric web on %s failed", addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/metrics", mw.Handler(mw.Exposed))
	server = &http.Server{Addr: l.Addr().String(), Handler: mux}

	done := make(chan struct{})
	server.RegisterOnShutdown(func() { close(done) })

	go func() {
		collectTick := time.NewTicker(time.Minute)
		sampleTick := time.NewTicker(5 * time.Second)
		defer collectTick.Stop()
		defer sampleTick.Stop()
		for {
			select {
			case <-done:
				return
			case <-collectTick.C:
				_ = collect(reg)
			case <-sampleTick.C:
				sampleRuntime()
			}
		}
	}()

	go func() {
		if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metric web stopped")
		}
	}()

	log.WithField("addr", server.Addr).Info("metric web started")
	return
}
