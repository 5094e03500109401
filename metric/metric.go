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

// Package metric exposes multidb counters to prometheus and to the expvar
// metric web.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/CovenantSQL/multidb/utils/log"
)

const (
	// KB is 1024 Bytes
	KB int64 = 1024
	// MB is 1024 KB
	MB int64 = KB * 1024
)

// StartMetricCollector registers c and the go runtime collector on a new registry.
func StartMetricCollector(c *Collector) (registry *prometheus.Registry) {
	registry = prometheus.NewRegistry()
	for name, cl := range map[string]prometheus.Collector{
		"multidb": c,
		"go":      collectors.NewGoCollector(),
	} {
		if err := registry.Register(cl); err != nil {
			log.WithError(err).WithField("collector", name).Error("couldn't register collector")
			return nil
		}
		log.Debugf("enabled collector: %s", name)
	}
	return
}
