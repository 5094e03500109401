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
	dto "github.com/prometheus/client_model/go"

	"github.com/CovenantSQL/multidb/utils/log"
)

// SimpleMetricMap is map from metric name to MetricFamily.
type SimpleMetricMap map[string]*dto.MetricFamily

var crucialMetricNameMap = map[string]string{
	"multidb_execute_total":          "executions",
	"multidb_connect_failures_total": "connect_failures",
	"multidb_probe_failures_total":   "probe_failures",
	"multidb_id_collisions_total":    "id_collisions",
	"multidb_fail_fast_total":        "fail_fast",
	"multidb_merged_rows_total":      "merged_rows",
	"go_goroutines":                  "goroutines",
}

// FilterCrucialMetrics returns the crucial metrics by short name, values of
// every labeled series summed.
func (mfm SimpleMetricMap) FilterCrucialMetrics() (ret map[string]float64) {
	ret = make(map[string]float64)
	for _, v := range mfm {
		newName, ok := crucialMetricNameMap[v.GetName()]
		if !ok {
			continue
		}
		var sum float64
		for _, m := range v.GetMetric() {
			switch v.GetType() {
			case dto.MetricType_GAUGE:
				sum += m.GetGauge().GetValue()
			case dto.MetricType_COUNTER:
				sum += m.GetCounter().GetValue()
			case dto.MetricType_UNTYPED:
				sum += m.GetUntyped().GetValue()
			}
		}
		ret[newName] = sum
	}
	log.Debugf("crucial metric added: %v", ret)
	return
}
