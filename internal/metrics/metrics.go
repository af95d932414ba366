/*
 * Metrics - instrumentation for the snippet generation run.
 *
 * Copyright 2026 Marco Confalonieri.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// metrics instance
var metrics *OpenMetrics

// OpenMetrics collects the counters exposed by a generation run. Since the
// generator is a one-shot process the registry is dumped to a node_exporter
// textfile instead of being served over HTTP.
type OpenMetrics struct {
	registry *prometheus.Registry

	successfulApiCallsTotal *prometheus.CounterVec
	failedApiCallsTotal     *prometheus.CounterVec

	apiDelayHist *prometheus.HistogramVec

	generatedRecords *prometheus.GaugeVec
	generatedZones   *prometheus.GaugeVec
	skippedAddresses prometheus.Counter
}

// GetOpenMetricsInstance returns the current OpenMetrics instance or creates
// a new one if required.
func GetOpenMetricsInstance() *OpenMetrics {
	if metrics == nil {
		reg := prometheus.NewRegistry()
		metrics = &OpenMetrics{
			registry: reg,
			successfulApiCallsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "netbox_dns_successful_api_calls_total",
					Help: "The number of successful NetBox API calls",
				},
				[]string{"action"},
			),
			failedApiCallsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "netbox_dns_failed_api_calls_total",
					Help: "The number of NetBox API calls that returned an error",
				},
				[]string{"action"},
			),
			apiDelayHist: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "netbox_dns_api_delay_count",
					Help:    "Histogram of the delay in milliseconds when calling the NetBox API",
					Buckets: []float64{10, 100, 250, 500, 1000, 1500, 2000, 5000, 15000},
				},
				[]string{"action"},
			),
			generatedRecords: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "netbox_dns_generated_records",
					Help: "The number of DNS records generated from the NetBox data",
				},
				[]string{"kind"},
			),
			generatedZones: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "netbox_dns_generated_zones",
					Help: "The number of DNS zone snippets generated from the NetBox data",
				},
				[]string{"kind"},
			),
			skippedAddresses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "netbox_dns_skipped_addresses_total",
				Help: "The number of addresses skipped because of missing or unresolvable data",
			}),
		}
		reg.MustRegister(metrics.successfulApiCallsTotal)
		reg.MustRegister(metrics.failedApiCallsTotal)
		reg.MustRegister(metrics.apiDelayHist)
		reg.MustRegister(metrics.generatedRecords)
		reg.MustRegister(metrics.generatedZones)
		reg.MustRegister(metrics.skippedAddresses)
	}
	return metrics
}

// getLabels builds the label map.
func getLabels(action string) prometheus.Labels {
	return prometheus.Labels{"action": action}
}

// GetRegistry returns the prometheus registry.
func (m OpenMetrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// IncSuccessfulApiCallsTotal increments the successful API calls counter.
func (m *OpenMetrics) IncSuccessfulApiCallsTotal(action string) {
	m.successfulApiCallsTotal.With(getLabels(action)).Inc()
}

// IncFailedApiCallsTotal increments the failed API calls counter.
func (m *OpenMetrics) IncFailedApiCallsTotal(action string) {
	m.failedApiCallsTotal.With(getLabels(action)).Inc()
}

// AddApiDelayHist adds a delay sample for the given action.
func (m *OpenMetrics) AddApiDelayHist(action string, delay int64) {
	m.apiDelayHist.With(getLabels(action)).Observe(float64(delay))
}

// SetGeneratedRecords sets the generated records gauge for a record kind
// ("direct" or "reverse").
func (m *OpenMetrics) SetGeneratedRecords(kind string, count int) {
	m.generatedRecords.With(prometheus.Labels{"kind": kind}).Set(float64(count))
}

// SetGeneratedZones sets the generated zones gauge for a record kind.
func (m *OpenMetrics) SetGeneratedZones(kind string, count int) {
	m.generatedZones.With(prometheus.Labels{"kind": kind}).Set(float64(count))
}

// IncSkippedAddresses increments the skipped addresses counter.
func (m *OpenMetrics) IncSkippedAddresses() {
	m.skippedAddresses.Inc()
}

// WriteTextfile dumps the registry in text exposition format to the given
// path. The file is written to a temporary name first and renamed so the
// textfile collector never reads a partial dump.
func (m *OpenMetrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("cannot gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create metrics textfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, family); err != nil {
			tmp.Close()
			return fmt.Errorf("cannot write metrics textfile: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close metrics textfile: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
