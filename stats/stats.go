/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats exposes the engine's per-control-block counters and gauges
// as Prometheus metrics served over net/http.
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Stats wraps a private Prometheus registry with the counters/gauges this
// library reports, keyed by goCbRef or msvID so one process can publish many
// control blocks.
type Stats struct {
	registry *prometheus.Registry

	framesSent      *prometheus.CounterVec
	sendErrors      *prometheus.CounterVec
	currentInterval *prometheus.GaugeVec
	asdusSent       *prometheus.CounterVec
}

// New builds a Stats with all collectors registered.
func New() *Stats {
	s := &Stats{registry: prometheus.NewRegistry()}

	s.framesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goose_frames_sent_total",
		Help: "GOOSE frames successfully handed to the send path, by goCbRef",
	}, []string{"go_cb_ref"})

	s.sendErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goose_send_errors_total",
		Help: "GOOSE frame send failures, by goCbRef",
	}, []string{"go_cb_ref"})

	s.currentInterval = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "goose_current_interval_ms",
		Help: "Current retransmission interval in milliseconds, by goCbRef",
	}, []string{"go_cb_ref"})

	s.asdusSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smv_asdus_sent_total",
		Help: "SMV ASDUs successfully handed to the send path, by msvID",
	}, []string{"msv_id"})

	s.registry.MustRegister(s.framesSent, s.sendErrors, s.currentInterval, s.asdusSent)
	return s
}

// IncFramesSent records one successful GOOSE frame emission for goCbRef.
func (s *Stats) IncFramesSent(goCbRef string) {
	s.framesSent.WithLabelValues(goCbRef).Inc()
}

// IncSendErrors records one failed GOOSE frame emission for goCbRef.
func (s *Stats) IncSendErrors(goCbRef string) {
	s.sendErrors.WithLabelValues(goCbRef).Inc()
}

// SetCurrentIntervalMillis reports goCbRef's current retransmission interval.
func (s *Stats) SetCurrentIntervalMillis(goCbRef string, ms float64) {
	s.currentInterval.WithLabelValues(goCbRef).Set(ms)
}

// IncAsdusSent records one successfully sent SMV ASDU for msvID.
func (s *Stats) IncAsdusSent(msvID string) {
	s.asdusSent.WithLabelValues(msvID).Inc()
}

// Start runs the /metrics HTTP server on addr (e.g. ":9100"), blocking until
// the server stops or fails. Call it from its own goroutine.
func (s *Stats) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	log.Infof("stats: starting Prometheus exporter on %s", addr)
	return http.ListenAndServe(addr, mux)
}
