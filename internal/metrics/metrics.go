// Package metrics records run outcomes for an optional Prometheus
// Pushgateway. The process is short-lived, so nothing is served.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Job is the Pushgateway job name.
const Job = "falix_keepalive"

// Metrics bundles prometheus collectors used by the bot.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal          *prometheus.CounterVec
	ServerStatus         *prometheus.GaugeVec
	CycleDurationSec     prometheus.Histogram
	StartAttempts        prometheus.Counter
	NotificationFailures prometheus.Counter
	LastRunTimestamp     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keepalive_cycles_total",
			Help: "Total number of keep-alive cycles by outcome.",
		}, []string{"outcome"}),
		ServerStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "keepalive_server_status",
			Help: "Last probed server status (1 for the current status, 0 otherwise).",
		}, []string{"status"}),
		CycleDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keepalive_cycle_duration_seconds",
			Help:    "Keep-alive cycle duration in seconds.",
			Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 300},
		}),
		StartAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepalive_start_attempts_total",
			Help: "Total number of server start workflows attempted.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepalive_notifications_failed_total",
			Help: "Total number of notifications that could not be delivered.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keepalive_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.ServerStatus,
		m.CycleDurationSec,
		m.StartAttempts,
		m.NotificationFailures,
		m.LastRunTimestamp,
	)

	return m
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(r types.CycleResult) {
	m.CyclesTotal.WithLabelValues(string(r.Outcome)).Inc()
	m.CycleDurationSec.Observe(r.Duration.Seconds())
	m.SetStatus(r.Status)
}

// SetStatus marks status as the current one.
func (m *Metrics) SetStatus(status types.ServerStatus) {
	for _, s := range []types.ServerStatus{types.StatusOnline, types.StatusOffline, types.StatusUnknown} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.ServerStatus.WithLabelValues(string(s)).Set(v)
	}
}

// Push sends every collector to the Pushgateway at url, grouped by mode.
func (m *Metrics) Push(ctx context.Context, url, mode string) error {
	m.LastRunTimestamp.SetToCurrentTime()
	err := push.New(url, Job).
		Gatherer(m.registry).
		Grouping("mode", mode).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
