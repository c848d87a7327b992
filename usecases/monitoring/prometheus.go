//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seqalloc"

// PrometheusMetrics groups every collector of the allocation service. A nil
// *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	Registerer prometheus.Registerer

	// server side
	SpaceBoundary      *prometheus.GaugeVec
	RangesGranted      *prometheus.CounterVec
	NumbersGranted     *prometheus.CounterVec
	AllocationFailures *prometheus.CounterVec
	CommitDuration     *prometheus.HistogramVec

	// client side
	LeaseRemaining    *prometheus.GaugeVec
	RemoteAllocations *prometheus.CounterVec
	RemoteFailures    *prometheus.CounterVec
	LocalAllocations  *prometheus.CounterVec

	// transport
	Requests         *prometheus.HistogramVec
	InflightRequests *prometheus.GaugeVec
	OpenConnections  prometheus.Gauge
}

// NewPrometheusMetrics creates and registers all collectors against reg. A
// nil reg uses prometheus.DefaultRegisterer. Collectors that are already
// registered are reused, so several components of one process may share reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{Registerer: reg}

	var err error
	if m.SpaceBoundary, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "space_boundary",
		Help:      "Next unallocated number of a space, as last committed",
	}, []string{"space"})); err != nil {
		return nil, err
	}
	if m.RangesGranted, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ranges_granted_total",
		Help:      "Number of ranges handed out by the server",
	}, []string{"space", "kind"})); err != nil {
		return nil, err
	}
	if m.NumbersGranted, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "numbers_granted_total",
		Help:      "Sum of the widths of all granted ranges",
	}, []string{"space"})); err != nil {
		return nil, err
	}
	if m.AllocationFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocation_failures_total",
		Help:      "Range allocations that did not commit",
	}, []string{"space", "reason"})); err != nil {
		return nil, err
	}
	if m.CommitDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_commit_duration_seconds",
		Help:      "Duration of durable boundary updates",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // ~0.1ms to 3.2s
	}, []string{"space", "sync"})); err != nil {
		return nil, err
	}
	if m.LeaseRemaining, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_lease_remaining",
		Help:      "Numbers left in the current lease of a client",
	}, []string{"client", "space"})); err != nil {
		return nil, err
	}
	if m.RemoteAllocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_remote_allocations_total",
		Help:      "Super ranges requested by a client",
	}, []string{"client", "space"})); err != nil {
		return nil, err
	}
	if m.RemoteFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_remote_failures_total",
		Help:      "Failed super range requests of a client",
	}, []string{"client", "space"})); err != nil {
		return nil, err
	}
	if m.LocalAllocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_local_allocations_total",
		Help:      "Numbers served from a local lease",
	}, []string{"client", "space"})); err != nil {
		return nil, err
	}
	if m.Requests, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of transport requests",
		Buckets:   prometheus.ExponentialBuckets(0.00025, 2, 18), // ~0.25ms to 32s
	}, []string{"method", "route", "status_code"})); err != nil {
		return nil, err
	}
	if m.InflightRequests, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_inflight_requests",
		Help:      "Transport requests currently being served",
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	if m.OpenConnections, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_open_connections",
		Help:      "Currently open transport connections",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoopMetrics returns metrics registered nowhere. Useful where metrics
// are disabled but components still expect collectors.
func NewNoopMetrics() *PrometheusMetrics {
	m, _ := NewPrometheusMetrics(noopRegisterer{})
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var e prometheus.AlreadyRegisteredError
		if errors.As(err, &e) {
			if existing, ok := e.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("metric already registered with a different type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// noopRegisterer disables registration when monitoring is off.
type noopRegisterer struct{}

func (noopRegisterer) Register(prometheus.Collector) error  { return nil }
func (noopRegisterer) MustRegister(...prometheus.Collector) {}
func (noopRegisterer) Unregister(prometheus.Collector) bool { return true }
