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
	"strconv"
	"time"
)

// ObserveBoundary records the committed boundary of space.
func (pm *PrometheusMetrics) ObserveBoundary(space string, boundary uint64) {
	if pm == nil {
		return
	}
	pm.SpaceBoundary.WithLabelValues(space).Set(float64(boundary))
}

// RangeGranted records one committed range of width numbers. kind is one of
// "super", "meta" or "specific".
func (pm *PrometheusMetrics) RangeGranted(space, kind string, width uint64) {
	if pm == nil {
		return
	}
	pm.RangesGranted.WithLabelValues(space, kind).Inc()
	pm.NumbersGranted.WithLabelValues(space).Add(float64(width))
}

func (pm *PrometheusMetrics) AllocationFailed(space, reason string) {
	if pm == nil {
		return
	}
	pm.AllocationFailures.WithLabelValues(space, reason).Inc()
}

func (pm *PrometheusMetrics) ObserveCommit(space string, sync bool, took time.Duration) {
	if pm == nil {
		return
	}
	pm.CommitDuration.WithLabelValues(space, strconv.FormatBool(sync)).Observe(took.Seconds())
}

// LeaseInstalled moves the remaining gauge to the size of a fresh lease.
func (pm *PrometheusMetrics) LeaseInstalled(client, space string, remaining uint64) {
	if pm == nil {
		return
	}
	pm.RemoteAllocations.WithLabelValues(client, space).Inc()
	pm.LeaseRemaining.WithLabelValues(client, space).Set(float64(remaining))
}

func (pm *PrometheusMetrics) LeaseConsumed(client, space string, n, remaining uint64) {
	if pm == nil {
		return
	}
	pm.LocalAllocations.WithLabelValues(client, space).Add(float64(n))
	pm.LeaseRemaining.WithLabelValues(client, space).Set(float64(remaining))
}

func (pm *PrometheusMetrics) LeaseDropped(client, space string) {
	if pm == nil {
		return
	}
	pm.LeaseRemaining.WithLabelValues(client, space).Set(0)
}

func (pm *PrometheusMetrics) RemoteFailed(client, space string) {
	if pm == nil {
		return
	}
	pm.RemoteFailures.WithLabelValues(client, space).Inc()
}
