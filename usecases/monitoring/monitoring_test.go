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
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)
	second, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	first.ObserveBoundary("meta-0", 50)
	assert.Equal(t, float64(50), testutil.ToFloat64(second.SpaceBoundary.WithLabelValues("meta-0")))
}

func TestSequenceMetrics(t *testing.T) {
	m, err := NewPrometheusMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	t.Run("range granted", func(t *testing.T) {
		m.RangeGranted("meta-0", "super", 1000)
		m.RangeGranted("meta-0", "meta", 10)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.RangesGranted.WithLabelValues("meta-0", "super")))
		assert.Equal(t, float64(1010), testutil.ToFloat64(m.NumbersGranted.WithLabelValues("meta-0")))
	})

	t.Run("lease lifecycle", func(t *testing.T) {
		m.LeaseInstalled("c1", "client-7", 1000)
		assert.Equal(t, float64(1000), testutil.ToFloat64(m.LeaseRemaining.WithLabelValues("c1", "client-7")))

		m.LeaseConsumed("c1", "client-7", 1, 999)
		assert.Equal(t, float64(999), testutil.ToFloat64(m.LeaseRemaining.WithLabelValues("c1", "client-7")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.LocalAllocations.WithLabelValues("c1", "client-7")))

		m.LeaseDropped("c1", "client-7")
		assert.Equal(t, float64(0), testutil.ToFloat64(m.LeaseRemaining.WithLabelValues("c1", "client-7")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteAllocations.WithLabelValues("c1", "client-7")))
	})

	t.Run("commit duration", func(t *testing.T) {
		m.ObserveCommit("meta-0", true, time.Millisecond)
		assert.Equal(t, 1, testutil.CollectAndCount(m.CommitDuration))
	})
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PrometheusMetrics
	m.ObserveBoundary("s", 1)
	m.RangeGranted("s", "super", 1)
	m.AllocationFailed("s", "commit")
	m.ObserveCommit("s", true, time.Second)
	m.LeaseInstalled("c", "s", 1)
	m.LeaseConsumed("c", "s", 1, 0)
	m.LeaseDropped("c", "s")
	m.RemoteFailed("c", "s")

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.InstrumentHandler("/", h))
}

func TestInstrumentHandler(t *testing.T) {
	m, err := NewPrometheusMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	h := m.InstrumentHandler("/sequences/super", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sequences/super", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InflightRequests.WithLabelValues(http.MethodPost, "/sequences/super")))
}

func TestCountingListener(t *testing.T) {
	m := NewNoopMetrics()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cl := m.CountingListener(ln)
	defer cl.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := cl.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	conn := <-accepted
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OpenConnections))

	require.NoError(t, conn.Close())
	conn.Close()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OpenConnections))
}
