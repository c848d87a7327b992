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

package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seqrepo "github.com/weaviate/seqalloc/adapters/repos/sequence"
	"github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/monitoring"
)

func newTestClient(t *testing.T, srv *Server, width uint64) (*Client, *countingRemote) {
	t.Helper()
	remote := &countingRemote{next: NewLocalRemote(srv)}
	return NewClient(ClientConfig{Name: "client-7", Width: width, Logger: testLogger()}, remote), remote
}

func TestClientServesFromLease(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("client-7", 10, 1000))
	client, remote := newTestClient(t, srv, 0)

	for i := uint64(0); i < 1000; i++ {
		n, err := client.AllocateOne(ctx, "client-7")
		require.NoError(t, err)
		require.Equal(t, i, n)
	}
	assert.Equal(t, int64(1), remote.calls.Load())

	n, err := client.AllocateOne(ctx, "client-7")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), n)
	assert.Equal(t, int64(2), remote.calls.Load())

	info, ok := client.Lease("client-7")
	require.True(t, ok)
	assert.Equal(t, LeaseInfo{
		Space:     "client-7",
		Granted:   sequence.Range{Space: "client-7", Start: 1000, End: 2000},
		Cursor:    1001,
		Remaining: 999,
	}, info)
}

func TestClientConfiguredWidth(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 1000))
	client, remote := newTestClient(t, srv, 64)

	for i := 0; i < 130; i++ {
		_, err := client.AllocateOne(ctx, "seq")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), remote.calls.Load())

	boundary, err := srv.Boundary("seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(192), boundary)
}

func TestClientAllocateN(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 100))
	client, _ := newTestClient(t, srv, 0)

	r, err := client.AllocateN(ctx, "seq", 60)
	require.NoError(t, err)
	assert.Equal(t, sequence.Range{Space: "seq", Start: 0, End: 60}, r)

	// never spans two leases
	r, err = client.AllocateN(ctx, "seq", 60)
	require.NoError(t, err)
	assert.Equal(t, sequence.Range{Space: "seq", Start: 60, End: 100}, r)

	r, err = client.AllocateN(ctx, "seq", 60)
	require.NoError(t, err)
	assert.Equal(t, sequence.Range{Space: "seq", Start: 100, End: 160}, r)

	_, err = client.AllocateN(ctx, "seq", 0)
	assert.ErrorIs(t, err, sequence.ErrInvalidWidth)
}

func TestClientFlush(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 100))
	client, remote := newTestClient(t, srv, 0)

	n, err := client.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	client.Flush("seq")
	_, ok := client.Lease("seq")
	assert.False(t, ok)
	assert.Empty(t, client.Leases())

	n, err = client.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
	assert.Equal(t, int64(2), remote.calls.Load())
}

func TestClientRemoteFailure(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 10))
	local := NewLocalRemote(srv)

	var fail bool
	remote := remoteFunc(func(ctx context.Context, space string, width uint64) (sequence.Range, error) {
		if fail {
			return sequence.Range{}, seqrepo.ErrInjected
		}
		return local.AllocateSuper(ctx, space, width)
	})
	client := NewClient(ClientConfig{Logger: testLogger()}, remote)
	assert.Contains(t, client.Name(), "client-")

	for i := 0; i < 10; i++ {
		_, err := client.AllocateOne(ctx, "seq")
		require.NoError(t, err)
	}
	before, ok := client.Lease("seq")
	require.True(t, ok)

	fail = true
	_, err := client.AllocateOne(ctx, "seq")
	assert.ErrorIs(t, err, sequence.ErrRemoteAllocation)
	assert.ErrorIs(t, err, seqrepo.ErrInjected)

	after, ok := client.Lease("seq")
	require.True(t, ok)
	assert.Equal(t, before, after)

	fail = false
	n, err := client.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), n)
}

func TestClientRejectsUnusableRanges(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		ranges []sequence.Range
	}{
		{
			name:   "wrong space",
			ranges: []sequence.Range{{Space: "other", Start: 0, End: 10}},
		},
		{
			name:   "empty range",
			ranges: []sequence.Range{{Space: "seq", Start: 10, End: 10}},
		},
		{
			name: "range below previous lease",
			ranges: []sequence.Range{
				{Space: "seq", Start: 100, End: 101},
				{Space: "seq", Start: 50, End: 60},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			remote := remoteFunc(func(context.Context, string, uint64) (sequence.Range, error) {
				r := tt.ranges[calls]
				calls++
				return r, nil
			})
			client := NewClient(ClientConfig{Logger: testLogger()}, remote)

			for i := 0; i < len(tt.ranges)-1; i++ {
				_, err := client.AllocateOne(ctx, "seq")
				require.NoError(t, err)
			}
			_, err := client.AllocateOne(ctx, "seq")
			assert.ErrorIs(t, err, sequence.ErrRemoteAllocation)
		})
	}
}

func TestClientConcurrentCallersShareRefills(t *testing.T) {
	ctx := context.Background()
	metrics, err := monitoring.NewPrometheusMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 1000))
	remote := &countingRemote{next: NewLocalRemote(srv)}
	client := NewClient(ClientConfig{Name: "c", Width: 64, Logger: testLogger(), Metrics: metrics}, remote)

	const workers, perWorker = 32, 200
	var (
		mu   sync.Mutex
		seen = map[uint64]struct{}{}
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := client.AllocateOne(ctx, "seq")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				_, dup := seen[n]
				seen[n] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, "number %d handed out twice", n)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker/64), remote.calls.Load())
	assert.Equal(t, float64(workers*perWorker), testutil.ToFloat64(metrics.LocalAllocations.WithLabelValues("c", "seq")))
}

func TestClientRestartGetsFreshRange(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("seq", 10, 100))

	first, _ := newTestClient(t, srv, 0)
	n, err := first.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	// the unused remainder of the first client's lease is lost
	second, _ := newTestClient(t, srv, 0)
	n, err = second.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)

	n, err = first.AllocateOne(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestClientLeases(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, seqrepo.NewMemoryBackend(), spaceConfig("b", 10, 10), spaceConfig("a", 10, 20))
	client, _ := newTestClient(t, srv, 0)

	for _, name := range []string{"b", "a", "a"} {
		_, err := client.AllocateOne(ctx, name)
		require.NoError(t, err)
	}

	leases := client.Leases()
	require.Len(t, leases, 2)
	assert.Equal(t, "a", leases[0].Space)
	assert.Equal(t, uint64(18), leases[0].Remaining)
	assert.Equal(t, "b", leases[1].Space)
	assert.Equal(t, uint64(9), leases[1].Remaining)

	_, err := client.AllocateOne(ctx, "missing")
	assert.ErrorIs(t, err, sequence.ErrRemoteAllocation)
	assert.ErrorIs(t, err, sequence.ErrUnknownSpace)
}
