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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seqrepo "github.com/weaviate/seqalloc/adapters/repos/sequence"
	"github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/monitoring"
)

func TestStoreInit(t *testing.T) {
	ctx := context.Background()

	t.Run("new space is initialized to its minimum", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		store := NewStore(backend, testLogger(), nil)

		require.NoError(t, store.Init(ctx, "meta-0", 0x200000400))
		v, err := store.Read(ctx, "meta-0")
		require.NoError(t, err)
		assert.Equal(t, uint64(0x200000400), v)

		stored, ok := backend.Value("meta-0")
		require.True(t, ok)
		assert.Equal(t, uint64(0x200000400), stored)
	})

	t.Run("existing space keeps its boundary", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		require.NoError(t, backend.Put(ctx, "meta-0", 50, true))
		store := NewStore(backend, testLogger(), nil)

		require.NoError(t, store.Init(ctx, "meta-0", 0))
		v, err := store.Read(ctx, "meta-0")
		require.NoError(t, err)
		assert.Equal(t, uint64(50), v)
		assert.Equal(t, 1, backend.Puts("meta-0"))
	})

	t.Run("unreachable backend", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		backend.GetErr = seqrepo.ErrInjected
		store := NewStore(backend, testLogger(), nil)

		err := store.Init(ctx, "meta-0", 0)
		assert.ErrorIs(t, err, sequence.ErrStoreUnavailable)
		assert.ErrorIs(t, err, seqrepo.ErrInjected)
	})

	t.Run("failing initial write", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		backend.BeforePut = func(string, uint64) error { return seqrepo.ErrInjected }
		store := NewStore(backend, testLogger(), nil)

		assert.ErrorIs(t, store.Init(ctx, "meta-0", 0), sequence.ErrStoreUnavailable)
	})
}

func TestStoreRead(t *testing.T) {
	ctx := context.Background()
	backend := seqrepo.NewMemoryBackend()
	store := NewStore(backend, testLogger(), nil)

	_, err := store.Read(ctx, "meta-0")
	assert.ErrorIs(t, err, sequence.ErrUnknownSpace)

	require.NoError(t, store.Init(ctx, "meta-0", 0))
	backend.GetErr = seqrepo.ErrInjected
	_, err = store.Read(ctx, "meta-0")
	assert.ErrorIs(t, err, sequence.ErrStoreUnavailable)
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		metrics, err := monitoring.NewPrometheusMetrics(prometheus.NewRegistry())
		require.NoError(t, err)
		backend := seqrepo.NewMemoryBackend()
		store := NewStore(backend, testLogger(), metrics)
		require.NoError(t, store.Init(ctx, "meta-0", 0))

		require.NoError(t, store.Update(ctx, "meta-0", 50, true))
		require.NoError(t, store.Update(ctx, "meta-0", 60, false))

		v, err := store.Read(ctx, "meta-0")
		require.NoError(t, err)
		assert.Equal(t, uint64(60), v)
		assert.Equal(t, 2, testutil.CollectAndCount(metrics.CommitDuration))
	})

	t.Run("failure keeps the previous boundary", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		store := NewStore(backend, testLogger(), nil)
		require.NoError(t, store.Init(ctx, "meta-0", 0))
		require.NoError(t, store.Update(ctx, "meta-0", 50, true))

		backend.BeforePut = func(string, uint64) error { return seqrepo.ErrInjected }
		err := store.Update(ctx, "meta-0", 100, true)
		assert.ErrorIs(t, err, sequence.ErrTransaction)
		assert.ErrorIs(t, err, seqrepo.ErrInjected)

		backend.BeforePut = nil
		v, err := store.Read(ctx, "meta-0")
		require.NoError(t, err)
		assert.Equal(t, uint64(50), v)
	})

	t.Run("boundary never decreases", func(t *testing.T) {
		backend := seqrepo.NewMemoryBackend()
		store := NewStore(backend, testLogger(), nil)
		require.NoError(t, store.Init(ctx, "meta-0", 0))
		require.NoError(t, store.Update(ctx, "meta-0", 50, true))

		assert.ErrorIs(t, store.Update(ctx, "meta-0", 49, true), sequence.ErrTransaction)
		require.NoError(t, store.Update(ctx, "meta-0", 50, true))
	})

	t.Run("uninitialized space", func(t *testing.T) {
		store := NewStore(seqrepo.NewMemoryBackend(), testLogger(), nil)
		err := store.Update(ctx, "meta-0", 1, true)
		assert.ErrorIs(t, err, sequence.ErrTransaction)
		assert.ErrorIs(t, err, sequence.ErrUnknownSpace)
	})
}
