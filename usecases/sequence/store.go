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
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/monitoring"
)

// Backend is a transactional scalar store. Every Put is a single atomic
// transaction; a synchronous Put returns only once the value survives a
// crash.
type Backend interface {
	Get(ctx context.Context, key string) (value uint64, found bool, err error)
	Put(ctx context.Context, key string, value uint64, sync bool) error
	Close() error
}

// Store persists the boundary of every allocation space on top of a Backend.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	mu sync.Mutex
	// committed is the last value written or loaded per initialized space
	committed map[string]uint64

	closeOnce sync.Once
	closeErr  error
}

func NewStore(backend Backend, logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics) *Store {
	return &Store{
		backend:   backend,
		log:       logger.WithField("component", "sequence_store"),
		metrics:   metrics,
		committed: map[string]uint64{},
	}
}

// Init loads the stored boundary of space, or writes min if the space has
// never been persisted.
func (s *Store) Init(ctx context.Context, space string, min uint64) error {
	v, found, err := s.backend.Get(ctx, space)
	if err != nil {
		return fmt.Errorf("%w: init space %q: %w", sequence.ErrStoreUnavailable, space, err)
	}

	if !found {
		if err := s.backend.Put(ctx, space, min, true); err != nil {
			return fmt.Errorf("%w: init space %q: %w", sequence.ErrStoreUnavailable, space, err)
		}
		v = min
		s.log.WithFields(logrus.Fields{
			"action":   "sequence_store_init",
			"space":    space,
			"boundary": v,
		}).Info("initialized new sequence space")
	} else {
		s.log.WithFields(logrus.Fields{
			"action":   "sequence_store_init",
			"space":    space,
			"boundary": v,
		}).Info("loaded sequence space")
	}

	s.mu.Lock()
	s.committed[space] = v
	s.mu.Unlock()
	return nil
}

// Read returns the last committed boundary of space as stored in the
// backend.
func (s *Store) Read(ctx context.Context, space string) (uint64, error) {
	if !s.initialized(space) {
		return 0, fmt.Errorf("read space %q: %w", space, sequence.ErrUnknownSpace)
	}

	v, found, err := s.backend.Get(ctx, space)
	if err != nil {
		return 0, fmt.Errorf("%w: read space %q: %w", sequence.ErrStoreUnavailable, space, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: space %q vanished from backend", sequence.ErrStoreUnavailable, space)
	}
	return v, nil
}

// Update replaces the boundary of space. On failure the previous boundary
// stays in effect. Boundaries never decrease.
func (s *Store) Update(ctx context.Context, space string, boundary uint64, sync bool) error {
	s.mu.Lock()
	prev, ok := s.committed[space]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: update space %q: %w", sequence.ErrTransaction, space, sequence.ErrUnknownSpace)
	}
	if boundary < prev {
		return fmt.Errorf("%w: space %q boundary %d below committed %d",
			sequence.ErrTransaction, space, boundary, prev)
	}

	begin := time.Now()
	err := s.backend.Put(ctx, space, boundary, sync)
	took := time.Since(begin)
	s.metrics.ObserveCommit(space, sync, took)
	if err != nil {
		return fmt.Errorf("%w: update space %q: %w", sequence.ErrTransaction, space, err)
	}

	s.mu.Lock()
	if boundary > s.committed[space] {
		s.committed[space] = boundary
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"action":   "sequence_store_update",
		"space":    space,
		"boundary": boundary,
		"sync":     sync,
		"took":     took,
	}).Debug("committed boundary")
	return nil
}

func (s *Store) initialized(space string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.committed[space]
	return ok
}

// Close releases the backend. Only the first call has an effect.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.backend.Close()
	})
	return s.closeErr
}
