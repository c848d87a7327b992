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
	"sync/atomic"

	"github.com/weaviate/seqalloc/entities/sequence"
)

// SpaceConfig describes one allocation space at bootstrap.
type SpaceConfig struct {
	Name string `json:"name" yaml:"name"`
	// Min is the boundary of a space that was never persisted.
	Min uint64 `json:"min" yaml:"min"`
	// Max is the exclusive upper limit. Zero means unbounded.
	Max uint64 `json:"max" yaml:"max"`
	// NormalWidth is the width of server-to-server grants.
	NormalWidth uint64 `json:"normal_width" yaml:"normal_width"`
	// SuperWidth is the default and maximum width of client grants.
	SuperWidth uint64 `json:"super_width" yaml:"super_width"`
	// Reserved ranges are installed through AllocateSpecific before any
	// traffic is served.
	Reserved []sequence.Range `json:"reserved" yaml:"reserved"`
}

func (c SpaceConfig) limit() uint64 {
	if c.Max == 0 {
		return sequence.Unbounded
	}
	return c.Max
}

func (c SpaceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("space name must be set")
	}
	if c.NormalWidth == 0 {
		return fmt.Errorf("space %q: normal_width must be greater than 0", c.Name)
	}
	if c.SuperWidth == 0 {
		return fmt.Errorf("space %q: super_width must be greater than 0", c.Name)
	}
	if c.Min >= c.limit() {
		return fmt.Errorf("space %q: min %d must be below max %d", c.Name, c.Min, c.limit())
	}
	for i, r := range c.Reserved {
		if r.Space != "" && r.Space != c.Name {
			return fmt.Errorf("space %q: reserved range %s belongs to another space", c.Name, r)
		}
		if r.Start >= r.End {
			return fmt.Errorf("space %q: reserved range [%d,%d) is empty", c.Name, r.Start, r.End)
		}
		if r.Start < c.Min {
			return fmt.Errorf("space %q: reserved range [%d,%d) starts below min %d", c.Name, r.Start, r.End, c.Min)
		}
		if r.End > c.limit() {
			return fmt.Errorf("space %q: reserved range [%d,%d) exceeds max", c.Name, r.Start, r.End)
		}
		if i > 0 && r.Start < c.Reserved[i-1].End {
			return fmt.Errorf("space %q: reserved ranges must be ascending and disjoint", c.Name)
		}
	}
	return nil
}

// space is the in-memory state of one allocation space. boundary and
// trafficStarted are only touched while holding the token.
type space struct {
	cfg   SpaceConfig
	max   uint64
	token chan struct{}

	busy           atomic.Bool
	boundary       uint64
	trafficStarted bool

	// observed mirrors boundary for lock-free inspection
	observed atomic.Uint64
	started  atomic.Bool
}

func newSpace(cfg SpaceConfig) *space {
	token := make(chan struct{}, 1)
	token <- struct{}{}
	return &space{
		cfg:   cfg,
		max:   cfg.limit(),
		token: token,
	}
}

// lock acquires exclusive access to the space or gives up when ctx is done.
func (s *space) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *space) unlock() {
	s.token <- struct{}{}
}

// enter marks the space as busy. It fails if another caller is inside,
// which can only happen if the token was bypassed.
func (s *space) enter() error {
	if !s.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("space %q: %w", s.cfg.Name, sequence.ErrConcurrencyViolation)
	}
	return nil
}

func (s *space) leave() {
	s.busy.Store(false)
}

func (s *space) advance(boundary uint64, traffic bool) {
	s.boundary = boundary
	s.observed.Store(boundary)
	if traffic {
		s.trafficStarted = true
		s.started.Store(true)
	}
}
