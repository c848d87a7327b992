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
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/monitoring"
)

// Remote obtains super ranges from the allocation server, either in
// process or over the network.
type Remote interface {
	AllocateSuper(ctx context.Context, space string, width uint64) (sequence.Range, error)
}

type ClientConfig struct {
	// Name identifies the client in logs and metrics. A random name is
	// generated when empty.
	Name string
	// Width of the requested super ranges. Zero lets the server pick the
	// space's super width.
	Width   uint64
	Logger  logrus.FieldLogger
	Metrics *monitoring.PrometheusMetrics
}

// Client hands out single sequence numbers from locally held super ranges.
// The server is contacted only when the lease of a space is exhausted.
type Client struct {
	name    string
	width   uint64
	remote  Remote
	log     logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	mu     sync.Mutex
	leases map[string]*lease

	// refills deduplicates concurrent super range requests per space
	refills singleflight.Group
}

// lease is the client-local state of one space. All fields are guarded by mu,
// which is never held during I/O.
type lease struct {
	mu      sync.Mutex
	granted sequence.Range
	cursor  uint64
	valid   bool
	// generation changes every time the lease is replaced or dropped
	generation uint64
	// highest is the end of the highest range ever installed
	highest uint64
	hasHigh bool
}

func (l *lease) remaining() uint64 {
	if !l.valid {
		return 0
	}
	return l.granted.End - l.cursor
}

// LeaseInfo describes the lease a client holds for a space.
type LeaseInfo struct {
	Space     string         `json:"space"`
	Granted   sequence.Range `json:"granted"`
	Cursor    uint64         `json:"cursor"`
	Remaining uint64         `json:"remaining"`
}

func NewClient(cfg ClientConfig, remote Remote) *Client {
	name := cfg.Name
	if name == "" {
		name = "client-" + uuid.NewString()
	}
	return &Client{
		name:    name,
		width:   cfg.Width,
		remote:  remote,
		log:     cfg.Logger.WithField("component", "sequence_client").WithField("client", name),
		metrics: cfg.Metrics,
		leases:  map[string]*lease{},
	}
}

func (c *Client) Name() string { return c.name }

// AllocateOne returns the next unused number of space.
func (c *Client) AllocateOne(ctx context.Context, space string) (uint64, error) {
	r, err := c.take(ctx, space, 1)
	if err != nil {
		return 0, err
	}
	return r.Start, nil
}

// AllocateN returns between 1 and n consecutive numbers of space. The
// result never spans two leases, so fewer than n numbers are returned when
// the current lease runs out.
func (c *Client) AllocateN(ctx context.Context, space string, n uint64) (sequence.Range, error) {
	if n == 0 {
		return sequence.Range{}, fmt.Errorf("%w: n must be greater than 0", sequence.ErrInvalidWidth)
	}
	return c.take(ctx, space, n)
}

func (c *Client) take(ctx context.Context, space string, n uint64) (sequence.Range, error) {
	l := c.lease(space)
	for {
		l.mu.Lock()
		if rem := l.remaining(); rem > 0 {
			if n > rem {
				n = rem
			}
			r := sequence.Range{Space: space, Start: l.cursor, End: l.cursor + n}
			l.cursor = r.End
			rem = l.remaining()
			l.mu.Unlock()

			c.metrics.LeaseConsumed(c.name, space, n, rem)
			return r, nil
		}
		generation := l.generation
		l.mu.Unlock()

		if err := c.refill(ctx, space, l, generation); err != nil {
			return sequence.Range{}, err
		}
	}
}

// refill replaces an exhausted lease. Callers that observed the same
// generation share a single remote call. A lease that changed since the
// caller looked at it is left alone.
func (c *Client) refill(ctx context.Context, space string, l *lease, generation uint64) error {
	_, err, _ := c.refills.Do(space, func() (interface{}, error) {
		l.mu.Lock()
		stale := l.generation != generation && l.remaining() > 0
		l.mu.Unlock()
		if stale {
			return nil, nil
		}

		r, err := c.remote.AllocateSuper(ctx, space, c.width)
		if err != nil {
			c.metrics.RemoteFailed(c.name, space)
			c.log.WithError(err).WithField("space", space).Warn("super range request failed")
			return nil, fmt.Errorf("%w: space %q: %w", sequence.ErrRemoteAllocation, space, err)
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if err := l.check(space, r); err != nil {
			c.metrics.RemoteFailed(c.name, space)
			c.log.WithError(err).WithField("space", space).Error("server returned unusable range")
			return nil, err
		}
		l.granted = r
		l.cursor = r.Start
		l.valid = true
		l.generation++
		l.highest, l.hasHigh = r.End, true

		c.metrics.LeaseInstalled(c.name, space, r.Width())
		c.log.WithField("space", space).WithField("range", r.String()).Debug("installed new lease")
		return nil, nil
	})
	return err
}

// check validates a range returned by the server against the lease history.
func (l *lease) check(space string, r sequence.Range) error {
	if r.Space != space {
		return fmt.Errorf("%w: got range %s for space %q", sequence.ErrRemoteAllocation, r, space)
	}
	if r.IsEmpty() {
		return fmt.Errorf("%w: got empty range %s", sequence.ErrRemoteAllocation, r)
	}
	if l.hasHigh && r.Start < l.highest {
		return fmt.Errorf("%w: range %s overlaps or precedes previous lease ending at %d",
			sequence.ErrRemoteAllocation, r, l.highest)
	}
	return nil
}

// Flush drops the lease of space. Its unused numbers are never handed out.
func (c *Client) Flush(space string) {
	l := c.lease(space)
	l.mu.Lock()
	l.valid = false
	l.generation++
	l.mu.Unlock()

	c.metrics.LeaseDropped(c.name, space)
	c.log.WithField("space", space).Debug("flushed lease")
}

// Lease returns the current lease of space, if any.
func (c *Client) Lease(space string) (LeaseInfo, bool) {
	c.mu.Lock()
	l, ok := c.leases[space]
	c.mu.Unlock()
	if !ok {
		return LeaseInfo{}, false
	}
	return l.info(space)
}

// Leases returns all valid leases ordered by space.
func (c *Client) Leases() []LeaseInfo {
	c.mu.Lock()
	spaces := make([]string, 0, len(c.leases))
	for space := range c.leases {
		spaces = append(spaces, space)
	}
	c.mu.Unlock()
	sort.Strings(spaces)

	infos := make([]LeaseInfo, 0, len(spaces))
	for _, space := range spaces {
		if info, ok := c.Lease(space); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

func (l *lease) info(space string) (LeaseInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid {
		return LeaseInfo{}, false
	}
	return LeaseInfo{
		Space:     space,
		Granted:   l.granted,
		Cursor:    l.cursor,
		Remaining: l.remaining(),
	}, true
}

func (c *Client) lease(space string) *lease {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.leases[space]
	if !ok {
		l = &lease{}
		c.leases[space] = l
	}
	return l
}
