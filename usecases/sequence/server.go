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
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/seqalloc/entities/errors"
	"github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/monitoring"
)

const (
	kindRange    = "range"
	kindSuper    = "super"
	kindMeta     = "meta"
	kindSpecific = "specific"

	// recoveryConcurrency bounds the spaces initialized in parallel on Open
	recoveryConcurrency = 8
)

type ServerConfig struct {
	Spaces  []SpaceConfig
	Logger  logrus.FieldLogger
	Metrics *monitoring.PrometheusMetrics
}

// Server is the authoritative allocator of every configured space. Ranges
// of one space are granted strictly one after another, each range being
// committed to the Store before it is returned. Different spaces proceed in
// parallel.
type Server struct {
	store   *Store
	log     logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	// spaces is built once in NewServer and never modified afterwards
	spaces map[string]*space

	// recovered is set once every boundary is loaded, open once the
	// reservations are installed as well
	recovered atomic.Bool
	open      atomic.Bool
	closed    atomic.Bool
}

// SpaceInfo is a read-only snapshot of a space for inspection.
type SpaceInfo struct {
	Name           string `json:"name"`
	Boundary       uint64 `json:"boundary"`
	Min            uint64 `json:"min"`
	Max            uint64 `json:"max"`
	NormalWidth    uint64 `json:"normal_width"`
	SuperWidth     uint64 `json:"super_width"`
	TrafficStarted bool   `json:"traffic_started"`
}

func NewServer(cfg ServerConfig, store *Store) (*Server, error) {
	if len(cfg.Spaces) == 0 {
		return nil, fmt.Errorf("at least one sequence space must be configured")
	}

	spaces := make(map[string]*space, len(cfg.Spaces))
	for _, sc := range cfg.Spaces {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if _, ok := spaces[sc.Name]; ok {
			return nil, fmt.Errorf("space %q configured twice", sc.Name)
		}
		spaces[sc.Name] = newSpace(sc)
	}

	return &Server{
		store:   store,
		log:     cfg.Logger.WithField("component", "sequence_server"),
		metrics: cfg.Metrics,
		spaces:  spaces,
	}, nil
}

// Open recovers the boundary of every space from the store and installs
// the configured reservations. Any failure is fatal for the server.
func (s *Server) Open(ctx context.Context) error {
	if s.closed.Load() {
		return sequence.ErrClosed
	}
	if s.open.Load() {
		return nil
	}

	eg, ectx := enterrors.NewErrorGroupWrapper(ctx, s.log)
	eg.SetLimit(recoveryConcurrency)
	for _, sp := range s.spaces {
		sp := sp
		eg.Go(func() error {
			return s.recover(ectx, sp)
		}, sp.cfg.Name)
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("recover sequence spaces: %w", err)
	}
	s.recovered.Store(true)

	for _, name := range s.names() {
		sp := s.spaces[name]
		for _, r := range sp.cfg.Reserved {
			r.Space = name
			if r.End <= sp.observed.Load() {
				s.log.WithFields(logrus.Fields{
					"action":   "sequence_reserve",
					"space":    name,
					"range":    r.String(),
					"boundary": sp.observed.Load(),
				}).Info("reserved range already below boundary, skipping")
				continue
			}
			if err := s.AllocateSpecific(ctx, name, r); err != nil {
				return fmt.Errorf("install reservation %s: %w", r, err)
			}
		}
	}

	s.open.Store(true)
	s.log.WithField("action", "sequence_server_open").
		WithField("spaces", len(s.spaces)).
		Info("sequence server ready")
	return nil
}

func (s *Server) recover(ctx context.Context, sp *space) error {
	if err := s.store.Init(ctx, sp.cfg.Name, sp.cfg.Min); err != nil {
		return err
	}
	boundary, err := s.store.Read(ctx, sp.cfg.Name)
	if err != nil {
		return err
	}

	if err := sp.lock(ctx); err != nil {
		return err
	}
	sp.advance(boundary, false)
	sp.unlock()

	s.metrics.ObserveBoundary(sp.cfg.Name, boundary)
	s.log.WithFields(logrus.Fields{
		"action":   "sequence_recover",
		"space":    sp.cfg.Name,
		"boundary": boundary,
	}).Info("recovered sequence space")
	return nil
}

// AllocateRange grants the next width numbers of space. The range is
// returned only after its end has been durably committed as the new
// boundary. If the commit fails the boundary is unchanged.
func (s *Server) AllocateRange(ctx context.Context, rc *RequestContext, name string, width uint64) (sequence.Range, error) {
	return s.allocate(ctx, rc, name, width, kindRange)
}

// AllocateSuper grants a client super range. A zero width selects the
// space's super width, larger widths are rejected.
func (s *Server) AllocateSuper(ctx context.Context, rc *RequestContext, name string, width uint64) (sequence.Range, error) {
	sp, err := s.space(name)
	if err != nil {
		return sequence.Range{}, err
	}
	if width == 0 {
		width = sp.cfg.SuperWidth
	}
	if width > sp.cfg.SuperWidth {
		return sequence.Range{}, fmt.Errorf("%w: %d exceeds super width %d of space %q",
			sequence.ErrInvalidWidth, width, sp.cfg.SuperWidth, name)
	}
	return s.allocate(ctx, rc, name, width, kindSuper)
}

// AllocateMeta grants a range of the space's normal width.
func (s *Server) AllocateMeta(ctx context.Context, rc *RequestContext, name string) (sequence.Range, error) {
	sp, err := s.space(name)
	if err != nil {
		return sequence.Range{}, err
	}
	return s.allocate(ctx, rc, name, sp.cfg.NormalWidth, kindMeta)
}

func (s *Server) allocate(ctx context.Context, rc *RequestContext, name string, width uint64, kind string) (sequence.Range, error) {
	if s.closed.Load() {
		return sequence.Range{}, sequence.ErrClosed
	}
	if !s.open.Load() {
		return sequence.Range{}, sequence.ErrNotOpen
	}
	sp, err := s.space(name)
	if err != nil {
		return sequence.Range{}, err
	}
	if width == 0 {
		return sequence.Range{}, fmt.Errorf("%w: width must be greater than 0", sequence.ErrInvalidWidth)
	}
	if rc == nil {
		rc = NewRequestContext(name)
	}
	rc.Space = name
	log := s.log.WithFields(rc.Fields()).WithField("kind", kind)

	if err := sp.lock(ctx); err != nil {
		s.metrics.AllocationFailed(name, "cancelled")
		return sequence.Range{}, fmt.Errorf("acquire space %q: %w", name, err)
	}
	defer sp.unlock()

	if err := sp.enter(); err != nil {
		log.WithError(err).Error("space entered concurrently")
		s.metrics.AllocationFailed(name, "concurrency")
		return sequence.Range{}, err
	}
	defer sp.leave()

	candidate, err := sequence.NewRange(name, sp.boundary, width)
	if err == nil && candidate.End > sp.max {
		err = fmt.Errorf("%w: space %q cannot grant %d numbers above %d",
			sequence.ErrSpaceExhausted, name, width, sp.boundary)
	}
	if err != nil {
		s.metrics.AllocationFailed(name, "exhausted")
		return sequence.Range{}, err
	}
	rc.Pending = candidate

	// last point at which a cancelled request leaves no trace
	if err := ctx.Err(); err != nil {
		rc.Pending = sequence.Range{}
		s.metrics.AllocationFailed(name, "cancelled")
		return sequence.Range{}, fmt.Errorf("allocate in space %q: %w", name, err)
	}

	// once started, the commit runs to completion regardless of the caller
	if err := s.store.Update(context.WithoutCancel(ctx), name, candidate.End, true); err != nil {
		rc.Pending = sequence.Range{}
		s.metrics.AllocationFailed(name, "commit")
		log.WithError(err).WithField("range", candidate.String()).Warn("commit of range failed")
		return sequence.Range{}, fmt.Errorf("%w: space %q: %w", sequence.ErrAllocation, name, err)
	}

	sp.advance(candidate.End, true)
	s.metrics.ObserveBoundary(name, candidate.End)
	s.metrics.RangeGranted(name, kind, width)
	log.WithField("range", candidate.String()).Debug("granted range")
	return candidate, nil
}

// AllocateSpecific reserves an explicit range before normal traffic. The
// range must start at or above the committed boundary; the numbers between
// the boundary and the range start are skipped.
func (s *Server) AllocateSpecific(ctx context.Context, name string, explicit sequence.Range) error {
	if s.closed.Load() {
		return sequence.ErrClosed
	}
	if !s.recovered.Load() {
		return sequence.ErrNotOpen
	}
	sp, err := s.space(name)
	if err != nil {
		return err
	}
	if explicit.Space == "" {
		explicit.Space = name
	}
	if explicit.Space != name {
		return fmt.Errorf("%w: range %s does not belong to space %q", sequence.ErrInvalidRange, explicit, name)
	}
	if explicit.Start >= explicit.End {
		return fmt.Errorf("%w: %s is empty", sequence.ErrInvalidRange, explicit)
	}

	if err := sp.lock(ctx); err != nil {
		return fmt.Errorf("acquire space %q: %w", name, err)
	}
	defer sp.unlock()

	if err := sp.enter(); err != nil {
		s.log.WithError(err).WithField("space", name).Error("space entered concurrently")
		return err
	}
	defer sp.leave()

	if sp.trafficStarted {
		return fmt.Errorf("reserve %s: %w", explicit, sequence.ErrTrafficStarted)
	}
	if explicit.Start < sp.boundary {
		return fmt.Errorf("%w: %s overlaps committed boundary %d", sequence.ErrReservationConflict, explicit, sp.boundary)
	}
	if explicit.End > sp.max {
		return fmt.Errorf("%w: %s exceeds max %d", sequence.ErrSpaceExhausted, explicit, sp.max)
	}

	if err := s.store.Update(context.WithoutCancel(ctx), name, explicit.End, true); err != nil {
		s.metrics.AllocationFailed(name, "commit")
		return fmt.Errorf("%w: reserve %s: %w", sequence.ErrAllocation, explicit, err)
	}

	sp.advance(explicit.End, false)
	s.metrics.ObserveBoundary(name, explicit.End)
	s.metrics.RangeGranted(name, kindSpecific, explicit.Width())
	s.log.WithFields(logrus.Fields{
		"action": "sequence_reserve",
		"space":  name,
		"range":  explicit.String(),
	}).Info("reserved sequence range")
	return nil
}

// Boundary returns the in-memory boundary of a space.
func (s *Server) Boundary(name string) (uint64, error) {
	sp, err := s.space(name)
	if err != nil {
		return 0, err
	}
	return sp.observed.Load(), nil
}

// Spaces returns a snapshot of all spaces ordered by name.
func (s *Server) Spaces() []SpaceInfo {
	infos := make([]SpaceInfo, 0, len(s.spaces))
	for _, name := range s.names() {
		sp := s.spaces[name]
		infos = append(infos, SpaceInfo{
			Name:           name,
			Boundary:       sp.observed.Load(),
			Min:            sp.cfg.Min,
			Max:            sp.max,
			NormalWidth:    sp.cfg.NormalWidth,
			SuperWidth:     sp.cfg.SuperWidth,
			TrafficStarted: sp.started.Load(),
		})
	}
	return infos
}

// Close releases the store. Allocations fail with ErrClosed afterwards.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close sequence store: %w", err)
	}
	s.log.WithField("action", "sequence_server_close").Info("sequence server closed")
	return nil
}

func (s *Server) space(name string) (*space, error) {
	sp, ok := s.spaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sequence.ErrUnknownSpace, name)
	}
	return sp, nil
}

func (s *Server) names() []string {
	names := make([]string, 0, len(s.spaces))
	for name := range s.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsClientError reports whether err is caused by the request rather than by
// the server or its store.
func IsClientError(err error) bool {
	return errors.Is(err, sequence.ErrUnknownSpace) ||
		errors.Is(err, sequence.ErrInvalidWidth) ||
		errors.Is(err, sequence.ErrInvalidRange) ||
		errors.Is(err, sequence.ErrReservationConflict) ||
		errors.Is(err, sequence.ErrTrafficStarted)
}
