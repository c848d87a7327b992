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

package state

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	seqrepo "github.com/weaviate/seqalloc/adapters/repos/sequence"
	"github.com/weaviate/seqalloc/usecases/config"
	"github.com/weaviate/seqalloc/usecases/monitoring"
	"github.com/weaviate/seqalloc/usecases/sequence"
)

// State is the only source of application-wide state. Components receive
// it, or the parts of it they need, instead of reaching for globals.
type State struct {
	Logger       *logrus.Logger
	ServerConfig *config.SeqallocConfig
	Registry     *prometheus.Registry
	Metrics      *monitoring.PrometheusMetrics

	Store  *sequence.Store
	Server *sequence.Server
	Client *sequence.Client
}

// New creates the state of a process. Metrics are registered against a
// registry of its own, which stays empty when monitoring is disabled.
func New(cfg *config.SeqallocConfig, logger *logrus.Logger) (*State, error) {
	s := &State{
		Logger:       logger,
		ServerConfig: cfg,
		Registry:     prometheus.NewRegistry(),
	}

	if !cfg.Config.Monitoring.Enabled {
		s.Metrics = monitoring.NewNoopMetrics()
		return s, nil
	}

	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := monitoring.NewPrometheusMetrics(s.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	s.Metrics = metrics
	return s, nil
}

// NewBackend creates and opens the persistence backend described by p.
func NewBackend(p config.Persistence, logger logrus.FieldLogger) (sequence.Backend, error) {
	switch p.Backend {
	case config.BackendBolt:
		b := seqrepo.NewBoltBackend(p.DataPath, logger)
		if err := b.Open(); err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendSQLite:
		b := seqrepo.NewSQLiteBackend(p.DataPath, logger)
		if err := b.Open(); err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendMemory:
		logger.WithField("action", "startup").
			Warn("memory persistence backend configured, boundaries are lost on restart")
		return seqrepo.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", p.Backend)
	}
}

// OpenServer opens the store and recovers every configured space. The
// server is ready to allocate once it returns without error.
func (s *State) OpenServer(ctx context.Context) error {
	cfg := s.ServerConfig.Config

	backend, err := NewBackend(cfg.Persistence, s.Logger)
	if err != nil {
		return fmt.Errorf("open persistence backend: %w", err)
	}
	s.Store = sequence.NewStore(backend, s.Logger, s.Metrics)

	server, err := sequence.NewServer(sequence.ServerConfig{
		Spaces:  cfg.Spaces,
		Logger:  s.Logger,
		Metrics: s.Metrics,
	}, s.Store)
	if err != nil {
		return multierror.Append(fmt.Errorf("create sequence server: %w", err), s.Store.Close())
	}
	if err := server.Open(ctx); err != nil {
		return multierror.Append(fmt.Errorf("open sequence server: %w", err), s.Store.Close())
	}
	s.Server = server
	return nil
}

// OpenClient creates the allocation client of the process on top of remote.
func (s *State) OpenClient(remote sequence.Remote) *sequence.Client {
	cfg := s.ServerConfig.Config.Client
	s.Client = sequence.NewClient(sequence.ClientConfig{
		Name:    cfg.Name,
		Width:   cfg.Width,
		Logger:  s.Logger,
		Metrics: s.Metrics,
	}, remote)
	return s.Client
}

// Close tears down everything opened through the state.
func (s *State) Close() error {
	var result *multierror.Error
	if s.Server != nil {
		if err := s.Server.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	} else if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
