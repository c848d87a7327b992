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

package seqapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/seqalloc/entities/errors"
	"github.com/weaviate/seqalloc/entities/sequence"
	usesequence "github.com/weaviate/seqalloc/usecases/sequence"
)

// AllocateRequest is the body of the super and meta routes. Width is only
// read by the super route, zero selects the width of the space.
type AllocateRequest struct {
	Space string `json:"space"`
	Width uint64 `json:"width,omitempty"`
}

type AllocateResponse struct {
	Space string `json:"space"`
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// ErrorResponse is the body of every failed allocation. Kinds names the
// sentinel errors of the failure, it is empty for malformed requests.
type ErrorResponse struct {
	Error string   `json:"error"`
	Kinds []string `json:"kinds,omitempty"`
}

type allocator interface {
	AllocateSuper(ctx context.Context, rc *usesequence.RequestContext, space string, width uint64) (sequence.Range, error)
	AllocateMeta(ctx context.Context, rc *usesequence.RequestContext, space string) (sequence.Range, error)
	AllocateSpecific(ctx context.Context, space string, explicit sequence.Range) error
}

type Sequences struct {
	server allocator
	logger logrus.FieldLogger
}

func NewSequences(server allocator, logger logrus.FieldLogger) *Sequences {
	return &Sequences{server: server, logger: logger.WithField("component", "sequence_api")}
}

func (s *Sequences) Super() http.Handler {
	return s.allocate(func(ctx context.Context, rc *usesequence.RequestContext, req AllocateRequest) (sequence.Range, error) {
		return s.server.AllocateSuper(ctx, rc, req.Space, req.Width)
	})
}

func (s *Sequences) Meta() http.Handler {
	return s.allocate(func(ctx context.Context, rc *usesequence.RequestContext, req AllocateRequest) (sequence.Range, error) {
		return s.server.AllocateMeta(ctx, rc, req.Space)
	})
}

type allocateFunc func(ctx context.Context, rc *usesequence.RequestContext, req AllocateRequest) (sequence.Range, error)

func (s *Sequences) allocate(fn allocateFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		if r.Method != http.MethodPost {
			http.Error(w, "405 Method not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("content-type") != "application/json" {
			http.Error(w, "415 Unsupported Media Type", http.StatusUnsupportedMediaType)
			return
		}

		var req AllocateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("decode body: %w", err), http.StatusBadRequest)
			return
		}
		if req.Space == "" {
			writeError(w, errors.New("space must be set"), http.StatusBadRequest)
			return
		}

		rc := usesequence.NewRequestContext(req.Space)
		granted, err := fn(r.Context(), rc, req)
		if err != nil {
			s.fail(w, rc, err)
			return
		}

		buf := rc.Buffer()
		if err := json.NewEncoder(buf).Encode(AllocateResponse{
			Space: granted.Space,
			Start: granted.Start,
			End:   granted.End,
		}); err != nil {
			http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "application/json")
		w.Write(buf.Bytes())
	})
}

// Specific installs an explicit reservation. It is only accepted while the
// space has not served a range since the server was opened. The traffic
// state is not persisted, so after a restart reservations are accepted
// again until the first grant, but never below the committed boundary.
func (s *Sequences) Specific() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		if r.Method != http.MethodPost {
			http.Error(w, "405 Method not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("content-type") != "application/json" {
			http.Error(w, "415 Unsupported Media Type", http.StatusUnsupportedMediaType)
			return
		}

		var req AllocateResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("decode body: %w", err), http.StatusBadRequest)
			return
		}

		rc := usesequence.NewRequestContext(req.Space)
		explicit := sequence.Range{Space: req.Space, Start: req.Start, End: req.End}
		if err := s.server.AllocateSpecific(r.Context(), req.Space, explicit); err != nil {
			s.fail(w, rc, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Sequences) fail(w http.ResponseWriter, rc *usesequence.RequestContext, err error) {
	status := StatusFor(err)
	log := s.logger.WithFields(rc.Fields()).WithField("status", status).WithError(err)
	switch {
	case usesequence.IsClientError(err):
		log.Debug("rejected allocation request")
	case status >= http.StatusInternalServerError:
		log.Error("allocation failed")
	default:
		log.Warn("allocation failed")
	}
	writeError(w, err, status)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("content-type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Kinds: sequence.Kinds(err)})
}

// StatusFor maps an allocation error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sequence.ErrUnknownSpace):
		return http.StatusNotFound
	case errors.Is(err, sequence.ErrInvalidWidth), errors.Is(err, sequence.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, sequence.ErrSpaceExhausted),
		errors.Is(err, sequence.ErrReservationConflict),
		errors.Is(err, sequence.ErrTrafficStarted):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case enterrors.IsTransient(err),
		errors.Is(err, sequence.ErrNotOpen),
		errors.Is(err, sequence.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
