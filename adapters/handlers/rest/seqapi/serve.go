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
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/seqalloc/adapters/handlers/rest/state"
	enterrors "github.com/weaviate/seqalloc/entities/errors"
)

const shutdownTimeout = 10 * time.Second

// NewHandler builds the routes of the allocation server.
func NewHandler(appState *state.State) http.Handler {
	sequences := NewSequences(appState.Server, appState.Logger)
	metrics := appState.Metrics

	mux := http.NewServeMux()
	mux.Handle("/sequences/super", metrics.InstrumentHandler("/sequences/super", sequences.Super()))
	mux.Handle("/sequences/meta", metrics.InstrumentHandler("/sequences/meta", sequences.Meta()))
	mux.Handle("/sequences/specific", metrics.InstrumentHandler("/sequences/specific", sequences.Specific()))
	mux.Handle("/debug/sequences", debugSequences(appState))
	mux.Handle("/metrics", promhttp.HandlerFor(appState.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", index())
	return setupGlobalMiddleware(mux, appState.Logger)
}

// setupGlobalMiddleware applies to every route, including /metrics.
func setupGlobalMiddleware(handler http.Handler, logger logrus.FieldLogger) http.Handler {
	handleCORS := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler
	handler = handleCORS(handler)
	return addLogging(handler, logger)
}

func addLogging(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithField("action", "sequence_api_request").
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			Debug("received request")
		next.ServeHTTP(w, r)
	})
}

// Serve runs the allocation API on the configured bind address until ctx is
// done, then drains open requests.
func Serve(ctx context.Context, appState *state.State) error {
	bind := appState.ServerConfig.Config.Bind
	l, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return ServeListener(ctx, appState, l)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, appState *state.State, l net.Listener) error {
	logger := appState.Logger
	srv := &http.Server{
		Handler:           NewHandler(appState),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("address", l.Addr().String()).
		WithField("action", "sequence_api_startup").
		Info("serving sequence api")

	errc := make(chan error, 1)
	enterrors.GoWrapper(func() {
		errc <- srv.Serve(appState.Metrics.CountingListener(l))
	}, logger)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.WithField("action", "sequence_api_shutdown").Info("sequence api stopped")
	return nil
}

func index() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.String() != "" && r.URL.String() != "/" {
			http.NotFound(w, r)
			return
		}

		payload := map[string]string{
			"description": "sequence range allocation api",
		}

		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})
}
