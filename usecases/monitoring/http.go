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
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
)

// InstrumentHandler wraps next so that every request is counted as in
// flight while it runs and its duration is observed by route and status.
func (pm *PrometheusMetrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	if pm == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight := pm.InflightRequests.WithLabelValues(r.Method, route)
		inflight.Inc()
		defer inflight.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)
		pm.Requests.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).
			Observe(m.Duration.Seconds())
	})
}
