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
	"encoding/json"
	"net/http"

	"github.com/weaviate/seqalloc/adapters/handlers/rest/state"
	usesequence "github.com/weaviate/seqalloc/usecases/sequence"
)

type debugPayload struct {
	Spaces []usesequence.SpaceInfo `json:"spaces"`
	Leases []usesequence.LeaseInfo `json:"leases,omitempty"`
}

func debugSequences(appState *state.State) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		payload := debugPayload{Spaces: appState.Server.Spaces()}
		if appState.Client != nil {
			payload.Leases = appState.Client.Leases()
		}

		rc := usesequence.NewRequestContext("")
		buf := rc.Buffer()
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			appState.Logger.WithError(err).Error("encode debug sequences")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "application/json")
		w.Write(buf.Bytes())
	})
}
