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

	"github.com/weaviate/seqalloc/entities/sequence"
)

// LocalRemote serves a Client from a Server in the same process.
type LocalRemote struct {
	server *Server
}

func NewLocalRemote(server *Server) *LocalRemote {
	return &LocalRemote{server: server}
}

func (l *LocalRemote) AllocateSuper(ctx context.Context, space string, width uint64) (sequence.Range, error) {
	return l.server.AllocateSuper(ctx, NewRequestContext(space), space, width)
}
