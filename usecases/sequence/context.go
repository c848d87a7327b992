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
	"bytes"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/seqalloc/entities/sequence"
)

// RequestContext is the scratch state of one allocation call. It is created
// per call and must not be shared between concurrent calls or reused.
type RequestContext struct {
	ID    string
	Space string
	// Pending is the range being negotiated. It is set before the commit
	// and holds the granted range once the call succeeded.
	Pending sequence.Range

	buf bytes.Buffer
}

func NewRequestContext(space string) *RequestContext {
	return &RequestContext{
		ID:    uuid.NewString(),
		Space: space,
	}
}

// Buffer returns the empty scratch buffer of the call.
func (rc *RequestContext) Buffer() *bytes.Buffer {
	rc.buf.Reset()
	return &rc.buf
}

// Fields returns log fields identifying the call.
func (rc *RequestContext) Fields() logrus.Fields {
	return logrus.Fields{
		"request_id": rc.ID,
		"space":      rc.Space,
	}
}
