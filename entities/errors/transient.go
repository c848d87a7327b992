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

package errors

import (
	"errors"

	"github.com/weaviate/seqalloc/entities/sequence"
)

// IsTransient reports whether an allocation failure may succeed when the
// same request is repeated.
func IsTransient(err error) bool {
	switch {
	case errors.Is(err, sequence.ErrTransaction),
		errors.Is(err, sequence.ErrAllocation),
		errors.Is(err, sequence.ErrStoreUnavailable):
		return true
	default:
		return false
	}
}
