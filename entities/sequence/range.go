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

// Package sequence holds the value types shared by the sequence store, server
// and client: half-open ranges of the numberline and the error taxonomy.
package sequence

import (
	"fmt"
	"math"
)

// Unbounded is the default exclusive upper limit of a space.
const Unbounded = uint64(math.MaxUint64)

// Range is a half-open interval [Start, End) of sequence numbers owned by a
// single allocation space.
type Range struct {
	Space string `json:"space" yaml:"space"`
	Start uint64 `json:"start" yaml:"start"`
	End   uint64 `json:"end" yaml:"end"`
}

// NewRange returns the range of width numbers starting at start. It fails
// if the range would wrap around the numberline.
func NewRange(space string, start, width uint64) (Range, error) {
	if width > math.MaxUint64-start {
		return Range{}, fmt.Errorf("%w: start %d width %d overflows", ErrSpaceExhausted, start, width)
	}
	return Range{Space: space, Start: start, End: start + width}, nil
}

func (r Range) Width() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// IsEmpty reports whether the range contains no numbers.
func (r Range) IsEmpty() bool { return r.End <= r.Start }

// IsValid reports whether Start <= End.
func (r Range) IsValid() bool { return r.Start <= r.End }

func (r Range) Contains(n uint64) bool {
	return n >= r.Start && n < r.End
}

// Overlaps reports whether both ranges belong to the same space and share at
// least one number.
func (r Range) Overlaps(o Range) bool {
	if r.Space != o.Space || r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s:[%#x-%#x)", r.Space, r.Start, r.End)
}
