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

import "errors"

var (
	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached during init or read. It is fatal at startup.
	ErrStoreUnavailable = errors.New("sequence store unavailable")

	// ErrTransaction is returned when a boundary update fails. The previous
	// boundary stays in effect.
	ErrTransaction = errors.New("sequence store transaction failed")

	// ErrAllocation is returned by the server when a range could not be
	// committed. The space boundary is unchanged and the call may be retried.
	ErrAllocation = errors.New("sequence allocation failed")

	// ErrReservationConflict is returned when an explicit reservation starts
	// below the committed boundary of its space.
	ErrReservationConflict = errors.New("sequence reservation conflict")

	// ErrRemoteAllocation is returned by the client when a super range
	// could not be obtained from the server.
	ErrRemoteAllocation = errors.New("remote sequence allocation failed")

	// ErrConcurrencyViolation signals that a space was entered concurrently
	// while holding its exclusive access. It is never expected.
	ErrConcurrencyViolation = errors.New("sequence space accessed concurrently")

	ErrUnknownSpace   = errors.New("unknown sequence space")
	ErrInvalidWidth   = errors.New("invalid sequence width")
	ErrInvalidRange   = errors.New("invalid sequence range")
	ErrSpaceExhausted = errors.New("sequence space exhausted")
	ErrTrafficStarted = errors.New("sequence space already serving allocations")
	ErrClosed         = errors.New("sequence server closed")
	ErrNotOpen        = errors.New("sequence server not open")
)

var kinds = []struct {
	kind string
	err  error
}{
	{"unknown_space", ErrUnknownSpace},
	{"invalid_width", ErrInvalidWidth},
	{"invalid_range", ErrInvalidRange},
	{"space_exhausted", ErrSpaceExhausted},
	{"reservation_conflict", ErrReservationConflict},
	{"traffic_started", ErrTrafficStarted},
	{"allocation", ErrAllocation},
	{"transaction", ErrTransaction},
	{"store_unavailable", ErrStoreUnavailable},
	{"concurrency_violation", ErrConcurrencyViolation},
	{"not_open", ErrNotOpen},
	{"closed", ErrClosed},
	{"remote_allocation", ErrRemoteAllocation},
}

// Kinds returns the wire names of every sentinel in the chain of err.
func Kinds(err error) []string {
	var out []string
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			out = append(out, k.kind)
		}
	}
	return out
}

// FromKinds joins the sentinels named by names. Unknown names are ignored,
// nil is returned when none is known.
func FromKinds(names []string) error {
	var errs []error
	for _, name := range names {
		for _, k := range kinds {
			if k.kind == name {
				errs = append(errs, k.err)
				break
			}
		}
	}
	return errors.Join(errs...)
}
