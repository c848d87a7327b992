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

package clients

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultInitialBackOff = 50 * time.Millisecond
	defaultMaxBackOff     = 2 * time.Second
	defaultMaxRetries     = 5
)

// newExponentialBackoff returns the retry policy of remote allocations. It
// stops after maxRetries retries or as soon as ctx is done.
func newExponentialBackoff(ctx context.Context, initial, max time.Duration, maxRetries uint64) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.MaxInterval = max
	// bounded by retries and ctx instead
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)
}
