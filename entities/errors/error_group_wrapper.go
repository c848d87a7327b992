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
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrorGroupWrapper is an errgroup.Group whose goroutines recover from panics
// and report them as the group's error.
type ErrorGroupWrapper struct {
	*errgroup.Group
	logger logrus.FieldLogger

	mu          sync.Mutex
	returnError error
}

// NewErrorGroupWrapper creates a group bound to ctx. The returned context is
// cancelled as soon as one goroutine fails.
func NewErrorGroupWrapper(ctx context.Context, logger logrus.FieldLogger) (*ErrorGroupWrapper, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &ErrorGroupWrapper{Group: g, logger: logger}, gctx
}

// Go overrides the Go method to add panic recovery logic.
func (egw *ErrorGroupWrapper) Go(f func() error, localVars ...interface{}) {
	egw.Group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				egw.logger.WithField("action", "recover_panic").
					Errorf("Recovered from panic: %v, local variables %v", r, localVars)
				debug.PrintStack()
				err = fmt.Errorf("panic occurred: %v", r)
				egw.mu.Lock()
				egw.returnError = err
				egw.mu.Unlock()
			}
		}()
		return f()
	})
}

// Wait waits for all goroutines to finish and returns the first non-nil error.
func (egw *ErrorGroupWrapper) Wait() error {
	if err := egw.Group.Wait(); err != nil {
		return err
	}
	egw.mu.Lock()
	defer egw.mu.Unlock()
	return egw.returnError
}
