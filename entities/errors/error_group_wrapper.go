//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
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

// ErrorGroupWrapper embeds errgroup.Group and adds panic recovery to each
// spawned task. A recovered panic is turned into a regular error so that
// Wait reports it like any other task failure.
type ErrorGroupWrapper struct {
	*errgroup.Group

	mu          sync.Mutex
	returnError error

	logger logrus.FieldLogger
}

// NewErrorGroupWrapper creates a new ErrorGroupWrapper.
func NewErrorGroupWrapper(logger logrus.FieldLogger) *ErrorGroupWrapper {
	return &ErrorGroupWrapper{
		Group:  new(errgroup.Group),
		logger: logger,
	}
}

// NewErrorGroupWithContextWrapper is like NewErrorGroupWrapper, but the
// returned context is canceled the first time a task fails, so sibling
// tasks can abort early.
func NewErrorGroupWithContextWrapper(logger logrus.FieldLogger, ctx context.Context) (*ErrorGroupWrapper, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	return &ErrorGroupWrapper{
		Group:  eg,
		logger: logger,
	}, ctx
}

// Go overrides the Go method to add panic recovery logic.
func (egw *ErrorGroupWrapper) Go(f func() error) {
	egw.Group.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				egw.logger.Errorf("recovered from panic: %v", r)
				debug.PrintStack()

				// keep the first panic; tasks may panic concurrently
				egw.mu.Lock()
				if egw.returnError == nil {
					egw.returnError = fmt.Errorf("panic occurred: %v", r)
				}
				egw.mu.Unlock()
			}
		}()
		return f()
	})
}

// Wait waits for all goroutines to finish and returns the first non-nil
// error, including errors converted from panics.
func (egw *ErrorGroupWrapper) Wait() error {
	if err := egw.Group.Wait(); err != nil {
		return err
	}

	egw.mu.Lock()
	defer egw.mu.Unlock()
	return egw.returnError
}
