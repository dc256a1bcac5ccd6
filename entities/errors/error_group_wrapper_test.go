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
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorGroupWrapperReturnsTaskError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	eg := NewErrorGroupWrapper(logger)

	eg.Go(func() error { return nil })
	eg.Go(func() error { return errors.New("task failed") })

	err := eg.Wait()
	require.Error(t, err)
	assert.ErrorContains(t, err, "task failed")
}

func TestErrorGroupWrapperRecoversPanic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	eg := NewErrorGroupWrapper(logger)

	eg.Go(func() error { panic("boom") })

	err := eg.Wait()
	require.Error(t, err)
	assert.ErrorContains(t, err, "panic occurred: boom")
}

func TestErrorGroupWrapperConcurrentPanics(t *testing.T) {
	logger, _ := test.NewNullLogger()
	eg := NewErrorGroupWrapper(logger)

	// all tasks panic at the same instant; Wait must still report exactly
	// one panic error
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			start.Wait()
			panic("simultaneous")
		})
	}
	start.Done()

	err := eg.Wait()
	require.Error(t, err)
	assert.ErrorContains(t, err, "panic occurred: simultaneous")
}

func TestErrorGroupWithContextCancelsSiblings(t *testing.T) {
	logger, _ := test.NewNullLogger()
	eg, ctx := NewErrorGroupWithContextWrapper(logger, context.Background())

	released := make(chan struct{})
	eg.Go(func() error {
		defer close(released)
		<-ctx.Done()
		return ctx.Err()
	})
	eg.Go(func() error { return errors.New("first failure") })

	err := eg.Wait()
	require.Error(t, err)
	assert.ErrorContains(t, err, "first failure")
	<-released
}
