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

package synth

import (
	"errors"
	"fmt"
)

// FitError indicates the mixture model could not be estimated from the
// provided sample: too few points, degenerate input, or no component
// surviving the weight threshold.
type FitError struct {
	msg string
}

func NewFitErrorf(format string, args ...interface{}) FitError {
	return FitError{msg: fmt.Sprintf(format, args...)}
}

func (e FitError) Error() string {
	return "fit: " + e.msg
}

// IsFitError reports whether any error in err's chain is a FitError.
func IsFitError(err error) bool {
	var e FitError
	return errors.As(err, &e)
}

// NotFittedError indicates a model operation was called before Fit
// succeeded.
type NotFittedError struct {
	Op string
}

func (e NotFittedError) Error() string {
	return fmt.Sprintf("%s called on unfitted model", e.Op)
}

// ModeRangeError indicates a mode indicator outside [0, valid components).
type ModeRangeError struct {
	Mode  int
	Valid int
}

func (e ModeRangeError) Error() string {
	return fmt.Sprintf("mode indicator %d out of range [0, %d)", e.Mode, e.Valid)
}

// ValidationError indicates a malformed generation request. It is always
// surfaced before any artifact is created.
type ValidationError struct {
	msg string
}

func NewValidationErrorf(format string, args ...interface{}) ValidationError {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string {
	return "validation: " + e.msg
}

// IsValidationError reports whether any error in err's chain is a
// ValidationError.
func IsValidationError(err error) bool {
	var e ValidationError
	return errors.As(err, &e)
}
