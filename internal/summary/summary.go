// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package summary

import (
	"errors"
)

var (
	// ErrValue reports a value the backend cannot represent, like a non-finite histogram
	// or a type that is not numeric.
	ErrValue = errors.New("invalid summary value")
	// ErrUnimplemented reports a summary kind the backend does not support.
	ErrUnimplemented = errors.New("summary operation not implemented")
)

// Writer records summaries for a single output stream.
type Writer interface {
	// Scalar records a single value for tag at step.
	Scalar(tag string, value float64, step int64) error
	// Histogram records the distribution of values for tag at step.
	Histogram(tag string, values []float64, step int64) error
	// Flush persists every buffered record.
	Flush() error
	// Close flushes and releases the writer. It must not be used afterwards.
	Close() error
}

// Backend creates writers rooted at an output directory.
type Backend interface {
	Open(dir string) (Writer, error)
}
