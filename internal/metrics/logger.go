// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package metrics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/mia-platform/fedlog/internal/logger"
	"github.com/mia-platform/fedlog/internal/summary"
)

const loggerName = "fedlog:metrics"

var (
	// ErrSummaryWrite wraps failures of the summary backend that are not value related,
	// like I/O errors.
	ErrSummaryWrite = errors.New("summary write failed")
	// ErrClosed is returned when persisting through a closed Logger.
	ErrClosed = errors.New("metric logger closed")
)

// Option customizes a Logger.
type Option func(*Logger)

// WithBackendName selects the registered summary backend used when a root directory is set.
func WithBackendName(name string) Option {
	return func(l *Logger) {
		l.backendName = name
	}
}

// WithBackend uses backend directly instead of looking it up in the summary registry.
func WithBackend(backend summary.Backend) Option {
	return func(l *Logger) {
		l.backend = backend
	}
}

// Logger records metrics to the diagnostic log and, when rootDir is set, to summary writers.
// It is safe for concurrent use.
type Logger struct {
	rootDir     string
	backendName string
	backend     summary.Backend
	log         logger.Logger

	writers map[string]summary.Writer
	order   []string
	closed  bool

	lock sync.Mutex
}

// NewLogger returns a Logger persisting summaries under rootDir. An empty rootDir disables
// persistence and the summary backend is never resolved.
// Diagnostic lines are written to the logger found in ctx.
func NewLogger(ctx context.Context, rootDir string, opts ...Option) *Logger {
	l := &Logger{
		rootDir:     rootDir,
		backendName: summary.DefaultBackend,
		log:         logger.NamedFromContext(ctx, loggerName),
		writers:     make(map[string]summary.Writer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RootDir returns the configured root directory, empty when persistence is disabled.
func (l *Logger) RootDir() string {
	return l.rootDir
}

// Log records metricName with value for round in the stream writerName.
//
// The only errors returned are a *summary.MissingDependencyError when the backend is not
// available, failures creating the writer and ErrSummaryWrite. Values the backend rejects
// (summary.ErrValue, summary.ErrUnimplemented) are reported in the diagnostic log and
// Log returns nil.
func (l *Logger) Log(writerName, metricName string, value any, round int) error {
	l.log.Info(fmt.Sprintf("round %d %s: %s = %v", round, writerName, metricName, value))

	if l.rootDir == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	writer, err := l.writer(writerName)
	if err != nil {
		return err
	}

	err = record(writer, metricName, value, int64(round))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, summary.ErrValue), errors.Is(err, summary.ErrUnimplemented):
		l.log.Info(fmt.Sprintf("Failed to log summary with exception %s", err))
		return nil
	default:
		return fmt.Errorf("%w: %s/%s: %w", ErrSummaryWrite, writerName, metricName, err)
	}
}

// writer returns the writer registered for name, opening it on first use. It must be called
// with the lock held.
func (l *Logger) writer(name string) (summary.Writer, error) {
	if l.closed {
		return nil, ErrClosed
	}

	if writer, ok := l.writers[name]; ok {
		return writer, nil
	}

	if l.backend == nil {
		backend, err := summary.Lookup(l.backendName)
		if err != nil {
			return nil, err
		}
		l.backend = backend
	}

	writer, err := l.backend.Open(filepath.Join(l.rootDir, name))
	if err != nil {
		return nil, fmt.Errorf("opening summary writer %q: %w", name, err)
	}

	l.log.Debug("summary writer created", "writer", name)
	l.writers[name] = writer
	l.order = append(l.order, name)
	return writer, nil
}

// WriterNames returns the names of the opened writers in creation order.
func (l *Logger) WriterNames() []string {
	l.lock.Lock()
	defer l.lock.Unlock()

	return slices.Clone(l.order)
}

// Flush persists the buffered records of every writer.
func (l *Logger) Flush() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	var errs []error
	for _, name := range l.order {
		if err := l.writers[name].Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flushing summary writer %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer in creation order. Later calls to Log keep emitting diagnostic lines
// but fail with ErrClosed when persistence is enabled.
func (l *Logger) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, name := range l.order {
		if err := l.writers[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing summary writer %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
