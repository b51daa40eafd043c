// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"sync"
	"testing"

	"github.com/mia-platform/fedlog/internal/summary"
)

var (
	_ summary.Backend = &Backend{}
	_ summary.Writer  = &Writer{}
)

// Record is a summary captured by a fake Writer.
type Record struct {
	Kind   string
	Tag    string
	Values []float64
	Step   int64
}

const (
	ScalarKind    = "scalar"
	HistogramKind = "histogram"
)

// Backend is a spy summary.Backend keeping every opened writer in memory.
type Backend struct {
	tb testing.TB

	// OpenErr is returned by Open when set.
	OpenErr error
	// WriteErr is returned by every write of the writers opened after it is set.
	WriteErr error

	OpenedDirs []string
	Writers    map[string]*Writer

	lock sync.Mutex
}

func NewBackend(tb testing.TB) *Backend {
	tb.Helper()
	return &Backend{
		tb:      tb,
		Writers: make(map[string]*Writer),
	}
}

func (b *Backend) Open(dir string) (summary.Writer, error) {
	b.tb.Helper()
	b.lock.Lock()
	defer b.lock.Unlock()

	b.OpenedDirs = append(b.OpenedDirs, dir)
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}

	writer := &Writer{tb: b.tb, Dir: dir, writeErr: b.WriteErr}
	b.Writers[dir] = writer
	return writer, nil
}

// Writer is a spy summary.Writer.
type Writer struct {
	tb       testing.TB
	writeErr error

	Dir     string
	Records []Record
	Flushes int
	Closed  bool

	lock sync.Mutex
}

func (w *Writer) Scalar(tag string, value float64, step int64) error {
	w.tb.Helper()
	return w.record(Record{Kind: ScalarKind, Tag: tag, Values: []float64{value}, Step: step})
}

func (w *Writer) Histogram(tag string, values []float64, step int64) error {
	w.tb.Helper()
	return w.record(Record{Kind: HistogramKind, Tag: tag, Values: values, Step: step})
}

func (w *Writer) record(record Record) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.writeErr != nil {
		return w.writeErr
	}
	w.Records = append(w.Records, record)
	return nil
}

func (w *Writer) Flush() error {
	w.tb.Helper()
	w.lock.Lock()
	defer w.lock.Unlock()

	w.Flushes++
	return nil
}

func (w *Writer) Close() error {
	w.tb.Helper()
	w.lock.Lock()
	defer w.lock.Unlock()

	w.Closed = true
	return nil
}
