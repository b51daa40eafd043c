// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package tfevents

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mia-platform/fedlog/internal/summary"
)

const (
	filePrefix = "events.out.tfevents."
	dirPerm    = 0o755
)

var (
	_ summary.Backend = &Backend{}
	_ summary.Writer  = &eventWriter{}
)

func init() {
	summary.Register(summary.DefaultBackend, New())
}

// Backend opens TensorBoard event file writers.
type Backend struct {
	now      func() time.Time
	hostname func() (string, error)
}

// New returns a backend stamping events with the wall clock.
func New() *Backend {
	return &Backend{
		now:      time.Now,
		hostname: os.Hostname,
	}
}

// Open creates dir if needed and a new event file inside it, starting with the file version event.
func (b *Backend) Open(dir string) (summary.Writer, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating summary directory: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, b.fileName()))
	if err != nil {
		return nil, fmt.Errorf("creating event file: %w", err)
	}

	w := &eventWriter{
		file:   file,
		buffer: bufio.NewWriter(file),
		now:    b.now,
	}

	if err := w.write(Event{FileVersion: fileVersion}); err == nil {
		err = w.Flush()
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// fileName follows the TensorBoard naming so the files are discovered by its loaders:
// events.out.tfevents.<seconds>.<host>.<pid>.<uuid>.v2
func (b *Backend) fileName() string {
	host, err := b.hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	host = strings.ReplaceAll(host, string(filepath.Separator), "_")

	return fmt.Sprintf("%s%010d.%s.%d.%s.v2", filePrefix, b.now().Unix(), host, os.Getpid(), uuid.NewString())
}

type eventWriter struct {
	file   *os.File
	buffer *bufio.Writer
	now    func() time.Time
	closed bool

	lock sync.Mutex
}

func (w *eventWriter) Scalar(tag string, value float64, step int64) error {
	scalar := float32(value)
	return w.write(Event{
		Step:   step,
		Values: []Value{{Tag: tag, Scalar: &scalar}},
	})
}

func (w *eventWriter) Histogram(tag string, values []float64, step int64) error {
	histogram, err := newHistogram(values, defaultBucketCount)
	if err != nil {
		return err
	}

	return w.write(Event{
		Step:   step,
		Values: []Value{{Tag: tag, Histogram: histogram}},
	})
}

func (w *eventWriter) write(event Event) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return fmt.Errorf("writing event: %w", os.ErrClosed)
	}

	event.WallTime = float64(w.now().UnixNano()) / float64(time.Second)
	return writeRecord(w.buffer, event.marshal())
}

func (w *eventWriter) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}
	return w.buffer.Flush()
}

func (w *eventWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	return errors.Join(w.buffer.Flush(), w.file.Close())
}

// ReadEvents decodes every event of an event file stream.
func ReadEvents(r io.Reader) ([]Event, error) {
	reader := bufio.NewReader(r)
	events := make([]Event, 0)
	for {
		payload, err := readRecord(reader)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}

		event, err := unmarshalEvent(payload)
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// EventFiles returns the event files found directly inside dir, sorted by name.
func EventFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, filePrefix+"*"))
}

// ReadDir decodes the events of every event file directly inside dir, in file name order.
func ReadDir(dir string) ([]Event, error) {
	files, err := EventFiles(dir)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for _, name := range files {
		fileEvents, err := readFile(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		events = append(events, fileEvents...)
	}
	return events, nil
}

func readFile(name string) ([]Event, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadEvents(file)
}
