// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package summary

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

const (
	// DefaultBackend is the name of the TensorBoard event file backend.
	DefaultBackend = "tfevents"

	tfeventsImportPath = "github.com/mia-platform/fedlog/internal/summary/tfevents"
)

var (
	// ErrMissingDependency is matched by every MissingDependencyError.
	ErrMissingDependency = errors.New("missing summary dependency")

	registryLock sync.RWMutex
	backends     = map[string]Backend{}
)

// Ensure MissingDependencyError implements the error interface.
var _ error = &MissingDependencyError{}

// MissingDependencyError is returned when persistence is requested with a backend that is not
// linked in the running binary.
type MissingDependencyError struct {
	Backend string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf(`This feature requires the %q summary backend, but it is not available.

Enable it by adding the following import to your main package:

  import _ %q

The written event files are read with TensorBoard. If you do not otherwise need TensorFlow,
we recommend installing the smaller CPU-only version via

  pip install tensorflow-cpu

If you may need to use TensorFlow with GPU, please install the full version via

  pip install tensorflow

Available summary backends: %s
`, e.Backend, backendImportPath(e.Backend), availableBackends())
}

func (e *MissingDependencyError) Unwrap() error {
	return ErrMissingDependency
}

func availableBackends() string {
	names := Backends()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func backendImportPath(name string) string {
	if name == DefaultBackend {
		return tfeventsImportPath
	}
	return "<package registering " + name + ">"
}

// Register makes a backend available by name. Registering the same name twice, or a nil
// backend, panics.
func Register(name string, backend Backend) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if backend == nil {
		panic("summary: Register backend is nil")
	}
	if _, dup := backends[name]; dup {
		panic("summary: Register called twice for backend " + name)
	}
	backends[name] = backend
}

// Lookup returns the backend registered as name or a *MissingDependencyError.
func Lookup(name string) (Backend, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	backend, ok := backends[name]
	if !ok {
		return nil, &MissingDependencyError{Backend: name}
	}
	return backend, nil
}

// Backends returns the sorted names of the registered backends.
func Backends() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	return slices.Sorted(maps.Keys(backends))
}

// unregister removes a backend. It is only used by tests.
func unregister(name string) {
	registryLock.Lock()
	defer registryLock.Unlock()

	delete(backends, name)
}
