package remote

import (
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-refsync/models"
)

// Registry holds the libraries served by the reference API.
type Registry struct {
	mu        sync.RWMutex
	libraries map[string]*Library
	now       func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces time.Now as the modification time source of the
// libraries added afterwards.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		libraries: make(map[string]*Library),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddLibrary returns the library with the given type and id, creating it
// when missing.
func (r *Registry) AddLibrary(libType models.LibraryType, remoteID int64) *Library {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := libraryKey(libType, remoteID)
	if lib, ok := r.libraries[key]; ok {
		return lib
	}
	lib := newLibrary(libType, remoteID, r.now)
	r.libraries[key] = lib
	return lib
}

// Library looks a library up.
func (r *Registry) Library(libType models.LibraryType, remoteID int64) (*Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lib, ok := r.libraries[libraryKey(libType, remoteID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrLibraryNotFound, libType, remoteID)
	}
	return lib, nil
}

func libraryKey(libType models.LibraryType, remoteID int64) string {
	return fmt.Sprintf("%s/%d", libType, remoteID)
}
