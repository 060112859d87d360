// Package memstore provides an in-memory identity storage. It backs tests,
// the memory storage mode, and the degraded fallback when Redis writes fail.
package memstore

import (
	"context"
	"sync"

	"github.com/ohitsyle/jusq-sub002/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.StorageFactory  = (*Storage)(nil)
	_ ports.StorageReleaser = (*Storage)(nil)
	_ ports.Storage         = (*Scoped)(nil)
)

// Storage holds one key/value map per device.
type Storage struct {
	mu      sync.Mutex
	devices map[string]*Scoped
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{devices: make(map[string]*Scoped)}
}

// Scope returns the storage view of one device, creating it on first use.
//
//nolint:ireturn // callers only depend on the port.
func (s *Storage) Scope(deviceID string) ports.Storage {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.devices[deviceID]
	if !ok {
		sc = NewScoped()
		s.devices[deviceID] = sc
	}
	return sc
}

// Release forgets the map of deviceID when it holds no keys. Maps with a
// session are kept so an evicted device is still logged in on its next visit.
func (s *Storage) Release(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.devices[deviceID]; ok && sc.Len() == 0 {
		delete(s.devices, deviceID)
	}
}

// Devices returns how many device maps are held.
func (s *Storage) Devices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// Scoped is a single device's key/value map.
type Scoped struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewScoped creates a standalone device map.
func NewScoped() *Scoped {
	return &Scoped{data: make(map[string]string)}
}

func (s *Scoped) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Scoped) SetMany(_ context.Context, values map[string]string, del ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = v
	}
	for _, k := range del {
		delete(s.data, k)
	}
	return nil
}

func (s *Scoped) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Set writes a single raw value. Tests use it to plant corrupted records.
func (s *Scoped) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Len returns how many keys are stored.
func (s *Scoped) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
