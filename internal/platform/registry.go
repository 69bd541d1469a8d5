package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type entry struct {
	descriptor Descriptor
	build      Builder
}

// Registry holds all registered platforms. It must be created via NewRegistry
// and passed explicitly to the factory and handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// Register adds a platform under its descriptor key.
func (r *Registry) Register(desc Descriptor, build Builder) error {
	key := normalizeKey(desc.Key)
	if key == "" {
		return fmt.Errorf("platform key is required")
	}
	if build == nil {
		return fmt.Errorf("platform builder is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("platform already registered: %s", key)
	}
	r.entries[key] = entry{descriptor: desc, build: build}
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(desc Descriptor, build Builder) {
	if err := r.Register(desc, build); err != nil {
		panic(err)
	}
}

// IsSupported reports whether the key names a registered platform.
func (r *Registry) IsSupported(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalizeKey(key)]
	return ok
}

// Descriptor returns the metadata for a registered platform.
func (r *Registry) Descriptor(key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[normalizeKey(key)]
	return e.descriptor, ok
}

// Descriptors returns all registered platform descriptors sorted by key.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		items = append(items, e.descriptor)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

// Keys returns all registered platform keys sorted alphabetically.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) builder(key string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[normalizeKey(key)]
	return e.build, ok
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
