package deferred

import (
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry maps keys to handles. Handles are created on first use and
// never removed.
type Registry[T any] struct {
	group  singleflight.Group
	logger *slog.Logger

	mu      sync.RWMutex
	handles map[string]*Handle[T]
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for fetch events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry[T any](opts ...RegistryOption) *Registry[T] {
	cfg := registryConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry[T]{
		logger:  cfg.logger.With("component", "deferred"),
		handles: make(map[string]*Handle[T]),
	}
}

// GetOrCreate returns the handle for key, creating it with fetch if it
// does not exist. fetch is ignored when the handle already exists.
func (r *Registry[T]) GetOrCreate(key string, fetch Fetch[T]) (*Handle[T], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	r.mu.RLock()
	h, ok := r.handles[key]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	if fetch == nil {
		return nil, ErrNilFetch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[key]; ok {
		return h, nil
	}
	h = newHandle(key, fetch, &r.group, r.logger)
	r.handles[key] = h
	return h, nil
}

// Get returns the handle for key if it exists.
func (r *Registry[T]) Get(key string) (*Handle[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[key]
	return h, ok
}

// Snapshot returns the state of every handle, keyed by handle key.
func (r *Registry[T]) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.handles))
	for key, h := range r.handles {
		out[key] = h.State()
	}
	return out
}

// Keys returns the registered keys in sorted order.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handles))
	for key := range r.handles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
