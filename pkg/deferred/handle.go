package deferred

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNilFetch is returned when a handle is created without a fetch function.
	ErrNilFetch = errors.New("deferred: nil fetch function")

	// ErrEmptyKey is returned when a registry key is empty.
	ErrEmptyKey = errors.New("deferred: empty key")
)

// State is the lifecycle state of a Handle.
type State int

const (
	Unrequested State = iota
	Loading
	Ready
	Failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Unrequested:
		return "unrequested"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetch produces the value of a handle. It is called at most once.
type Fetch[T any] func(ctx context.Context) (T, error)

// Handle is a lazily fetched value.
type Handle[T any] struct {
	key    string
	fetch  Fetch[T]
	group  *singleflight.Group
	logger *slog.Logger

	mu    sync.Mutex
	state State
	value T
	err   error
}

// New creates a standalone handle.
func New[T any](key string, fetch Fetch[T]) (*Handle[T], error) {
	if fetch == nil {
		return nil, ErrNilFetch
	}
	return newHandle(key, fetch, &singleflight.Group{}, slog.Default()), nil
}

func newHandle[T any](key string, fetch Fetch[T], group *singleflight.Group, logger *slog.Logger) *Handle[T] {
	return &Handle[T]{
		key:    key,
		fetch:  fetch,
		group:  group,
		logger: logger.With("module", key),
	}
}

// Key returns the handle's key.
func (h *Handle[T]) Key() string {
	return h.key
}

// State returns the current state.
func (h *Handle[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Peek returns the cached outcome without starting a fetch. done is false
// while the handle is unrequested or loading.
func (h *Handle[T]) Peek() (value T, done bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case Ready:
		return h.value, true, nil
	case Failed:
		return value, true, h.err
	}
	return value, false, nil
}

// Start begins the fetch if it has not started yet and returns immediately.
func (h *Handle[T]) Start(ctx context.Context) {
	if _, done, _ := h.Peek(); done {
		return
	}
	h.begin(ctx)
}

// Resolve returns the fetched value, starting the fetch if needed. It
// returns early with ctx.Err() if ctx ends first.
func (h *Handle[T]) Resolve(ctx context.Context) (T, error) {
	if value, done, err := h.Peek(); done {
		return value, err
	}

	ch := h.begin(ctx)
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		value, _ := res.Val.(T)
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (h *Handle[T]) begin(ctx context.Context) <-chan singleflight.Result {
	h.mu.Lock()
	if h.state == Unrequested {
		h.state = Loading
	}
	h.mu.Unlock()

	// The fetch must outlive the caller that triggered it.
	fetchCtx := context.WithoutCancel(ctx)
	return h.group.DoChan(h.key, func() (any, error) {
		return h.load(fetchCtx)
	})
}

// load runs the fetch unless an earlier flight already settled the handle.
func (h *Handle[T]) load(ctx context.Context) (any, error) {
	if value, done, err := h.Peek(); done {
		return value, err
	}

	start := time.Now()
	value, err := h.fetch(ctx)

	h.mu.Lock()
	if err != nil {
		h.state = Failed
		h.err = err
	} else {
		h.state = Ready
		h.value = value
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("module fetch failed", "duration", time.Since(start), "error", err)
		return value, err
	}
	h.logger.Info("module fetched", "duration", time.Since(start))
	return value, nil
}
