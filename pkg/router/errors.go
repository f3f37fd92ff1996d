package router

import (
	"errors"
	"fmt"

	"github.com/vango-dev/lazyblog/pkg/routepath"
)

var (
	// ErrNotFound reports that no route matches a path. Loaders wrap it to
	// signal a missing resource.
	ErrNotFound = errors.New("router: not found")

	// ErrInvalidPath reports a path that cannot be canonicalized.
	ErrInvalidPath = routepath.ErrInvalidPath

	// ErrNoRoutes is returned by New when no routes are given.
	ErrNoRoutes = errors.New("router: no routes")
)

// ConfigError describes an invalid route definition.
type ConfigError struct {
	// Path is the full pattern of the offending route, e.g. "/posts/:id".
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("router: route %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("router: route %q: %s", e.Path, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
