package navigation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/lazyblog/pkg/router"
)

var (
	// ErrSuperseded is returned by Navigate when a newer navigation
	// started before this one could commit.
	ErrSuperseded = errors.New("navigation: superseded")

	// ErrNotFound is returned when no route matches, and may be wrapped by
	// loaders to report a missing resource.
	ErrNotFound = router.ErrNotFound
)

// ModuleError reports a deferred module that could not be fetched.
type ModuleError struct {
	Route  string
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("navigation: route %s: module %q: %v", e.Route, e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// LoaderError reports a loader that returned an error.
type LoaderError struct {
	Route string
	Err   error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("navigation: route %s: loader: %v", e.Route, e.Err)
}

func (e *LoaderError) Unwrap() error {
	return e.Err
}

// StatusOf maps a navigation error to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, router.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
