package server

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMessage is returned for socket messages that are not valid
	// navigation requests.
	ErrBadMessage = errors.New("server: bad socket message")

	// ErrNoRoutes is returned by New without a route table.
	ErrNoRoutes = errors.New("server: route table is required")
)

// SocketError wraps an error with socket context for logging.
type SocketError struct {
	ConnID string
	Op     string
	Err    error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("server: socket %s: %s: %v", e.ConnID, e.Op, e.Err)
}

func (e *SocketError) Unwrap() error {
	return e.Err
}
