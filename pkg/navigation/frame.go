package navigation

import (
	"context"

	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// FrameKind identifies what a frame shows.
type FrameKind string

const (
	FrameFallback FrameKind = "fallback"
	FrameRender   FrameKind = "render"
	FrameError    FrameKind = "error"
)

// Frame is one visible state of a navigation.
type Frame struct {
	Kind FrameKind
	Seq  uint64

	// Path is the canonical path when the navigation matched, else the
	// requested path.
	Path   string
	Status int
	Node   *vdom.VNode

	// Err is set on error frames.
	Err error

	// Match is nil when nothing matched.
	Match *router.Match
}

// Sink receives the frames of a navigator. Emit is never called
// concurrently by one navigator.
type Sink interface {
	Emit(ctx context.Context, f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Frame) error

// Emit implements Sink.
func (fn SinkFunc) Emit(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}
