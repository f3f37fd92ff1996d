package router

import (
	"context"

	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// Params holds the parameters extracted from a matched path, decoded.
type Params map[string]string

// Get returns the named parameter or "".
func (p Params) Get(name string) string {
	return p[name]
}

// LoaderArgs is the navigation context handed to a loader.
type LoaderArgs struct {
	// Path is the canonical navigated path.
	Path string

	// Query is the raw query string.
	Query string

	Params Params
}

// LoaderFunc loads the data a route renders. The context is cancelled when
// the navigation is superseded.
type LoaderFunc func(ctx context.Context, args LoaderArgs) (any, error)

// RenderContext is passed to an element when it renders.
type RenderContext struct {
	Route  *Route
	Path   string
	Params Params

	// Data is the value returned by the route's loader, or nil.
	Data any

	// Outlet is the rendered child route, or nil at the leaf.
	Outlet *vdom.VNode
}

// ElementFunc produces the UI of a route.
type ElementFunc func(rc RenderContext) *vdom.VNode

// ErrorElementFunc renders the error boundary of a route. It replaces the
// route's element when the route or one of its descendants failed.
type ErrorElementFunc func(rc RenderContext, err error) *vdom.VNode

// Module is what a deferred page module exports.
type Module struct {
	View   ElementFunc
	Loader LoaderFunc

	// Title is the document title of the page, if it has one.
	Title string
}

// Route is one node of the route table.
type Route struct {
	// Path is relative to the parent. Top-level routes use "/".
	// Segments starting with ":" are parameters; a final "*" matches the
	// rest of the path into the "*" parameter.
	Path string

	// Index marks a route that matches its parent's path exactly.
	Index bool

	// ID identifies the route in logs and metrics. Generated from the
	// route's position when empty.
	ID string

	Element ElementFunc

	// Lazy defers the route's module until the first navigation that
	// needs it. Mutually exclusive with Element.
	Lazy *deferred.Handle[Module]

	// Loader is used when the module does not export one.
	Loader LoaderFunc

	// Fallback is shown in place of the route while its module or data
	// is pending.
	Fallback *vdom.VNode

	ErrorElement ErrorElementFunc

	Children []Route

	pattern  string
	segs     []segment
	index    *Route
	children []*Route
}

// Pattern returns the full path pattern of the route, e.g. "/posts/:id".
// Index routes share their parent's pattern.
func (r *Route) Pattern() string {
	return r.pattern
}

// Deferred reports whether the route's module is fetched lazily.
func (r *Route) Deferred() bool {
	return r.Lazy != nil
}

// Routes returns the compiled children.
func (r *Route) Routes() []*Route {
	return r.children
}

// Ready reports whether the route's module is available without waiting.
// Eager routes are always ready; a failed module counts as settled.
func (r *Route) Ready() bool {
	if r.Lazy == nil {
		return true
	}
	_, done, _ := r.Lazy.Peek()
	return done
}

// HasLoader reports whether the route loads data. For a deferred route
// whose module has not resolved yet the answer is unknown and false is
// returned.
func (r *Route) HasLoader() bool {
	if r.Loader != nil {
		return true
	}
	if r.Lazy == nil {
		return false
	}
	mod, done, err := r.Lazy.Peek()
	return done && err == nil && mod.Loader != nil
}

// Resolve returns the route's module, fetching it first for a deferred
// route. A loader on the route fills in for a module that exports none.
func (r *Route) Resolve(ctx context.Context) (Module, error) {
	if r.Lazy == nil {
		return Module{View: r.Element, Loader: r.Loader}, nil
	}
	mod, err := r.Lazy.Resolve(ctx)
	if err != nil {
		return Module{}, err
	}
	if mod.Loader == nil {
		mod.Loader = r.Loader
	}
	return mod, nil
}

// ResolveLoaderData runs the loader exported by a resolved module. It
// returns nil data when the module has no loader.
func ResolveLoaderData(ctx context.Context, mod Module, args LoaderArgs) (any, error) {
	if mod.Loader == nil {
		return nil, nil
	}
	return mod.Loader(ctx, args)
}

// IndexRoute returns the compiled index child, or nil.
func (r *Route) IndexRoute() *Route {
	return r.index
}
