package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vango-dev/lazyblog/pkg/routepath"
)

// Router is an immutable, validated route table.
type Router struct {
	roots []*Route
	byID  map[string]*Route
}

// Match is the result of matching a path.
type Match struct {
	// Path is the canonical path that was matched.
	Path string

	// Query is the raw query string of the matched URL.
	Query string

	// Routes is the matched chain, root first.
	Routes []*Route

	Params Params
}

// Leaf returns the deepest matched route.
func (m *Match) Leaf() *Route {
	return m.Routes[len(m.Routes)-1]
}

// Args returns the loader arguments for this match.
func (m *Match) Args() LoaderArgs {
	return LoaderArgs{Path: m.Path, Query: m.Query, Params: m.Params}
}

// New validates and compiles a route table. All problems found are
// reported together, each as a *ConfigError.
func New(routes ...Route) (*Router, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	b := &builder{byID: make(map[string]*Route)}
	roots := b.compileSiblings(nil, routes, "")
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Router{roots: roots, byID: b.byID}, nil
}

// Match resolves path to a chain of routes. It returns an error wrapping
// ErrInvalidPath for malformed paths and ErrNotFound when nothing matches.
func (rt *Router) Match(path string) (*Match, error) {
	c, err := routepath.Canonicalize(path)
	if err != nil {
		return nil, err
	}

	segs := routepath.Segments(c.Path)
	for _, root := range rt.roots {
		chain, params, err := root.match(segs, nil)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", c.Path, err)
		}
		if chain == nil {
			continue
		}
		m := &Match{
			Path:   c.Path,
			Query:  c.Query,
			Routes: chain,
			Params: make(Params, len(params)),
		}
		for _, p := range params {
			m.Params[p.name] = p.value
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, c.Path)
}

// Routes returns the top-level routes.
func (rt *Router) Routes() []*Route {
	return rt.roots
}

// Root returns the top-level route mounted at "/", if any.
func (rt *Router) Root() *Route {
	for _, r := range rt.roots {
		if r.pattern == "/" {
			return r
		}
	}
	return nil
}

// Lookup returns the route with the given ID.
func (rt *Router) Lookup(id string) (*Route, bool) {
	r, ok := rt.byID[id]
	return r, ok
}

// Walk visits every route depth first, index routes before their siblings.
func (rt *Router) Walk(fn func(r *Route, depth int) error) error {
	var walk func(routes []*Route, depth int) error
	walk = func(routes []*Route, depth int) error {
		for _, r := range routes {
			if err := fn(r, depth); err != nil {
				return err
			}
			if r.index != nil {
				if err := fn(r.index, depth+1); err != nil {
					return err
				}
			}
			if err := walk(r.children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(rt.roots, 0)
}

type builder struct {
	byID map[string]*Route
	errs []error
}

func (b *builder) fail(pattern, reason string, err error) {
	b.errs = append(b.errs, &ConfigError{Path: pattern, Reason: reason, Err: err})
}

// compileSiblings copies and validates one level of the table. parent is
// nil for top-level routes.
func (b *builder) compileSiblings(parent *Route, defs []Route, parentID string) []*Route {
	var (
		out    []*Route
		shapes = make(map[string]bool)
	)

	for i := range defs {
		r := defs[i]
		r.children = nil
		r.index = nil

		if r.ID == "" {
			r.ID = strconv.Itoa(i)
			if parentID != "" {
				r.ID = parentID + "-" + r.ID
			}
		}

		parentPattern := ""
		if parent != nil {
			parentPattern = parent.pattern
		}
		r.pattern = joinPattern(parentPattern, r.Path)
		if r.Index {
			r.pattern = parentPattern
			if r.pattern == "" {
				r.pattern = "/"
			}
		}

		b.validate(parent, &r)

		segs, err := parsePath(r.Path)
		if err != nil {
			b.fail(r.pattern, "invalid path", err)
		}
		r.segs = segs

		if prev, ok := b.byID[r.ID]; ok && prev != nil {
			b.fail(r.pattern, "duplicate route id "+strconv.Quote(r.ID), nil)
		}
		route := &r
		b.byID[r.ID] = route

		switch {
		case r.Index:
			if parent != nil && parent.index != nil {
				b.fail(r.pattern, "more than one index route", nil)
				continue
			}
			if parent != nil {
				parent.index = route
			}
			continue
		case len(segs) > 0:
			key := shape(segs)
			if shapes[key] {
				b.fail(r.pattern, "duplicate sibling path", nil)
			}
			shapes[key] = true
		}

		route.children = b.compileSiblings(route, r.Children, r.ID)
		out = append(out, route)
	}

	sortSiblings(out)
	return out
}

func (b *builder) validate(parent *Route, r *Route) {
	if r.Element != nil && r.Lazy != nil {
		b.fail(r.pattern, "route sets both Element and Lazy", nil)
	}
	if r.Index && (r.Path != "" || len(r.Children) > 0) {
		b.fail(r.pattern, "index route cannot have a path or children", nil)
	}
	if parent == nil {
		if r.Index {
			b.fail(r.pattern, "index route needs a parent", nil)
		}
		if r.Lazy != nil {
			b.fail(r.pattern, "root route must not be deferred", nil)
		}
		if !r.Index && !strings.HasPrefix(r.Path, "/") {
			b.fail(r.pattern, "top-level path must start with /", nil)
		}
		return
	}
	if strings.HasPrefix(r.Path, "/") {
		b.fail(r.pattern, "child path must be relative", nil)
	}
}

func joinPattern(parent, path string) string {
	joined := strings.TrimSuffix(parent, "/") + "/" + strings.Trim(path, "/")
	if joined != "/" {
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}
