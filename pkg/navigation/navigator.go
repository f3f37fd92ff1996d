package navigation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// Navigator dispatches navigations for one timeline. It is safe for
// concurrent use; navigations supersede each other in the order their
// sequence numbers were claimed.
type Navigator struct {
	routes *router.Router
	sink   Sink
	cfg    config

	seq atomic.Uint64

	// mu serializes sequence assignment and emission.
	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a navigator that emits frames to sink.
func New(routes *router.Router, sink Sink, opts ...Option) *Navigator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.With("component", "navigation")
	return &Navigator{
		routes: routes,
		sink:   sink,
		cfg:    cfg,
	}
}

// Latest returns the sequence number of the most recent navigation.
func (n *Navigator) Latest() uint64 {
	return n.seq.Load()
}

// Navigate runs one navigation to path. It returns the committed frame,
// which is an error frame when matching, a module or a loader failed; the
// failure is also returned as the error. ErrSuperseded is returned without
// a frame when a newer navigation started first.
func (n *Navigator) Navigate(ctx context.Context, path string) (Frame, error) {
	return n.Begin(ctx, path)()
}

// Begin claims the next sequence number for a navigation to path and
// cancels the navigation it supersedes, then returns the function that runs
// it. Callers that run navigations on other goroutines call Begin in
// arrival order so the last request received is the one that commits.
func (n *Navigator) Begin(ctx context.Context, path string) func() (Frame, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	seq := n.begin(cancel)

	return func() (Frame, error) {
		defer cancel()
		return n.run(ctx, seq, path, start)
	}
}

func (n *Navigator) run(ctx context.Context, seq uint64, path string, start time.Time) (Frame, error) {
	ctx, span := n.cfg.tracer.Start(ctx, "navigation.Navigate",
		trace.WithAttributes(
			attribute.String("navigation.path", path),
			attribute.Int64("navigation.seq", int64(seq)),
		),
	)
	defer span.End()

	logger := n.cfg.logger.With("seq", seq, "path", path)
	logger.Debug("navigation started")

	frame, err := n.navigate(ctx, seq, path)

	outcome := outcomeOf(err)
	n.cfg.observer.NavigationFinished(outcome, time.Since(start))
	span.SetAttributes(attribute.String("navigation.outcome", string(outcome)))

	switch outcome {
	case OutcomeCommitted:
		logger.Debug("navigation committed", "status", frame.Status, "duration", time.Since(start))
	case OutcomeSuperseded:
		logger.Debug("navigation superseded", "latest", n.Latest())
	case OutcomeCancelled:
		logger.Debug("navigation cancelled", "error", err)
	case OutcomeNotFound:
		logger.Info("no route matched", "status", frame.Status)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("navigation failed", "status", frame.Status, "error", err)
	}
	return frame, err
}

// Prefetch starts fetching the modules of every deferred route matching
// path without waiting and without emitting anything.
func (n *Navigator) Prefetch(ctx context.Context, path string) error {
	m, err := n.routes.Match(path)
	if err != nil {
		return err
	}
	for _, r := range m.Routes {
		if r.Lazy != nil {
			n.cfg.logger.Debug("prefetching module", "module", r.Lazy.Key(), "path", m.Path)
			r.Lazy.Start(ctx)
		}
	}
	return nil
}

// begin assigns the next sequence number and cancels the navigation it
// supersedes.
func (n *Navigator) begin(cancel context.CancelFunc) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
	n.cancel = cancel
	return n.seq.Add(1)
}

// emit sends f if seq is still the latest navigation.
func (n *Navigator) emit(ctx context.Context, seq uint64, f Frame) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq.Load() != seq {
		return ErrSuperseded
	}
	f.Seq = seq
	return n.sink.Emit(ctx, f)
}

func (n *Navigator) stale(seq uint64) bool {
	return n.seq.Load() != seq
}

func (n *Navigator) navigate(ctx context.Context, seq uint64, path string) (Frame, error) {
	// Matching
	m, err := n.routes.Match(path)
	if err != nil {
		frame := Frame{
			Kind:   FrameError,
			Path:   path,
			Status: StatusOf(err),
			Node:   n.renderUnmatched(path, err),
			Err:    err,
		}
		if emitErr := n.emit(ctx, seq, frame); emitErr != nil {
			return Frame{}, emitErr
		}
		frame.Seq = seq
		return frame, err
	}

	// Loading
	if at, node := n.fallbackPoint(m); at >= 0 {
		shell := n.renderShell(m, at, node)
		if err := n.emit(ctx, seq, Frame{Kind: FrameFallback, Path: m.Path, Status: http.StatusOK, Node: shell, Match: m}); err != nil {
			return Frame{}, err
		}
	}

	views, data, failedAt, failure := n.load(ctx, m)

	if n.stale(seq) {
		return Frame{}, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	// Rendering
	frame := Frame{Kind: FrameRender, Path: m.Path, Status: http.StatusOK, Match: m}
	if failure != nil {
		frame.Kind = FrameError
		frame.Status = StatusOf(failure)
		frame.Err = failure
		frame.Node = n.renderBoundary(m, views, data, failedAt, failure)
	} else {
		frame.Node = renderChain(m, views, data, len(m.Routes), nil)
	}

	if err := n.emit(ctx, seq, frame); err != nil {
		return Frame{}, err
	}
	frame.Seq = seq
	return frame, failure
}

// load resolves every module in the chain and then runs its loader. Routes
// proceed concurrently. The shallowest failure is reported.
func (n *Navigator) load(ctx context.Context, m *router.Match) ([]router.ElementFunc, []any, int, error) {
	var (
		views = make([]router.ElementFunc, len(m.Routes))
		data  = make([]any, len(m.Routes))
		errs  = make([]error, len(m.Routes))
		args  = m.Args()
		g     errgroup.Group
	)

	for i, r := range m.Routes {
		g.Go(func() error {
			mod, err := n.resolveModule(ctx, r)
			if err != nil {
				errs[i] = err
				return nil
			}
			views[i] = mod.View
			data[i], errs[i] = n.runLoader(ctx, r, mod, args)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return views, data, i, err
		}
	}
	return views, data, -1, nil
}

func (n *Navigator) resolveModule(ctx context.Context, r *router.Route) (router.Module, error) {
	if r.Lazy == nil {
		return r.Resolve(ctx)
	}

	key := r.Lazy.Key()
	ctx, span := n.cfg.tracer.Start(ctx, "navigation.ResolveModule",
		trace.WithAttributes(
			attribute.String("route.id", r.ID),
			attribute.String("module", key),
		),
	)
	defer span.End()

	start := time.Now()
	mod, err := r.Resolve(ctx)
	n.cfg.observer.ModuleResolved(key, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return router.Module{}, &ModuleError{Route: r.ID, Module: key, Err: err}
	}
	return mod, nil
}

func (n *Navigator) runLoader(ctx context.Context, r *router.Route, mod router.Module, args router.LoaderArgs) (any, error) {
	if mod.Loader == nil {
		return nil, nil
	}

	ctx, span := n.cfg.tracer.Start(ctx, "navigation.Loader",
		trace.WithAttributes(attribute.String("route.id", r.ID)),
	)
	defer span.End()

	start := time.Now()
	data, err := router.ResolveLoaderData(ctx, mod, args)
	n.cfg.observer.LoaderFinished(r.ID, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &LoaderError{Route: r.ID, Err: err}
	}
	return data, nil
}

// fallbackPoint decides whether a fallback frame is needed and where it
// goes. It returns -1 when every deferred route in the chain can render
// without waiting. Otherwise the fallback replaces the shallowest route
// that cannot render yet, so that everything above it renders without data.
func (n *Navigator) fallbackPoint(m *router.Match) (int, *vdom.VNode) {
	deferredAt := -1
	for i, r := range m.Routes {
		if r.Lazy != nil && (!r.Ready() || r.HasLoader()) {
			deferredAt = i
			break
		}
	}
	if deferredAt < 0 {
		return -1, nil
	}

	at := deferredAt
	for i := 0; i < deferredAt; i++ {
		r := m.Routes[i]
		if !r.Ready() || r.HasLoader() {
			at = i
			break
		}
	}

	switch {
	case m.Routes[at].Fallback != nil:
		return at, m.Routes[at].Fallback
	case m.Routes[deferredAt].Fallback != nil:
		return at, m.Routes[deferredAt].Fallback
	default:
		return at, n.cfg.fallback
	}
}

// renderShell renders the routes above depth around the fallback node.
// Those routes are settled and have no loaders.
func (n *Navigator) renderShell(m *router.Match, depth int, fallback *vdom.VNode) *vdom.VNode {
	views := make([]router.ElementFunc, depth)
	for i := 0; i < depth; i++ {
		r := m.Routes[i]
		if r.Lazy == nil {
			views[i] = r.Element
			continue
		}
		if mod, done, err := r.Lazy.Peek(); done && err == nil {
			views[i] = mod.View
		}
	}
	return renderChain(m, views, make([]any, depth), depth, fallback)
}

// renderBoundary renders the nearest error element at or above failedAt,
// wrapped by the routes above it.
func (n *Navigator) renderBoundary(m *router.Match, views []router.ElementFunc, data []any, failedAt int, err error) *vdom.VNode {
	for b := failedAt; b >= 0; b-- {
		r := m.Routes[b]
		if r.ErrorElement == nil {
			continue
		}
		rc := router.RenderContext{Route: r, Path: m.Path, Params: m.Params}
		if b < failedAt {
			rc.Data = data[b]
		}
		return renderChain(m, views, data, b, r.ErrorElement(rc, err))
	}
	return n.cfg.errorElement(router.RenderContext{Path: m.Path, Params: m.Params}, err)
}

func (n *Navigator) renderUnmatched(path string, err error) *vdom.VNode {
	if root := n.routes.Root(); root != nil && root.ErrorElement != nil {
		return root.ErrorElement(router.RenderContext{Route: root, Path: path}, err)
	}
	return n.cfg.errorElement(router.RenderContext{Path: path}, err)
}

// renderChain renders routes [0, depth) leaf first, each receiving the
// previous result as its outlet. Routes without a view pass the outlet
// through.
func renderChain(m *router.Match, views []router.ElementFunc, data []any, depth int, outlet *vdom.VNode) *vdom.VNode {
	for i := depth - 1; i >= 0; i-- {
		if views[i] == nil {
			continue
		}
		outlet = views[i](router.RenderContext{
			Route:  m.Routes[i],
			Path:   m.Path,
			Params: m.Params,
			Data:   data[i],
			Outlet: outlet,
		})
	}
	return outlet
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
