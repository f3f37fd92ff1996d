package navigation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
	ch     chan Frame
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan Frame, 32)}
}

func (s *recordingSink) Emit(ctx context.Context, f Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	s.ch <- f
	return nil
}

func (s *recordingSink) all() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func (s *recordingSink) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-s.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func text(f Frame) string {
	return f.Node.TextContent()
}

type testApp struct {
	blogFetches atomic.Int32
	postFetches atomic.Int32
	blogGate    chan struct{}
	blogErr     error
	blogLoader  router.LoaderFunc
	postLoader  router.LoaderFunc
}

func (a *testApp) table(t *testing.T) *router.Router {
	t.Helper()

	blog, err := deferred.New("blog", func(ctx context.Context) (router.Module, error) {
		a.blogFetches.Add(1)
		if a.blogGate != nil {
			<-a.blogGate
		}
		if a.blogErr != nil {
			return router.Module{}, a.blogErr
		}
		return router.Module{
			View: func(rc router.RenderContext) *vdom.VNode {
				titles, _ := rc.Data.([]string)
				return vdom.Main(vdom.H1(vdom.Text("Blog|")), vdom.Ul(vdom.Range(titles, func(s string, i int) *vdom.VNode {
					return vdom.Li(vdom.Text(s + "|"))
				})))
			},
			Loader: a.blogLoader,
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	post, err := deferred.New("post", func(ctx context.Context) (router.Module, error) {
		a.postFetches.Add(1)
		return router.Module{
			View: func(rc router.RenderContext) *vdom.VNode {
				return vdom.Article(vdom.Textf("Post %v", rc.Data))
			},
			Loader: a.postLoader,
		}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	loading := vdom.P(vdom.Text("Loading..."))
	rt, err := router.New(router.Route{
		Path: "/",
		Element: func(rc router.RenderContext) *vdom.VNode {
			return vdom.Div(vdom.Nav(vdom.Text("nav|")), rc.Outlet)
		},
		ErrorElement: func(rc router.RenderContext, err error) *vdom.VNode {
			msg := "Could not load page"
			if StatusOf(err) == http.StatusNotFound {
				msg = "Page not found"
			}
			return vdom.Div(vdom.Nav(vdom.Text("nav|")), vdom.P(vdom.Text(msg)))
		},
		Children: []router.Route{
			{Index: true, Element: func(rc router.RenderContext) *vdom.VNode {
				return vdom.Main(vdom.H1(vdom.Text("Home")))
			}},
			{Path: "posts", Children: []router.Route{
				{Index: true, Lazy: blog, Fallback: loading},
				{Path: ":id", Lazy: post, Fallback: loading},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func defaultApp() *testApp {
	return &testApp{
		blogLoader: func(ctx context.Context, args router.LoaderArgs) (any, error) {
			return []string{"first", "second"}, nil
		},
		postLoader: func(ctx context.Context, args router.LoaderArgs) (any, error) {
			return args.Params.Get("id"), nil
		},
	}
}

func TestNavigateHomeRendersWithoutFallback(t *testing.T) {
	app := defaultApp()
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	frame, err := nav.Navigate(context.Background(), "/")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	frames := sink.all()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Kind != FrameRender || frame.Kind != FrameRender {
		t.Errorf("kind = %s", frames[0].Kind)
	}
	if got := text(frames[0]); got != "nav|Home" {
		t.Errorf("text = %q", got)
	}
	if frame.Seq != 1 || frame.Status != http.StatusOK {
		t.Errorf("frame = seq %d status %d", frame.Seq, frame.Status)
	}
	if app.blogFetches.Load() != 0 || app.postFetches.Load() != 0 {
		t.Error("home navigation must not fetch deferred modules")
	}
}

func TestNavigatePostsShowsFallbackThenBlog(t *testing.T) {
	app := defaultApp()
	var loaderArgs router.LoaderArgs
	app.blogLoader = func(ctx context.Context, args router.LoaderArgs) (any, error) {
		loaderArgs = args
		return []string{"first", "second"}, nil
	}
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	if _, err := nav.Navigate(context.Background(), "/posts"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	frames := sink.all()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Kind != FrameFallback || text(frames[0]) != "nav|Loading..." {
		t.Errorf("first frame = %s %q", frames[0].Kind, text(frames[0]))
	}
	if frames[1].Kind != FrameRender || text(frames[1]) != "nav|Blog|first|second|" {
		t.Errorf("second frame = %s %q", frames[1].Kind, text(frames[1]))
	}
	if len(loaderArgs.Params) != 0 {
		t.Errorf("blog loader got params %v", loaderArgs.Params)
	}
}

func TestNavigatePostPassesID(t *testing.T) {
	app := defaultApp()
	var gotID string
	app.postLoader = func(ctx context.Context, args router.LoaderArgs) (any, error) {
		gotID = args.Params.Get("id")
		return gotID, nil
	}
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	if _, err := nav.Navigate(context.Background(), "/posts/42"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	frames := sink.all()
	if len(frames) != 2 || frames[0].Kind != FrameFallback {
		t.Fatalf("frames = %+v", frames)
	}
	if text(frames[0]) != "nav|Loading..." {
		t.Errorf("fallback = %q", text(frames[0]))
	}
	if gotID != "42" {
		t.Errorf("loader id = %q, want 42", gotID)
	}
	if text(frames[1]) != "nav|Post 42" {
		t.Errorf("render = %q", text(frames[1]))
	}
	if frames[1].Match.Params.Get("id") != "42" {
		t.Errorf("match params = %v", frames[1].Match.Params)
	}
}

func TestLoaderRunsAfterModule(t *testing.T) {
	app := defaultApp()
	app.blogGate = make(chan struct{})
	var loaderSawModule atomic.Bool
	var loaderCalls atomic.Int32
	app.blogLoader = func(ctx context.Context, args router.LoaderArgs) (any, error) {
		loaderCalls.Add(1)
		loaderSawModule.Store(app.blogFetches.Load() == 1)
		return nil, nil
	}
	sink := newRecordingSink()
	rt := app.table(t)
	nav := New(rt, sink)

	done := make(chan error, 1)
	go func() {
		_, err := nav.Navigate(context.Background(), "/posts")
		done <- err
	}()

	if f := sink.next(t); f.Kind != FrameFallback {
		t.Fatalf("first frame = %s", f.Kind)
	}
	time.Sleep(20 * time.Millisecond)
	if loaderCalls.Load() != 0 {
		t.Fatal("loader invoked before module resolved")
	}

	close(app.blogGate)
	if err := <-done; err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if loaderCalls.Load() != 1 || !loaderSawModule.Load() {
		t.Errorf("loader calls = %d, saw module = %v", loaderCalls.Load(), loaderSawModule.Load())
	}
}

func TestSupersededNavigationNeverCommits(t *testing.T) {
	app := defaultApp()
	app.blogGate = make(chan struct{})
	sink := newRecordingSink()
	rt := app.table(t)
	nav := New(rt, sink)

	doneA := make(chan error, 1)
	go func() {
		_, err := nav.Navigate(context.Background(), "/posts")
		doneA <- err
	}()
	if f := sink.next(t); f.Kind != FrameFallback || f.Seq != 1 {
		t.Fatalf("A fallback = %s seq %d", f.Kind, f.Seq)
	}

	frameB, err := nav.Navigate(context.Background(), "/posts/7")
	if err != nil {
		t.Fatalf("B: %v", err)
	}
	if frameB.Seq != 2 || text(frameB) != "nav|Post 7" {
		t.Errorf("B frame = seq %d %q", frameB.Seq, text(frameB))
	}

	if err := <-doneA; !errors.Is(err, ErrSuperseded) {
		t.Errorf("A err = %v, want ErrSuperseded", err)
	}

	// A's module resolves after B committed; it must not render.
	close(app.blogGate)
	blogRoute := rt.Root().Routes()[0].IndexRoute()
	deadline := time.Now().Add(2 * time.Second)
	for !blogRoute.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("blog module never populated the cache")
		}
		time.Sleep(time.Millisecond)
	}

	frames := sink.all()
	last := frames[len(frames)-1]
	if last.Seq != 2 || last.Kind != FrameRender {
		t.Errorf("last frame = seq %d %s", last.Seq, last.Kind)
	}
	for _, f := range frames {
		if f.Seq == 1 && f.Kind != FrameFallback {
			t.Errorf("superseded navigation emitted %s", f.Kind)
		}
	}
	if app.blogFetches.Load() != 1 {
		t.Errorf("blog fetched %d times", app.blogFetches.Load())
	}
}

func TestSupersededLoaderResultDiscarded(t *testing.T) {
	app := defaultApp()
	release := make(chan struct{})
	started := make(chan struct{})
	app.postLoader = func(ctx context.Context, args router.LoaderArgs) (any, error) {
		if args.Params.Get("id") == "1" {
			close(started)
			<-release // ignores ctx on purpose
		}
		return args.Params.Get("id"), nil
	}
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	doneA := make(chan error, 1)
	go func() {
		_, err := nav.Navigate(context.Background(), "/posts/1")
		doneA <- err
	}()
	<-started

	if _, err := nav.Navigate(context.Background(), "/posts/2"); err != nil {
		t.Fatalf("B: %v", err)
	}
	close(release)

	if err := <-doneA; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("A err = %v", err)
	}
	for _, f := range sink.all() {
		if f.Kind == FrameRender && text(f) != "nav|Post 2" {
			t.Errorf("unexpected render %q", text(f))
		}
	}
}

func TestModuleFailureRendersBoundaryAndIsNotRetried(t *testing.T) {
	app := defaultApp()
	app.blogErr = errors.New("bundle missing")
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	frame, err := nav.Navigate(context.Background(), "/posts")
	var modErr *ModuleError
	if !errors.As(err, &modErr) || modErr.Module != "blog" {
		t.Fatalf("err = %v, want ModuleError for blog", err)
	}
	if !errors.Is(err, app.blogErr) {
		t.Error("ModuleError should unwrap to the fetch error")
	}
	if frame.Kind != FrameError || frame.Status != http.StatusInternalServerError {
		t.Errorf("frame = %s %d", frame.Kind, frame.Status)
	}
	if text(frame) != "nav|Could not load page" {
		t.Errorf("text = %q", text(frame))
	}

	before := len(sink.all())
	if _, err := nav.Navigate(context.Background(), "/posts"); !errors.As(err, &modErr) {
		t.Fatalf("second err = %v", err)
	}
	if app.blogFetches.Load() != 1 {
		t.Errorf("failed module refetched: %d fetches", app.blogFetches.Load())
	}
	if got := len(sink.all()) - before; got != 1 {
		t.Errorf("second navigation emitted %d frames, want 1 (no fallback)", got)
	}
}

func TestLoaderNotFound(t *testing.T) {
	app := defaultApp()
	app.postLoader = func(ctx context.Context, args router.LoaderArgs) (any, error) {
		return nil, fmt.Errorf("post %s: %w", args.Params.Get("id"), ErrNotFound)
	}
	nav := New(app.table(t), newRecordingSink())

	frame, err := nav.Navigate(context.Background(), "/posts/999")
	var loaderErr *LoaderError
	if !errors.As(err, &loaderErr) {
		t.Fatalf("err = %v, want LoaderError", err)
	}
	if frame.Status != http.StatusNotFound || text(frame) != "nav|Page not found" {
		t.Errorf("frame = %d %q", frame.Status, text(frame))
	}
}

func TestUnmatchedPath(t *testing.T) {
	app := defaultApp()
	obs := &countingObserver{}
	nav := New(app.table(t), newRecordingSink(), WithObserver(obs))

	frame, err := nav.Navigate(context.Background(), "/nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if frame.Kind != FrameError || frame.Status != http.StatusNotFound {
		t.Errorf("frame = %s %d", frame.Kind, frame.Status)
	}
	if text(frame) != "nav|Page not found" {
		t.Errorf("text = %q", text(frame))
	}
	if obs.count(OutcomeNotFound) != 1 {
		t.Errorf("observer outcomes = %v", obs.outcomes)
	}

	frame, err = nav.Navigate(context.Background(), "/posts/a%2Fb")
	if !errors.Is(err, router.ErrInvalidPath) || frame.Status != http.StatusBadRequest {
		t.Errorf("invalid path = %v, %d", err, frame.Status)
	}
}

func TestReadyModuleWithoutLoaderSkipsFallback(t *testing.T) {
	app := defaultApp()
	app.blogLoader = nil
	sink := newRecordingSink()
	nav := New(app.table(t), sink)

	for i := 0; i < 2; i++ {
		if _, err := nav.Navigate(context.Background(), "/posts"); err != nil {
			t.Fatalf("Navigate %d: %v", i, err)
		}
	}

	var kinds []string
	for _, f := range sink.all() {
		kinds = append(kinds, string(f.Kind))
	}
	if got := strings.Join(kinds, ","); got != "fallback,render,render" {
		t.Errorf("frames = %s", got)
	}
}

func TestPrefetch(t *testing.T) {
	app := defaultApp()
	rt := app.table(t)
	sink := newRecordingSink()
	nav := New(rt, sink)

	if err := nav.Prefetch(context.Background(), "/posts/3"); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if err := nav.Prefetch(context.Background(), "/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Prefetch missing = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for app.postFetches.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("prefetch did not start the fetch")
		}
		time.Sleep(time.Millisecond)
	}
	if len(sink.all()) != 0 {
		t.Error("prefetch must not emit frames")
	}
	if _, err := nav.Navigate(context.Background(), "/posts/3"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if app.postFetches.Load() != 1 {
		t.Errorf("post fetched %d times", app.postFetches.Load())
	}
}

func TestObserverSeesModuleAndLoader(t *testing.T) {
	app := defaultApp()
	obs := &countingObserver{}
	nav := New(app.table(t), newRecordingSink(), WithObserver(obs))

	if _, err := nav.Navigate(context.Background(), "/posts/5"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.modules["post"] != 1 {
		t.Errorf("module observations = %v", obs.modules)
	}
	if len(obs.loaders) != 1 {
		t.Errorf("loader observations = %v", obs.loaders)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != OutcomeCommitted {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestCancelledContext(t *testing.T) {
	app := defaultApp()
	app.blogGate = make(chan struct{})
	defer close(app.blogGate)
	nav := New(app.table(t), newRecordingSink())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := nav.Navigate(ctx, "/posts"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotFound, http.StatusNotFound},
		{&LoaderError{Route: "x", Err: fmt.Errorf("wrap: %w", ErrNotFound)}, http.StatusNotFound},
		{router.ErrInvalidPath, http.StatusBadRequest},
		{&ModuleError{Route: "x", Module: "m", Err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDefaultErrorElement(t *testing.T) {
	node := DefaultErrorElement(router.RenderContext{}, ErrNotFound)
	if !strings.HasPrefix(node.TextContent(), "Page not found") {
		t.Errorf("text = %q", node.TextContent())
	}
	node = DefaultErrorElement(router.RenderContext{}, errors.New("boom"))
	if !strings.HasPrefix(node.TextContent(), "Something went wrong") {
		t.Errorf("text = %q", node.TextContent())
	}
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
	modules  map[string]int
	loaders  []string
}

func (o *countingObserver) NavigationFinished(outcome Outcome, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingObserver) ModuleResolved(module string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.modules == nil {
		o.modules = make(map[string]int)
	}
	o.modules[module]++
}

func (o *countingObserver) LoaderFinished(route string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaders = append(o.loaders, route)
}

func (o *countingObserver) count(outcome Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, oc := range o.outcomes {
		if oc == outcome {
			n++
		}
	}
	return n
}

func TestBeginOrdersByClaimNotByRun(t *testing.T) {
	sink := newRecordingSink()
	nav := New(defaultApp().table(t), sink)

	runBlog := nav.Begin(context.Background(), "/posts")
	runHome := nav.Begin(context.Background(), "/")
	if nav.Latest() != 2 {
		t.Fatalf("Latest = %d, want 2", nav.Latest())
	}

	// The newer navigation runs first; the older one starts afterwards and
	// must not commit over it.
	home, err := runHome()
	if err != nil || home.Seq != 2 || home.Path != "/" {
		t.Fatalf("home = %+v, %v", home, err)
	}
	if _, err := runBlog(); !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("blog err = %v, want superseded", err)
	}

	frames := sink.all()
	if last := frames[len(frames)-1]; last.Seq != 2 || last.Path != "/" {
		t.Errorf("last frame = seq %d %q", last.Seq, last.Path)
	}
	for _, f := range frames {
		if f.Seq == 1 {
			t.Errorf("superseded navigation emitted %s", f.Kind)
		}
	}
}
