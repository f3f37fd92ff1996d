package router

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

func element(name string) ElementFunc {
	return func(rc RenderContext) *vdom.VNode {
		return vdom.Div(vdom.Data("route", name), rc.Outlet)
	}
}

func lazyModule(t *testing.T, key string, mod Module) *deferred.Handle[Module] {
	t.Helper()
	h, err := deferred.New(key, func(ctx context.Context) (Module, error) {
		return mod, nil
	})
	if err != nil {
		t.Fatalf("deferred.New: %v", err)
	}
	return h
}

func blogTable(t *testing.T) *Router {
	t.Helper()
	rt, err := New(Route{
		Path:    "/",
		Element: element("root"),
		Children: []Route{
			{Index: true, Element: element("home")},
			{Path: "posts", Children: []Route{
				{Index: true, Lazy: lazyModule(t, "blog", Module{View: element("blog")})},
				{Path: ":id", Lazy: lazyModule(t, "post", Module{View: element("post")})},
				{Path: "new", Element: element("new-post")},
			}},
			{Path: "files/*", Element: element("files")},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt
}

func chainIDs(m *Match) string {
	ids := make([]string, len(m.Routes))
	for i, r := range m.Routes {
		ids[i] = r.Pattern()
		if r.Index {
			ids[i] += "(index)"
		}
	}
	return strings.Join(ids, " > ")
}

func TestMatch(t *testing.T) {
	rt := blogTable(t)

	tests := []struct {
		path   string
		chain  string
		params Params
	}{
		{"/", "/ > /(index)", Params{}},
		{"/posts", "/ > /posts > /posts(index)", Params{}},
		{"/posts/", "/ > /posts > /posts(index)", Params{}},
		{"/posts/42", "/ > /posts > /posts/:id", Params{"id": "42"}},
		{"/posts/new", "/ > /posts > /posts/new", Params{}},
		{"/posts/hello%20world", "/ > /posts > /posts/:id", Params{"id": "hello world"}},
		{"//posts/./42", "/ > /posts > /posts/:id", Params{"id": "42"}},
		{"/files/a/b/c", "/ > /files/*", Params{"*": "a/b/c"}},
		{"/posts/42?ref=home", "/ > /posts > /posts/:id", Params{"id": "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, err := rt.Match(tt.path)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got := chainIDs(m); got != tt.chain {
				t.Errorf("chain = %q, want %q", got, tt.chain)
			}
			if len(m.Params) != len(tt.params) {
				t.Fatalf("params = %v, want %v", m.Params, tt.params)
			}
			for k, v := range tt.params {
				if m.Params.Get(k) != v {
					t.Errorf("param %q = %q, want %q", k, m.Params.Get(k), v)
				}
			}
		})
	}
}

func TestMatchQueryAndArgs(t *testing.T) {
	rt := blogTable(t)

	m, err := rt.Match("/posts/7?ref=home")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	args := m.Args()
	if args.Path != "/posts/7" || args.Query != "ref=home" || args.Params.Get("id") != "7" {
		t.Errorf("Args = %+v", args)
	}
	if m.Leaf().Pattern() != "/posts/:id" {
		t.Errorf("Leaf = %q", m.Leaf().Pattern())
	}
}

func TestMatchNotFound(t *testing.T) {
	rt := blogTable(t)

	for _, path := range []string{"/about", "/posts/42/comments", "/filesx"} {
		if _, err := rt.Match(path); !errors.Is(err, ErrNotFound) {
			t.Errorf("Match(%q) err = %v, want ErrNotFound", path, err)
		}
	}
}

func TestMatchInvalidPath(t *testing.T) {
	rt := blogTable(t)

	for _, path := range []string{"/posts/a%2Fb", "/../etc", `/posts\42`} {
		if _, err := rt.Match(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Match(%q) err = %v, want ErrInvalidPath", path, err)
		}
	}
}

func TestLiteralBeatsParamRegardlessOfOrder(t *testing.T) {
	rt, err := New(Route{
		Path: "/",
		Children: []Route{
			{Path: ":slug", Element: element("slug")},
			{Path: "about", Element: element("about")},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m, err := rt.Match("/about")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if m.Leaf().Path != "about" {
		t.Errorf("leaf = %q, want about", m.Leaf().Path)
	}
}

func TestParamBacktracks(t *testing.T) {
	rt, err := New(Route{
		Path: "/",
		Children: []Route{
			{Path: "posts/new", Element: element("new")},
			{Path: ":section/:id", Element: element("item")},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m, err := rt.Match("/posts/42")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if m.Params.Get("section") != "posts" || m.Params.Get("id") != "42" {
		t.Errorf("params = %v", m.Params)
	}
}

func TestPathlessGroupIndex(t *testing.T) {
	rt, err := New(Route{
		Path: "/",
		Children: []Route{
			{Element: element("layout"), Children: []Route{
				{Index: true, Element: element("home")},
			}},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m, err := rt.Match("/")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(m.Routes) != 3 || !m.Leaf().Index {
		t.Errorf("chain = %s", chainIDs(m))
	}
}

func TestNewValidation(t *testing.T) {
	lazy := lazyModule(t, "x", Module{})

	tests := []struct {
		name   string
		routes []Route
		reason string
	}{
		{"two index routes", []Route{{Path: "/", Children: []Route{{Index: true}, {Index: true}}}}, "more than one index route"},
		{"index with path", []Route{{Path: "/", Children: []Route{{Index: true, Path: "x"}}}}, "index route cannot have a path or children"},
		{"index with children", []Route{{Path: "/", Children: []Route{{Index: true, Children: []Route{{Path: "a"}}}}}}, "index route cannot have a path or children"},
		{"duplicate siblings", []Route{{Path: "/", Children: []Route{{Path: "posts"}, {Path: "posts/"}}}}, "duplicate sibling path"},
		{"duplicate param shapes", []Route{{Path: "/", Children: []Route{{Path: ":id"}, {Path: ":slug"}}}}, "duplicate sibling path"},
		{"element and lazy", []Route{{Path: "/", Children: []Route{{Path: "a", Element: element("a"), Lazy: lazy}}}}, "both Element and Lazy"},
		{"deferred root", []Route{{Path: "/", Lazy: lazy}}, "root route must not be deferred"},
		{"relative root", []Route{{Path: "posts"}}, "top-level path must start with /"},
		{"absolute child", []Route{{Path: "/", Children: []Route{{Path: "/posts"}}}}, "child path must be relative"},
		{"bad param", []Route{{Path: "/", Children: []Route{{Path: ":"}}}}, "invalid path"},
		{"rest not last", []Route{{Path: "/", Children: []Route{{Path: "*/x"}}}}, "invalid path"},
		{"duplicate id", []Route{{Path: "/", Children: []Route{{Path: "a", ID: "dup"}, {Path: "b", ID: "dup"}}}}, "duplicate route id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.routes...)
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %v is not a *ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", err, tt.reason)
			}
		})
	}

	if _, err := New(); !errors.Is(err, ErrNoRoutes) {
		t.Errorf("New() err = %v", err)
	}
}

func TestNewAssignsIDsAndCopies(t *testing.T) {
	defs := []Route{{Path: "/", Children: []Route{{Index: true}, {Path: "posts"}}}}
	rt, err := New(defs...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, id := range []string{"0", "0-0", "0-1"} {
		if _, ok := rt.Lookup(id); !ok {
			t.Errorf("route %q not found", id)
		}
	}
	if defs[0].ID != "" {
		t.Error("New must not mutate its input")
	}
	if rt.Root() == nil || rt.Root().IndexRoute() == nil {
		t.Error("root or its index route missing")
	}
}

func TestResolveAndLoaderOrder(t *testing.T) {
	var resolved atomic.Bool
	h, _ := deferred.New("post", func(ctx context.Context) (Module, error) {
		resolved.Store(true)
		return Module{
			View: element("post"),
			Loader: func(ctx context.Context, args LoaderArgs) (any, error) {
				if !resolved.Load() {
					t.Error("loader ran before module resolved")
				}
				return "post " + args.Params.Get("id"), nil
			},
		}, nil
	})
	route := &Route{Path: ":id", Lazy: h}

	if route.Ready() || route.HasLoader() {
		t.Fatal("unresolved route reports ready or loader")
	}

	mod, err := route.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !route.Ready() || !route.HasLoader() {
		t.Error("resolved route should be ready with a loader")
	}

	data, err := ResolveLoaderData(context.Background(), mod, LoaderArgs{Params: Params{"id": "42"}})
	if err != nil || data != "post 42" {
		t.Errorf("data = %v, %v", data, err)
	}
}

func TestResolveEagerAndRouteLoader(t *testing.T) {
	loader := func(ctx context.Context, args LoaderArgs) (any, error) { return "route", nil }

	eager := &Route{Element: element("home"), Loader: loader}
	mod, err := eager.Resolve(context.Background())
	if err != nil || mod.View == nil || mod.Loader == nil {
		t.Fatalf("eager Resolve = %+v, %v", mod, err)
	}

	lazy := &Route{Lazy: lazyModule(t, "blog", Module{View: element("blog")}), Loader: loader}
	mod, err = lazy.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, _ := ResolveLoaderData(context.Background(), mod, LoaderArgs{})
	if data != "route" {
		t.Errorf("route loader should fill in for module, got %v", data)
	}

	none, _ := (&Route{}).Resolve(context.Background())
	if data, err := ResolveLoaderData(context.Background(), none, LoaderArgs{}); data != nil || err != nil {
		t.Errorf("no loader = %v, %v", data, err)
	}
}

func TestResolveModuleFailure(t *testing.T) {
	boom := errors.New("bundle missing")
	h, _ := deferred.New("blog", func(ctx context.Context) (Module, error) { return Module{}, boom })
	route := &Route{Lazy: h}

	if _, err := route.Resolve(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !route.Ready() {
		t.Error("failed module is settled")
	}
	if route.HasLoader() {
		t.Error("failed module has no loader")
	}
}

func TestPrint(t *testing.T) {
	rt := blogTable(t)

	var buf bytes.Buffer
	if err := rt.Print(&buf); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PATTERN", "(index)", "posts", ":id", "deferred", "module", "group"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNavLink(t *testing.T) {
	tests := []struct {
		current, href string
		exact, active bool
	}{
		{"/posts", "/posts", true, true},
		{"/posts/42", "/posts", false, true},
		{"/posts/42", "/posts", true, false},
		{"/postsx", "/posts", false, false},
		{"/posts", "/", false, false},
	}
	for _, tt := range tests {
		link := NavLink(tt.current, tt.href, tt.exact, "x")
		_, active := link.Props["aria-current"]
		if active != tt.active {
			t.Errorf("NavLink(%q, %q, %v) active = %v", tt.current, tt.href, tt.exact, active)
		}
		if link.Props["data-link"] != "true" || link.Props["data-prefetch"] != "true" {
			t.Errorf("link missing data attributes: %v", link.Props)
		}
	}
}
