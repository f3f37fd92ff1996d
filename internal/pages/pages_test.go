package pages

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vango-dev/lazyblog/internal/posts"
	"github.com/vango-dev/lazyblog/pkg/bundle"
	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/render"
	"github.com/vango-dev/lazyblog/pkg/router"
)

func testStore() posts.Store {
	return posts.NewMemoryStore(append(posts.Seed(), posts.Post{
		ID: 42, UserID: 3, Title: "the answer", Body: "Forty-two.",
	})...)
}

type collector struct {
	frames []navigation.Frame
}

func (c *collector) Emit(_ context.Context, f navigation.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func html(t *testing.T, f navigation.Frame) string {
	t.Helper()
	out, err := render.NewRenderer(render.RendererConfig{}).RenderToString(f.Node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func newNavigator(t *testing.T, d Deps) (*navigation.Navigator, *collector) {
	t.Helper()
	rt, err := NewRouter(d)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	c := &collector{}
	return navigation.New(rt, c), c
}

func TestRoutesRequireStore(t *testing.T) {
	if _, err := Routes(Deps{}); err == nil {
		t.Fatal("expected error without a posts store")
	}
}

func TestEmbeddedBundlesLoad(t *testing.T) {
	for _, name := range []string{BlogModule, PostModule} {
		b, err := bundle.Load(context.Background(), EmbeddedBundles(), name)
		if err != nil {
			t.Fatalf("Load(%q): %v", name, err)
		}
		if b.Heading == "" {
			t.Errorf("bundle %q has no heading", name)
		}
	}
}

func TestRouteTable(t *testing.T) {
	rt, err := NewRouter(Deps{Posts: testStore()})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	tests := []struct {
		path string
		leaf string
		id   string
	}{
		{"/", "home", ""},
		{"/posts", "blog", ""},
		{"/posts/", "blog", ""},
		{"/posts/42", "post", "42"},
	}
	for _, tt := range tests {
		m, err := rt.Match(tt.path)
		if err != nil {
			t.Fatalf("Match(%q): %v", tt.path, err)
		}
		if got := m.Leaf().ID; got != tt.leaf {
			t.Errorf("Match(%q) leaf = %q, want %q", tt.path, got, tt.leaf)
		}
		if got := m.Params.Get("id"); got != tt.id {
			t.Errorf("Match(%q) id = %q, want %q", tt.path, got, tt.id)
		}
	}

	if _, err := rt.Match("/nowhere"); !errors.Is(err, router.ErrNotFound) {
		t.Fatalf("Match(/nowhere) error = %v", err)
	}
}

func TestHomeRendersWithoutFallback(t *testing.T) {
	nav, c := newNavigator(t, Deps{Posts: testStore()})

	f, err := nav.Navigate(context.Background(), "/")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if len(c.frames) != 1 || f.Kind != navigation.FrameRender {
		t.Fatalf("frames = %d, kind = %s", len(c.frames), f.Kind)
	}
	out := html(t, f)
	if !strings.Contains(out, "<h1>Home</h1>") {
		t.Errorf("home page missing heading: %s", out)
	}
	if !strings.Contains(out, `aria-current="page"`) {
		t.Errorf("home link not marked current: %s", out)
	}
}

func TestBlogShowsFallbackThenPosts(t *testing.T) {
	nav, c := newNavigator(t, Deps{Posts: testStore()})

	f, err := nav.Navigate(context.Background(), "/posts")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if len(c.frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(c.frames))
	}

	fallback := html(t, c.frames[0])
	if c.frames[0].Kind != navigation.FrameFallback || !strings.Contains(fallback, "<p>Loading...</p>") {
		t.Fatalf("first frame = %s %s", c.frames[0].Kind, fallback)
	}
	if !strings.Contains(fallback, "<nav") {
		t.Errorf("fallback lost the layout: %s", fallback)
	}

	out := html(t, f)
	for _, want := range []string{"<h1>Blog</h1>", "The Answer", `href="/posts/42"`, "5 posts"} {
		if !strings.Contains(out, want) {
			t.Errorf("blog page missing %q: %s", want, out)
		}
	}
	if got := Title(f.Match); got != "Blog | lazyblog" {
		t.Errorf("Title = %q", got)
	}
}

func TestPostShowsFallbackThenPost(t *testing.T) {
	nav, c := newNavigator(t, Deps{Posts: testStore()})

	f, err := nav.Navigate(context.Background(), "/posts/42")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if len(c.frames) != 2 || c.frames[0].Kind != navigation.FrameFallback {
		t.Fatalf("frames = %+v", c.frames)
	}
	out := html(t, f)
	for _, want := range []string{`data-post-id="42"`, "Post 42", "The Answer", "Forty-two."} {
		if !strings.Contains(out, want) {
			t.Errorf("post page missing %q: %s", want, out)
		}
	}
}

func TestPostNotFound(t *testing.T) {
	nav, _ := newNavigator(t, Deps{Posts: testStore()})

	for _, path := range []string{"/posts/999", "/posts/abc"} {
		f, err := nav.Navigate(context.Background(), path)
		if !errors.Is(err, router.ErrNotFound) || !errors.Is(err, posts.ErrNotFound) {
			t.Fatalf("Navigate(%q) error = %v", path, err)
		}
		if f.Status != http.StatusNotFound {
			t.Errorf("Navigate(%q) status = %d", path, f.Status)
		}
		if out := html(t, f); !strings.Contains(out, "Page not found") {
			t.Errorf("Navigate(%q) missing not-found page: %s", path, out)
		}
	}
}

func TestUnmatchedPathKeepsLayout(t *testing.T) {
	nav, _ := newNavigator(t, Deps{Posts: testStore()})

	f, err := nav.Navigate(context.Background(), "/missing")
	if f.Status != http.StatusNotFound || err == nil {
		t.Fatalf("status = %d, err = %v", f.Status, err)
	}
	out := html(t, f)
	if !strings.Contains(out, "Page not found") || !strings.Contains(out, "<nav") {
		t.Errorf("unexpected 404 page: %s", out)
	}
}

func TestMissingBundleFailsOnceAndStaysFailed(t *testing.T) {
	src := &countingSource{Source: bundle.NewFS(fstest.MapFS{})}
	nav, _ := newNavigator(t, Deps{Posts: testStore(), Bundles: src})

	for i := 0; i < 2; i++ {
		f, err := nav.Navigate(context.Background(), "/posts")
		var modErr *navigation.ModuleError
		if !errors.As(err, &modErr) || modErr.Module != BlogModule {
			t.Fatalf("error = %v, want blog ModuleError", err)
		}
		if f.Status != http.StatusInternalServerError {
			t.Errorf("status = %d", f.Status)
		}
		if out := html(t, f); !strings.Contains(out, "Could not load page") {
			t.Errorf("missing error page: %s", out)
		}
	}
	if src.opens != 1 {
		t.Fatalf("bundle opened %d times, want 1", src.opens)
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := deferred.NewRegistry[router.Module]()
	nav, _ := newNavigator(t, Deps{Posts: testStore(), Modules: reg})

	if _, err := nav.Navigate(context.Background(), "/posts"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	snap := reg.Snapshot()
	if snap[BlogModule] != deferred.Ready || snap[PostModule] != deferred.Unrequested {
		t.Fatalf("snapshot = %v", snap)
	}
}

type countingSource struct {
	bundle.Source
	opens int
}

func (s *countingSource) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	s.opens++
	return s.Source.Open(ctx, object)
}
