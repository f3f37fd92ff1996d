// Package pages defines the blog's route table: the root layout, the eager
// Home page and the deferred Blog and Post page modules.
package pages

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/vango-dev/lazyblog/internal/posts"
	"github.com/vango-dev/lazyblog/pkg/bundle"
	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// SiteName is shown in the header and used as the default document title.
const SiteName = "lazyblog"

// Module keys of the deferred pages.
const (
	BlogModule = "blog"
	PostModule = "post"
)

//go:embed bundles/*.json
var embedded embed.FS

// EmbeddedBundles returns the bundle source compiled into the binary.
func EmbeddedBundles() bundle.Source {
	sub, err := fs.Sub(embedded, "bundles")
	if err != nil {
		panic(err)
	}
	return bundle.NewFS(sub)
}

// Deps are what the pages need at runtime.
type Deps struct {
	Posts   posts.Store
	Bundles bundle.Source

	// Modules caches the deferred page modules. A private registry is
	// created when nil.
	Modules *deferred.Registry[router.Module]
}

// Loading is the fallback shown while a deferred page is pending.
func Loading() *vdom.VNode {
	return vdom.P(vdom.Text("Loading..."))
}

// Routes returns the route definitions.
func Routes(d Deps) ([]router.Route, error) {
	if d.Posts == nil {
		return nil, errors.New("pages: posts store is required")
	}
	if d.Bundles == nil {
		d.Bundles = EmbeddedBundles()
	}
	if d.Modules == nil {
		d.Modules = deferred.NewRegistry[router.Module]()
	}

	blog, err := d.Modules.GetOrCreate(BlogModule, func(ctx context.Context) (router.Module, error) {
		return blogModule(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	post, err := d.Modules.GetOrCreate(PostModule, func(ctx context.Context) (router.Module, error) {
		return postModule(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	return []router.Route{{
		Path:         "/",
		ID:           "root",
		Element:      Layout,
		ErrorElement: LayoutError,
		Children: []router.Route{
			{Index: true, ID: "home", Element: Home},
			{Path: "posts", ID: "blog", Lazy: blog, Fallback: Loading()},
			{Path: "posts/:id", ID: "post", Lazy: post, Fallback: Loading()},
		},
	}}, nil
}

// NewRouter builds the route table.
func NewRouter(d Deps) (*router.Router, error) {
	routes, err := Routes(d)
	if err != nil {
		return nil, err
	}
	return router.New(routes...)
}

// Title returns the document title for a matched chain: the leaf module's
// title once it has resolved, else the site name.
func Title(m *router.Match) string {
	if m == nil {
		return SiteName
	}
	leaf := m.Leaf()
	if leaf == nil || leaf.Lazy == nil {
		return SiteName
	}
	if mod, done, err := leaf.Lazy.Peek(); done && err == nil && mod.Title != "" {
		return mod.Title + " | " + SiteName
	}
	return SiteName
}

// Layout is the root route element.
func Layout(rc router.RenderContext) *vdom.VNode {
	return vdom.Fragment(
		vdom.Header(
			vdom.Nav(
				vdom.AriaLabel("Main"),
				vdom.Strong(vdom.Text(SiteName)),
				vdom.Text(" "),
				router.NavLink(rc.Path, "/", true, vdom.Text("Home")),
				vdom.Text(" "),
				router.NavLink(rc.Path, "/posts", false, vdom.Text("Blog")),
			),
		),
		vdom.Main(vdom.ID("outlet"), rc.Outlet),
	)
}

// LayoutError is the root error boundary. It keeps the layout around the
// error message.
func LayoutError(rc router.RenderContext, err error) *vdom.VNode {
	heading := "Could not load page"
	if navigation.StatusOf(err) == http.StatusNotFound {
		heading = "Page not found"
	}

	var detail string
	var modErr *navigation.ModuleError
	switch {
	case errors.As(err, &modErr):
		detail = fmt.Sprintf("The %s page is unavailable.", modErr.Module)
	case navigation.StatusOf(err) == http.StatusNotFound:
		detail = fmt.Sprintf("Nothing lives at %s.", rc.Path)
	default:
		detail = err.Error()
	}

	rc.Outlet = vdom.Section(
		vdom.Role("alert"),
		vdom.H1(vdom.Text(heading)),
		vdom.P(vdom.Text(detail)),
		vdom.P(router.Link("/", vdom.Text("Go home"))),
	)
	return Layout(rc)
}

// Home is the index page.
func Home(rc router.RenderContext) *vdom.VNode {
	return vdom.Section(
		vdom.H1(vdom.Text("Home")),
		vdom.P(vdom.Text("Welcome. The blog pages are loaded the first time you visit them.")),
		vdom.P(router.LinkWithPrefetch("/posts", vdom.Text("Read the blog"))),
	)
}
