package pages

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vango-dev/lazyblog/internal/posts"
	"github.com/vango-dev/lazyblog/pkg/bundle"
	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

func postModule(ctx context.Context, d Deps) (router.Module, error) {
	b, err := bundle.Load(ctx, d.Bundles, PostModule)
	if err != nil {
		return router.Module{}, err
	}
	return router.Module{
		Title:  b.Title,
		View:   postView(b),
		Loader: postLoader(d.Posts),
	}, nil
}

func postLoader(store posts.Store) router.LoaderFunc {
	return func(ctx context.Context, args router.LoaderArgs) (any, error) {
		raw := args.Params.Get("id")
		id, err := posts.ParseID(raw)
		if err == nil {
			var p *posts.Post
			if p, err = store.Get(ctx, id); err == nil {
				return p, nil
			}
		}
		if errors.Is(err, posts.ErrNotFound) {
			return nil, fmt.Errorf("post %q: %w: %w", raw, router.ErrNotFound, err)
		}
		return nil, fmt.Errorf("post %q: %w", raw, err)
	}
}

func postView(b *bundle.Bundle) router.ElementFunc {
	return func(rc router.RenderContext) *vdom.VNode {
		id := rc.Params.Get("id")
		p, _ := rc.Data.(*posts.Post)

		heading := b.Heading
		var body, byline *vdom.VNode
		if p != nil {
			heading = cases.Title(language.English).String(p.Title)
			body = vdom.P(vdom.Text(p.Body))
			byline = vdom.P(vdom.Small(vdom.Textf("%s %d", b.Label("author", "Written by user"), p.UserID)))
		}

		return vdom.Article(
			vdom.Class("post"),
			vdom.Data("post-id", id),
			vdom.P(vdom.Small(vdom.Textf("%s %s", b.Label("id", "Post"), id))),
			vdom.H1(vdom.Text(heading)),
			byline,
			body,
			vdom.P(router.Link("/posts", vdom.Text(b.Label("back", "Back to the blog")))),
		)
	}
}
