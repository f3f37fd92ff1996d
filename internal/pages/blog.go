package pages

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vango-dev/lazyblog/internal/posts"
	"github.com/vango-dev/lazyblog/pkg/bundle"
	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

func blogModule(ctx context.Context, d Deps) (router.Module, error) {
	b, err := bundle.Load(ctx, d.Bundles, BlogModule)
	if err != nil {
		return router.Module{}, err
	}
	return router.Module{
		Title: b.Title,
		View:  blogView(b),
		Loader: func(ctx context.Context, _ router.LoaderArgs) (any, error) {
			list, err := d.Posts.List(ctx)
			if err != nil {
				return nil, fmt.Errorf("list posts: %w", err)
			}
			return list, nil
		},
	}, nil
}

func blogView(b *bundle.Bundle) router.ElementFunc {
	return func(rc router.RenderContext) *vdom.VNode {
		list, _ := rc.Data.([]posts.Post)
		title := cases.Title(language.English)

		var body *vdom.VNode
		if len(list) == 0 {
			body = vdom.P(vdom.Text(b.Label("empty", "No posts yet.")))
		} else {
			body = vdom.Ul(
				vdom.Class("posts"),
				vdom.Range(list, func(p posts.Post, _ int) *vdom.VNode {
					id := strconv.Itoa(p.ID)
					return vdom.Li(
						vdom.Key(id),
						router.LinkWithPrefetch("/posts/"+id, vdom.Text(title.String(p.Title))),
					)
				}),
			)
		}

		return vdom.Section(
			vdom.Class("blog"),
			vdom.H1(vdom.Text(b.Heading)),
			vdom.If(b.Intro != "", vdom.P(vdom.Text(b.Intro))),
			vdom.P(vdom.Small(vdom.Textf("%d %s", len(list), b.Label("count", "posts")))),
			body,
		)
	}
}
