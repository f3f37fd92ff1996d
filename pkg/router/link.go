package router

import "github.com/vango-dev/lazyblog/pkg/vdom"

// Link creates an anchor the navigation client intercepts. Clicking it
// navigates over the socket instead of loading a new document.
func Link(href string, children ...any) *vdom.VNode {
	args := append([]any{vdom.Href(href), vdom.Data("link", "true")}, children...)
	return vdom.A(args...)
}

// LinkWithPrefetch creates a link whose target modules are prefetched
// when the pointer rests on it.
func LinkWithPrefetch(href string, children ...any) *vdom.VNode {
	args := append([]any{
		vdom.Href(href),
		vdom.Data("link", "true"),
		vdom.Data("prefetch", "true"),
	}, children...)
	return vdom.A(args...)
}

// NavLink creates a link marked with aria-current="page" when href equals
// the current path, or is a prefix of it and exact is false.
func NavLink(current, href string, exact bool, children ...any) *vdom.VNode {
	link := LinkWithPrefetch(href, children...)
	if isActive(current, href, exact) {
		link.Props["aria-current"] = "page"
		link.Props["class"] = "active"
	}
	return link
}

func isActive(current, href string, exact bool) bool {
	if current == href {
		return true
	}
	if exact || href == "/" {
		return false
	}
	return len(current) > len(href) && current[:len(href)] == href && current[len(href)] == '/'
}
