// Package vdom provides the node tree that pages, layouts and fallbacks
// return.
//
// A VNode is an element, a text node, a fragment, a component, or raw HTML.
// Elements are created with variadic factory functions:
//
//	Div(Class("post"),
//	    H1(Text(post.Title)),
//	    P(Text(post.Body)),
//	)
//
// Arguments may be attributes (Attr), child nodes, slices of either,
// components or plain strings (shorthand for Text). A nil argument is
// ignored, which keeps conditional rendering terse:
//
//	Nav(
//	    A(Href("/"), Text("Home")),
//	    If(showPosts, A(Href("/posts"), Text("Posts"))),
//	)
//
// The tree is rendered to HTML by package render.
package vdom
