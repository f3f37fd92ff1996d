// Package router provides the nested route table.
//
// A route table is a tree of Route values built once with New and never
// mutated afterwards:
//
//	table, err := router.New(router.Route{
//	    Path:    "/",
//	    Element: rootLayout,
//	    Children: []router.Route{
//	        {Index: true, Element: home},
//	        {Path: "posts", Children: []router.Route{
//	            {Index: true, Lazy: blogModule, Fallback: loading},
//	            {Path: ":id", Lazy: postModule, Fallback: loading},
//	        }},
//	    },
//	})
//
// # Matching
//
// Match canonicalizes the path and walks the tree. At every level literal
// segments win over a parameter segment (":id"), which wins over a rest
// segment ("*"). An index route matches when its parent consumed the whole
// path. The result is the chain of routes from the root to the leaf plus
// the extracted parameters.
//
// # Elements and modules
//
// An eager route carries its Element (and optional Loader) directly. A
// deferred route carries a Lazy handle that resolves to a Module exporting
// the View and Loader. Route.Resolve returns the module for either kind;
// ResolveLoaderData can only be called with a resolved module, so a loader
// never runs before its module.
//
// A route with neither Element nor Lazy renders its child in place.
package router
