// Package deferred provides memoized, single-flight asynchronous values.
//
// A Handle wraps a fetch function that is not called until the first
// Resolve. Concurrent callers share one fetch. The outcome, success or
// failure, is cached for the lifetime of the handle and never retried.
//
//	reg := deferred.NewRegistry[router.Module]()
//	blog, _ := reg.GetOrCreate("blog", loadBlogModule)
//
//	mod, err := blog.Resolve(ctx)
//
// A caller whose context ends stops waiting, but the fetch keeps running
// and its result is cached for the next caller.
package deferred
