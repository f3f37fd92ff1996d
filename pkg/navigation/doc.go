// Package navigation dispatches navigations against a route table.
//
// A Navigator owns one navigation timeline: a browser tab connected over
// the navigation socket, or a single document request. Every call to
// Navigate takes the next sequence number and walks through
//
//	Matching -> Loading -> Rendering
//
// emitting frames to a Sink. While a deferred route is still fetching its
// module, or has a loader to run, one fallback frame is emitted first.
// Only the latest navigation may emit: once a newer navigation starts, an
// older one stops emitting and returns ErrSuperseded, whatever its own
// outcome was. Its module fetches keep running and fill the module cache.
package navigation
