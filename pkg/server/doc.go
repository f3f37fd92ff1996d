// Package server serves the application shell over HTTP.
//
// Routes:
//
//	GET /*                 document navigation, streamed
//	GET /_shell/nav        navigation socket (WebSocket)
//	GET /_shell/client.js  navigation client
//	GET /metrics           Prometheus metrics, when a gatherer is set
//	GET /healthz           liveness and module cache state
//
// # Documents
//
// Every document request runs one navigation. When the navigation has to
// wait for a deferred module or a loader, the document shell is flushed
// with the fallback in place and status 200, and the final page is streamed
// into a template and swapped in by an inline script. Failures found after
// the flush are shown through the same swap; only the status line is
// already gone. With streaming disabled the server waits and writes the
// final page with its real status.
//
// # Navigation socket
//
// Each socket owns a Navigator, so navigations of one tab supersede each
// other. The client sends
//
//	{"path": "/posts/42"}   navigate
//	{"prefetch": "/posts"}  start fetching the modules of a path
//
// and receives one JSON frame per visible state:
//
//	{"type": "fallback"|"render"|"error", "seq": 3, "path": "/posts/42",
//	 "html": "...", "status": 200, "title": "..."}
package server
