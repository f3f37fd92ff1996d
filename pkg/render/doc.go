// Package render turns vdom trees into HTML.
//
// The Renderer writes a node tree to any io.Writer. RenderPage wraps a tree
// in a complete document (DOCTYPE, head, body, client script).
//
// # Streaming
//
// A StreamingRenderer writes a document in two steps so a deferred page can
// show its fallback before its content is ready:
//
//	sr := render.NewStreamingRenderer(w, render.RendererConfig{})
//	sr.Open(page, fallbackTree)   // shell flushed to the browser
//	sr.Swap(resolvedTree)         // <template> + inline swap script
//	sr.Close()
//
// The swap script replaces the children of the mount element with the
// template content, so the final document is correct with or without the
// client script.
package render
