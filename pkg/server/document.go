package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/render"
	"github.com/vango-dev/lazyblog/pkg/routepath"
)

// serveDocument answers a full page load with one navigation.
func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request) {
	target := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	// Non-canonical paths are redirected so every page has one URL.
	// Invalid ones fall through and the navigator renders the 400 page.
	if c, err := routepath.Canonicalize(target); err == nil && c.Changed {
		http.Redirect(w, r, c.String(), http.StatusPermanentRedirect)
		return
	}

	sink := &documentSink{
		server: s,
		w:      w,
		stream: render.NewStreamingRenderer(w, render.RendererConfig{
			Pretty:       s.config.Pretty,
			ClientScript: ClientPath,
		}),
		streaming: s.config.Stream,
	}
	nav := navigation.New(s.routes, sink, s.navOpts...)

	frame, err := nav.Navigate(r.Context(), target)
	if frame.Node == nil && err != nil {
		// Cancelled before anything final was emitted.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = sink.stream.Close()
			return
		}
		if !sink.stream.Opened() {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	if err := sink.stream.Close(); err != nil {
		s.logger.Debug("document close failed", "path", target, "error", err)
	}
}

// documentSink writes the frames of a document navigation.
type documentSink struct {
	server    *Server
	w         http.ResponseWriter
	stream    *render.StreamingRenderer
	streaming bool
}

func (d *documentSink) Emit(_ context.Context, f navigation.Frame) error {
	page := d.server.pageData(f.Path, f.Match)

	if f.Kind == navigation.FrameFallback {
		if !d.streaming {
			return nil
		}
		d.writeHeader(http.StatusOK)
		return d.stream.Open(page, f.Node)
	}

	if d.stream.Opened() {
		return d.stream.Swap(f.Node)
	}
	page.Body = f.Node
	d.writeHeader(f.Status)
	return d.stream.RenderPage(page)
}

func (d *documentSink) writeHeader(status int) {
	h := d.w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	if d.streaming {
		// Ask buffering proxies to pass the shell through.
		h.Set("X-Accel-Buffering", "no")
	}
	d.w.WriteHeader(status)
}
