package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// ErrStreamState is returned when StreamingRenderer methods are called out
// of order.
var ErrStreamState = errors.New("render: stream used out of order")

const swapScript = `<script>(function(){var t=document.getElementById("%[1]s"),m=document.getElementById("%[2]s");` +
	`if(t&&m){m.replaceChildren(t.content.cloneNode(true));m.removeAttribute("aria-busy");t.remove();}})();</script>` + "\n"

type streamState uint8

const (
	streamIdle streamState = iota
	streamOpen
	streamSwapped
	streamClosed
)

// StreamingRenderer writes a document in stages, flushing after each one.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       io.Writer
	state   streamState
	swaps   int
}

// NewStreamingRenderer creates a streaming renderer that writes to w.
// If w implements http.Flusher, each stage is flushed.
func NewStreamingRenderer(w io.Writer, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{
		Renderer: NewRenderer(config),
		flusher:  flusher,
		w:        w,
	}
}

// RenderPage renders a complete document, flushing once at the end.
func (s *StreamingRenderer) RenderPage(page PageData) error {
	if s.state != streamIdle {
		return ErrStreamState
	}
	if err := s.Renderer.RenderPage(s.w, page); err != nil {
		return err
	}
	s.state = streamClosed
	s.flush()
	return nil
}

// Open writes the head and the mount element containing placeholder, then
// flushes. page.Body is ignored.
func (s *StreamingRenderer) Open(page PageData, placeholder *vdom.VNode) error {
	if s.state != streamIdle {
		return ErrStreamState
	}
	if err := s.openDocument(s.w, page, true); err != nil {
		return err
	}
	if err := s.RenderToWriter(s.w, placeholder); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, "</div>\n"); err != nil {
		return err
	}
	s.state = streamOpen
	s.flush()
	return nil
}

// Swap streams node as the new content of the mount element. It may be
// called more than once; the last swap wins.
func (s *StreamingRenderer) Swap(node *vdom.VNode) error {
	if s.state != streamOpen && s.state != streamSwapped {
		return ErrStreamState
	}

	var buf bytes.Buffer
	if err := s.RenderToWriter(&buf, node); err != nil {
		return err
	}

	s.swaps++
	id := fmt.Sprintf("%s-swap-%d", MountID, s.swaps)
	if _, err := fmt.Fprintf(s.w, "<template id=\"%s\">%s</template>\n", id, escapeTemplate(buf.String())); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, swapScript, id, MountID); err != nil {
		return err
	}
	s.state = streamSwapped
	s.flush()
	return nil
}

// Close finishes an opened document. Closing an idle or closed renderer
// is a no-op.
func (s *StreamingRenderer) Close() error {
	if s.state != streamOpen && s.state != streamSwapped {
		return nil
	}
	s.state = streamClosed
	if err := closeDocument(s.w); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Opened reports whether the shell has been written.
func (s *StreamingRenderer) Opened() bool {
	return s.state != streamIdle
}

func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// FlushableWriter wraps an io.Writer and counts flushes. Used in tests.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}
