package render

import (
	"fmt"
	"io"

	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// MountID is the id of the element that holds the routed page tree.
const MountID = "app"

// PageData contains everything needed to render a complete document.
type PageData struct {
	// Body is the routed page tree, rendered inside the mount element.
	Body *vdom.VNode

	Title string

	// Path is the navigated path, exposed to the client as data-path.
	Path string

	Meta []MetaTag

	// StyleSheets are paths to external stylesheets.
	StyleSheets []string

	// Styles are inline CSS blocks.
	Styles []string

	// Lang defaults to "en".
	Lang string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name    string
	Content string
}

// RenderPage renders a complete HTML document to the given writer.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	if err := r.openDocument(w, page, false); err != nil {
		return err
	}
	if err := r.RenderToWriter(w, page.Body); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "</div>\n"); err != nil {
		return err
	}
	return closeDocument(w)
}

// openDocument writes everything up to and including the opening tag of
// the mount element. A busy mount carries aria-busy until swapped.
func (r *Renderer) openDocument(w io.Writer, page PageData, busy bool) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n", escapeAttr(lang)); err != nil {
		return err
	}
	if err := r.renderHead(w, page); err != nil {
		return err
	}
	busyAttr := ""
	if busy {
		busyAttr = ` aria-busy="true"`
	}
	_, err := fmt.Fprintf(w, "<body>\n<div id=\"%s\" data-path=\"%s\"%s>", MountID, escapeAttr(page.Path), busyAttr)
	return err
}

func closeDocument(w io.Writer) error {
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (r *Renderer) renderHead(w io.Writer, page PageData) error {
	if _, err := io.WriteString(w, "<head>\n"+
		`  <meta charset="utf-8">`+"\n"+
		`  <meta name="viewport" content="width=device-width, initial-scale=1">`+"\n"); err != nil {
		return err
	}

	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}

	for _, meta := range page.Meta {
		if meta.Name == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "  <meta name=\"%s\" content=\"%s\">\n",
			escapeAttr(meta.Name), escapeAttr(meta.Content)); err != nil {
			return err
		}
	}

	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, "  <link rel=\"stylesheet\" href=\"%s\">\n", escapeAttr(href)); err != nil {
			return err
		}
	}

	for _, style := range page.Styles {
		if _, err := fmt.Fprintf(w, "  <style>%s</style>\n", style); err != nil {
			return err
		}
	}

	if r.config.ClientScript != "" {
		if _, err := fmt.Fprintf(w, "  <script src=\"%s\" defer></script>\n", escapeAttr(r.config.ClientScript)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</head>\n")
	return err
}
