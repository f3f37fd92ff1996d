package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

type palette bool

func (p palette) wrap(code, text string) string {
	if !p {
		return text
	}
	return code + text + colorReset
}

// Format renders the error for a terminal. Colors are added when color
// is set.
func (e *Error) Format(color bool) string {
	p := palette(color)
	var b strings.Builder

	b.WriteString(p.wrap(colorRed+colorBold, "ERROR"))
	if e.Code != "" {
		b.WriteString(" " + p.wrap(colorBold, e.Code))
	}
	b.WriteString(": " + e.Message + "\n\n")

	detail := e.Detail
	if detail == "" {
		if t, ok := registry[e.Code]; ok {
			detail = t.Detail
		}
	}
	for _, line := range wrapText(detail, 70) {
		b.WriteString("  " + line + "\n")
	}
	if e.Wrapped != nil {
		b.WriteString("  " + e.Wrapped.Error() + "\n")
	}
	if detail != "" || e.Wrapped != nil {
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  " + p.wrap(colorCyan, "Hint: ") + e.Suggestion + "\n\n")
	}
	return b.String()
}

// FormatJSON returns the error as a JSON object.
func (e *Error) FormatJSON() string {
	out := struct {
		Code       string   `json:"code,omitempty"`
		Category   Category `json:"category,omitempty"`
		Message    string   `json:"message"`
		Detail     string   `json:"detail,omitempty"`
		Suggestion string   `json:"suggestion,omitempty"`
		Cause      string   `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// Print writes err to w, formatted when it is an *Error.
func Print(w io.Writer, err error) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	var e *Error
	if stderrors.As(err, &e) {
		fmt.Fprint(w, e.Format(color))
		return
	}
	fmt.Fprintf(w, "%s: %s\n", palette(color).wrap(colorRed+colorBold, "ERROR"), err)
}

func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
