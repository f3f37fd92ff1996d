package vdom

import "strings"

func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Attribute sets an arbitrary attribute. Keys starting with "_" are never
// rendered.
func Attribute(key string, value any) Attr { return attr(key, value) }

func ID(id string) Attr { return attr("id", id) }

// Class joins classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// Data sets data-<key>, e.g. Data("post-id", "42") is data-post-id="42".
func Data(key, value string) Attr { return attr("data-"+key, value) }

func Href(url string) Attr { return attr("href", url) }
func Src(url string) Attr  { return attr("src", url) }
func Defer() Attr          { return attr("defer", true) }

// Accessibility

func Role(role string) Attr       { return attr("role", role) }
func AriaLabel(label string) Attr { return attr("aria-label", label) }

// AriaBusy renders aria-busy="true" or "false".
func AriaBusy(busy bool) Attr { return attr("aria-busy", busy) }
