package render

// isInlineElement reports whether tag stays on its parent's line in pretty
// output.
func isInlineElement(tag string) bool {
	switch tag {
	case "a", "b", "br", "code", "em", "i", "small", "span", "strong", "time":
		return true
	}
	return false
}

// isBooleanAttr reports whether name is written bare when true and omitted
// when false.
func isBooleanAttr(name string) bool {
	switch name {
	case "async", "checked", "defer", "disabled", "hidden", "open", "required", "selected":
		return true
	}
	return false
}
