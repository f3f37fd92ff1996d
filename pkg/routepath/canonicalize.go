// Package routepath canonicalizes and decodes URL paths before they reach
// the route table.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Path errors. Every one of them wraps ErrInvalidPath.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = pathError("path contains backslash")
	ErrNullByteInPath        = pathError("path contains null byte")
	ErrInvalidPercentEscape  = pathError("invalid percent escape sequence")
	ErrPathEscapesRoot       = pathError("path escapes root via ..")
	ErrEncodedSlashInSegment = pathError("encoded slash (%2F) in segment")
	ErrNotRelative           = pathError("navigation path must be site-relative")
)

func pathError(msg string) error {
	return &wrapped{msg: msg}
}

type wrapped struct{ msg string }

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return ErrInvalidPath }

// Canonical is a canonicalized path split from its query string.
type Canonical struct {
	// Path starts with "/" and has no trailing slash unless it is the root.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether Path differs from the input path.
	Changed bool
}

// String returns the path with its query string, if any.
func (c Canonical) String() string {
	if c.Query == "" {
		return c.Path
	}
	return c.Path + "?" + c.Query
}

// Canonicalize normalizes a URL path:
//   - collapses repeated slashes
//   - drops "." segments and resolves ".." segments
//   - removes the trailing slash (except for "/")
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the root
// are rejected. A query string is split off and kept as is.
func Canonicalize(input string) (Canonical, error) {
	if input == "" {
		return Canonical{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, `\`) {
		return Canonical{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(path, "%00") {
		return Canonical{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") && !validEscapes(path) {
		return Canonical{}, ErrInvalidPercentEscape
	}

	segments := make([]string, 0, strings.Count(path, "/"))
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return Canonical{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	out := "/" + strings.Join(segments, "/")
	return Canonical{Path: out, Query: query, Changed: out != path}, nil
}

// CanonicalizeNav canonicalizes a path received from a client navigation
// request. Absolute and scheme-relative URLs are rejected.
func CanonicalizeNav(input string) (Canonical, error) {
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return Canonical{}, ErrNotRelative
	}
	return Canonicalize(input)
}

// Segments splits a canonical path into its raw segments. The root path
// has none.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment percent-decodes a single segment. Unless rest is set, a
// segment that decodes to something containing "/" is rejected.
func DecodeSegment(segment string, rest bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !rest && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

func validEscapes(path string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return false
		}
		i += 2
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
