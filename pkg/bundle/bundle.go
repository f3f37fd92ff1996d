// Package bundle loads page bundles: the JSON copy a deferred page module
// is built from. Bundles live in an embedded filesystem, a directory, or
// an S3 bucket.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned when a bundle does not exist in its source.
var ErrNotFound = errors.New("bundle: not found")

// Ext is appended to a bundle name to form its object name.
const Ext = ".json"

// Bundle is the decoded content of a page bundle.
type Bundle struct {
	Name    string            `json:"name"`
	Title   string            `json:"title"`
	Heading string            `json:"heading"`
	Intro   string            `json:"intro,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Label returns the label for key, or def when the bundle has none.
func (b *Bundle) Label(key, def string) string {
	if v, ok := b.Labels[key]; ok && v != "" {
		return v
	}
	return def
}

// Source opens bundle objects by object name.
type Source interface {
	Open(ctx context.Context, object string) (io.ReadCloser, error)
}

// Load opens and decodes the bundle called name.
func Load(ctx context.Context, src Source, name string) (*Bundle, error) {
	rc, err := src.Open(ctx, name+Ext)
	if err != nil {
		return nil, fmt.Errorf("open bundle %q: %w", name, err)
	}
	defer rc.Close()

	var b Bundle
	if err := json.NewDecoder(rc).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle %q: %w", name, err)
	}
	if b.Name == "" {
		b.Name = name
	}
	if b.Name != name {
		return nil, fmt.Errorf("bundle %q: name field is %q", name, b.Name)
	}
	if b.Title == "" {
		return nil, fmt.Errorf("bundle %q: missing title", name)
	}
	return &b, nil
}

// Delayed wraps a source so every Open waits d first. It simulates a slow
// network when demonstrating fallbacks.
func Delayed(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return &delayed{src: src, d: d}
}

type delayed struct {
	src Source
	d   time.Duration
}

func (s *delayed) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	t := time.NewTimer(s.d)
	defer t.Stop()
	select {
	case <-t.C:
		return s.src.Open(ctx, object)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
