// Package posts provides the blog post data behind the Blog and Post
// loaders. Posts come from a JSONPlaceholder-compatible HTTP API, a SQLite
// database, or an in-memory seed, optionally behind a Redis cache.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = errors.New("posts: not found")

// Post is a single blog post.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Store reads posts.
type Store interface {
	List(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, id int) (*Post, error)
}

// ParseID parses a post id taken from a URL. Anything that is not a
// positive integer is reported as ErrNotFound.
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, s)
	}
	return id, nil
}
