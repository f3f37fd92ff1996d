package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public JSONPlaceholder API.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

const maxResponseBytes = 4 << 20

// HTTPStore reads posts from a JSONPlaceholder-compatible API:
// GET {base}/posts and GET {base}/posts/{id}.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates an HTTP store. A nil client gets a 10s timeout.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStore{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// List fetches all posts.
func (s *HTTPStore) List(ctx context.Context) ([]Post, error) {
	var out []Post
	if err := s.getJSON(ctx, "/posts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one post.
func (s *HTTPStore) Get(ctx context.Context, id int) (*Post, error) {
	var p Post
	if err := s.getJSON(ctx, "/posts/"+strconv.Itoa(id), &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		// JSONPlaceholder answers unknown ids with 404, some mirrors with {}.
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return &p, nil
}

func (s *HTTPStore) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("get %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
