package posts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps posts in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[int]Post
}

// NewMemoryStore creates a store holding posts.
func NewMemoryStore(posts ...Post) *MemoryStore {
	s := &MemoryStore{posts: make(map[int]Post, len(posts))}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

// Put adds or replaces a post.
func (s *MemoryStore) Put(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

// List returns all posts ordered by id.
func (s *MemoryStore) List(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the post with the given id.
func (s *MemoryStore) Get(ctx context.Context, id int) (*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return &p, nil
}

// Seed returns the sample posts used by the memory store and to seed a
// new SQLite database.
func Seed() []Post {
	return []Post{
		{ID: 1, UserID: 1, Title: "Loading pages on demand", Body: "The blog and post pages are fetched the first time you open them."},
		{ID: 2, UserID: 1, Title: "Fallbacks while you wait", Body: "A short placeholder is shown until the page module and its data are ready."},
		{ID: 3, UserID: 2, Title: "Latest navigation wins", Body: "Clicking quickly between posts never shows a stale page."},
		{ID: 4, UserID: 2, Title: "Streaming the first paint", Body: "The document shell is flushed before the page content is known."},
	}
}
