package conversation

import (
	"sync"

	"github.com/vibecheck-ai/vibecheck/internal/session"
)

// Cache holds fetched sessions by id so browsing history and resuming a
// session do not refetch on every view change.
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]*session.ChatSession
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{sessions: make(map[string]*session.ChatSession)}
}

// Get returns the cached session, or nil and false.
func (c *Cache) Get(id string) (*session.ChatSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Put stores a session. Sessions without an id are ignored.
func (c *Cache) Put(s *session.ChatSession) {
	if s == nil || s.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
}

// Invalidate drops a session from the cache.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}

// Len reports the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
