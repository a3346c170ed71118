package memory

import "sync"

// SessionCache remembers the active conversation id per user. It is a hint
// only; the stored UserRecord is authoritative.
type SessionCache struct {
	mu  sync.RWMutex
	ids map[int64]string
}

// NewSessionCache returns an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{ids: make(map[int64]string)}
}

func (c *SessionCache) Get(userID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[userID]
	return id, ok
}

func (c *SessionCache) Set(userID int64, convID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[userID] = convID
}

func (c *SessionCache) Forget(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, userID)
}

// Len returns the number of cached users.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
