package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache whose entries expire after a fixed TTL.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	val string
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) (string, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return "", ErrMiss
	}

	return e.val, nil
}

func (c *Memory) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	c.m[key] = entry{val: value, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Clear(_ context.Context) error {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
	return nil
}
