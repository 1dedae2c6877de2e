// ABOUTME: Per-run key-value context threaded through every pipeline step.
// ABOUTME: Steps see a read-only view; only the engine merges step output into it.
package pipeline

import (
	"sort"
	"sync"
)

// InputKey is the context key seeded with the caller's free-text request.
const InputKey = "prompt"

// Context is the additively merged state of a single workflow run. It is owned
// by exactly one run. The mutex matters because a step abandoned after a
// timeout may still be reading while the engine merges the next step's output.
type Context struct {
	values map[string]any
	mu     sync.RWMutex
}

// NewContext creates a Context holding a shallow copy of seed.
func NewContext(seed map[string]any) *Context {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Context{values: values}
}

// Get retrieves the value for the given key, or nil if not found.
func (c *Context) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Lookup retrieves the value for key and reports whether it was present.
func (c *Context) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// GetString retrieves the string value for the given key.
// If the key is missing or the value is not a string, defaultVal is returned.
func (c *Context) GetString(key string, defaultVal string) string {
	v, ok := c.Lookup(key)
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

// GetBool retrieves the bool value for the given key, or defaultVal.
func (c *Context) GetBool(key string, defaultVal bool) bool {
	v, ok := c.Lookup(key)
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// Keys returns the context keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of all key-value pairs.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// merge applies updates on top of the current values. Later keys win.
func (c *Context) merge(updates map[string]any) {
	if len(updates) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range updates {
		c.values[k] = v
	}
}
