package sqlcatalog

import (
	"strings"
	"sync"

	"github.com/syssam/vellum/dialect/sql"
)

// Cache holds loaded table metadata keyed by fully-qualified name. A table
// entry carries its columns, so removing it evicts both at once. A Cache is
// safe for concurrent use and may be shared between managers that talk to
// the same database.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]*TableMetadata
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string]*TableMetadata)}
}

// Key returns the cache key of a table.
func Key(schema, name string) string {
	return sql.Fold(schema) + "." + sql.Fold(name)
}

// Get returns the cached table, if any.
func (c *Cache) Get(schema, name string) (*TableMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[Key(schema, name)]
	return t, ok
}

// Set stores t under its qualified name, replacing any previous entry.
func (c *Cache) Set(t *TableMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[Key(t.Schema, t.Name)] = t
}

// Delete removes a table. It reports whether the table was cached.
func (c *Cache) Delete(schema, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Key(schema, name)
	_, ok := c.tables[key]
	delete(c.tables, key)
	return ok
}

// DeletePrefix removes every table of the given schema and returns the
// number of removed entries.
func (c *Cache) DeletePrefix(schema string) int {
	prefix := sql.Fold(schema) + "."
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.tables {
		if strings.HasPrefix(key, prefix) {
			delete(c.tables, key)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.tables)
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
