package domain

// IconKey identifies an icon lookup.
type IconKey struct {
	Type   string
	IconID string
}

// IconCache memoizes resolved icon paths for one processing batch.
// It is not safe for concurrent use.
type IconCache struct {
	entries map[IconKey]string
}

// NewIconCache creates an empty cache.
func NewIconCache() *IconCache {
	return &IconCache{entries: make(map[IconKey]string)}
}

// Get returns the cached path for the pair.
func (c *IconCache) Get(typ, iconID string) (string, bool) {
	p, ok := c.entries[IconKey{Type: typ, IconID: iconID}]
	return p, ok
}

// Put stores a resolved path.
func (c *IconCache) Put(typ, iconID, path string) {
	c.entries[IconKey{Type: typ, IconID: iconID}] = path
}

// Len returns the number of cached pairs.
func (c *IconCache) Len() int {
	return len(c.entries)
}
