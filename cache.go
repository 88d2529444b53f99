package loom

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
)

const defaultParseCacheSize = 128

// sourceHash fingerprints template source so that parse results can be
// deduplicated by name+content rather than name alone.
func sourceHash(source string) uint64 {
	return xxhash.Sum64String(source)
}

// parseCache is an LRU of loader-backed parse results keyed by template
// name. Entries are immutable once parsed; the cache only ever replaces
// whole entries, so concurrent readers are safe.
type parseCache struct {
	entries *lru.Cache
}

func newParseCache(size int) (*parseCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &parseCache{entries: entries}, nil
}

func (c *parseCache) get(name string) (*compiledTemplate, bool) {
	if val, ok := c.entries.Get(name); ok {
		if t, ok := val.(*compiledTemplate); ok {
			return t, true
		}
	}
	return nil, false
}

func (c *parseCache) put(t *compiledTemplate) {
	c.entries.Add(t.name, t)
}

func (c *parseCache) invalidate(name string) {
	c.entries.Remove(name)
}

func (c *parseCache) purge() {
	c.entries.Purge()
}
