/*Package modcache implements the name-to-index table a Client consults
before issuing a dyld request. It is intentionally tiny: lookups are a
plain map read, there is no TTL, and the only way an entry disappears is an
explicit Unload - a firmware swap invalidates the whole cache and requires
the Client's transport to be reopened, not a cache-level eviction.
*/
package modcache

import "sync"

// Module is a single resolved module record: the name the caller used to
// look it up, the index the firmware assigned it, and the version the
// device reported (always 0 until the wire protocol grows version
// negotiation).
type Module struct {
	Name    string
	Index   uint32
	Version uint16
}

// Cache maps module names to the Module record a dyld resolved. It is safe
// for concurrent use, though a Client only ever touches its own Cache from
// within the single in-flight operation it is serializing.
type Cache struct {
	mu      sync.Mutex
	modules map[string]Module
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{modules: make(map[string]Module)}
}

// Find returns the cached module record for name, if present.
func (c *Cache) Find(name string) (Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.modules[name]
	return m, ok
}

// Insert records a module resolved by a successful dyld. Per invariant I7,
// callers must only Insert entries the device actually confirmed.
func (c *Cache) Insert(m Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[m.Name] = m
}

// Unload removes name from the cache, reporting whether it was present.
func (c *Cache) Unload(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.modules[name]
	delete(c.modules, name)
	return ok
}

// Len returns the number of cached module records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

// Names returns the cached module names. The order is unspecified.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.modules))
	for name := range c.modules {
		out = append(out, name)
	}
	return out
}
