package apiclient

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// newCachingTransport wraps next with an RFC 7234 cache. List endpoints
// answer with an ETag so repeat loads revalidate instead of re-downloading.
func newCachingTransport(cache httpcache.Cache, next http.RoundTripper) http.RoundTripper {
	transport := httpcache.NewTransport(cache)
	transport.Transport = next
	transport.MarkCachedResponses = true

	return transport
}

// responseCache holds cached responses in memory, or under dir when set so
// they persist across invocations of the CLI. Purge drops everything, which
// happens when the session that fetched the responses ends.
type responseCache struct {
	dir string

	mu    sync.RWMutex
	cache httpcache.Cache
}

func newResponseCache(dir string) *responseCache {
	c := &responseCache{dir: dir}
	c.cache = c.empty()
	return c
}

func (c *responseCache) empty() httpcache.Cache {
	if c.dir == "" {
		return httpcache.NewMemoryCache()
	}
	return diskcache.New(c.dir)
}

func (c *responseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Get(key)
}

func (c *responseCache) Set(key string, responseBytes []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.cache.Set(key, responseBytes)
}

func (c *responseCache) Delete(key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.cache.Delete(key)
}

// Purge drops every cached response.
func (c *responseCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dir != "" {
		if err := os.RemoveAll(c.dir); err != nil {
			return fmt.Errorf("failed to remove http cache: %w", err)
		}
	}
	c.cache = c.empty()
	return nil
}
