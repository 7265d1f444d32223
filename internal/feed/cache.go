package feed

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	minCacheTTL = 30 * time.Second
	maxCacheTTL = 24 * time.Hour
)

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// responseCache is a TTL cache for upstream responses keyed by request URL.
// Population always follows a full fetch-and-replace per key, so last-write-wins
// reads are safe.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	return entry.body, true
}

func (c *responseCache) set(key string, body []byte, ttl time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{body: body, expiresAt: now.Add(ttl)}
}

// cacheTTL derives the TTL for a response: the Cache-Control max-age hint when
// present, clamped to sane bounds, otherwise the caller's default.
func cacheTTL(header http.Header, defaultTTL time.Duration) time.Duration {
	maxAge, ok := parseMaxAge(header.Get("Cache-Control"))
	if !ok {
		return defaultTTL
	}
	if maxAge < minCacheTTL {
		return minCacheTTL
	}
	if maxAge > maxCacheTTL {
		return maxCacheTTL
	}
	return maxAge
}

func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err != nil || seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}
