package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/runnerr0/nclock/internal/storage"
)

// KeyPrefix namespaces cached responses in the store.
const KeyPrefix = "offline/"

// Entry is a stored response.
type Entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// CacheStorage holds named response caches in a Store. A cache exists
// once something has been put into it.
type CacheStorage struct {
	store storage.Store
}

func NewCacheStorage(store storage.Store) *CacheStorage {
	return &CacheStorage{store: store}
}

// Open returns the cache called name.
func (cs *CacheStorage) Open(name string) *Cache {
	return &Cache{store: cs.store, name: name}
}

// Keys returns the names of all caches, sorted.
func (cs *CacheStorage) Keys(ctx context.Context) ([]string, error) {
	keys, err := cs.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing caches: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, k := range keys {
		name, _, ok := strings.Cut(strings.TrimPrefix(k, KeyPrefix), "|")
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the cache called name and everything in it.
func (cs *CacheStorage) Delete(ctx context.Context, name string) error {
	if err := cs.store.Purge(ctx, cachePrefix(name)); err != nil {
		return fmt.Errorf("deleting cache %s: %w", name, err)
	}
	return nil
}

// Cache maps request URIs to responses.
type Cache struct {
	store storage.Store
	name  string
}

func (c *Cache) Name() string { return c.name }

// Match returns the response stored for uri.
func (c *Cache) Match(ctx context.Context, uri string) (*Entry, bool, error) {
	raw, ok, err := c.store.Get(ctx, c.key(uri))
	if err != nil || !ok {
		return nil, false, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Unreadable entries behave as misses and get replaced on the next fetch.
		return nil, false, nil
	}
	return &e, true, nil
}

// Put stores e under uri, replacing any previous response.
func (c *Cache) Put(ctx context.Context, uri string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cached response: %w", err)
	}
	return c.store.Set(ctx, c.key(uri), string(data))
}

func (c *Cache) key(uri string) string {
	return cachePrefix(c.name) + uri
}

func cachePrefix(name string) string {
	return KeyPrefix + name + "|"
}

// Write sends e to w.
func (e *Entry) Write(w http.ResponseWriter) {
	for k, vs := range e.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(e.Body)
}
