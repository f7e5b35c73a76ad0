// Package offline serves the web shell cache-first so it keeps working
// without a network. Caches are versioned by name; activating a version
// deletes every other one.
package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultVersion is the current cache tag.
const DefaultVersion = "nclock-cache-v2"

// Precache lists the documents installed ahead of time.
var Precache = []string{"/", "/index.html", "/manifest.json", "/styles.css"}

const fallbackURI = "/index.html"

// ErrOffline is returned when neither the cache nor the network can answer.
var ErrOffline = errors.New("offline and not cached")

// Responder is a cache-first http.Handler in front of an origin transport.
type Responder struct {
	caches  *CacheStorage
	version string
	network http.RoundTripper
	logger  *slog.Logger
}

// NewResponder returns a Responder using the cache named version.
func NewResponder(caches *CacheStorage, version string, network http.RoundTripper, logger *slog.Logger) *Responder {
	if version == "" {
		version = DefaultVersion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{caches: caches, version: version, network: network, logger: logger}
}

// Version returns the active cache tag.
func (r *Responder) Version() string { return r.version }

// Install fetches every precached document and stores them together. Nothing
// is stored unless all of them were fetched.
func (r *Responder) Install(ctx context.Context) error {
	entries := make(map[string]*Entry, len(Precache))
	for _, uri := range Precache {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://origin"+uri, nil)
		if err != nil {
			return err
		}
		e, err := r.fetch(req)
		if err != nil {
			return fmt.Errorf("precaching %s: %w", uri, err)
		}
		if e.Status < 200 || e.Status > 299 {
			return fmt.Errorf("precaching %s: status %d", uri, e.Status)
		}
		entries[uri] = e
	}

	cache := r.caches.Open(r.version)
	for uri, e := range entries {
		if err := cache.Put(ctx, uri, e); err != nil {
			return fmt.Errorf("precaching %s: %w", uri, err)
		}
	}
	r.logger.Info("offline cache installed", "version", r.version, "documents", len(entries))
	return nil
}

// Activate deletes every cache other than the current version and returns
// the names deleted.
func (r *Responder) Activate(ctx context.Context) ([]string, error) {
	names, err := r.caches.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	var errs []error
	for _, name := range names {
		if name == r.version {
			continue
		}
		if err := r.caches.Delete(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, name)
	}
	if len(deleted) > 0 {
		r.logger.Info("old offline caches deleted", "caches", deleted)
	}
	return deleted, errors.Join(errs...)
}

// ServeHTTP answers from the cache, then the network, then the cached
// root document.
func (r *Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	uri := req.URL.RequestURI()
	cache := r.caches.Open(r.version)

	if req.Method == http.MethodGet {
		if e, ok, err := cache.Match(ctx, uri); err != nil {
			r.logger.Warn("cache lookup failed", "uri", uri, "error", err)
		} else if ok {
			e.Write(w)
			return
		}
	}

	e, err := r.fetch(req)
	if err != nil {
		r.logger.Debug("network fetch failed", "uri", uri, "error", err)
		if fallback, ok, _ := cache.Match(ctx, fallbackURI); ok {
			fallback.Write(w)
			return
		}
		http.Error(w, ErrOffline.Error(), http.StatusGatewayTimeout)
		return
	}

	if req.Method == http.MethodGet && cacheable(req.URL.Path) && e.Status >= 200 && e.Status <= 299 {
		if err := cache.Put(ctx, uri, e); err != nil {
			r.logger.Warn("cache store failed", "uri", uri, "error", err)
		}
	}
	e.Write(w)
}

func (r *Responder) fetch(req *http.Request) (*Entry, error) {
	out := req.Clone(req.Context())
	out.RequestURI = ""
	resp, err := r.network.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	header := resp.Header.Clone()
	header.Del("Content-Length")
	return &Entry{Status: resp.StatusCode, Header: header, Body: body}, nil
}

// cacheable limits runtime caching to images, pages, styles and scripts so
// the cache does not grow without bound.
func cacheable(path string) bool {
	return strings.Contains(path, ".png") ||
		strings.HasSuffix(path, ".html") ||
		strings.HasSuffix(path, ".css") ||
		strings.HasSuffix(path, ".js")
}
