// SPDX-License-Identifier: MIT

// Package catalog reads avatar reference data from the provider's catalog.
// The catalog itself is owned elsewhere; this package only looks avatars up
// and caches the results.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avocast/avocast/internal/cache"
	"github.com/avocast/avocast/internal/session/model"
)

// ErrNotFound is returned when the provider has no avatar with the given ID.
var ErrNotFound = errors.New("catalog: avatar not found")

const defaultTTL = 5 * time.Minute

// Catalog is a cached, read-only view over the provider's avatar catalog.
type Catalog struct {
	base   string
	apiKey string
	http   *http.Client
	cache  cache.Cache
	ttl    time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache replaces the default in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(cat *Catalog) { cat.cache = c }
}

// WithTTL overrides the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(cat *Catalog) { cat.ttl = ttl }
}

// New creates a catalog client for the given provider base URL.
func New(base, apiKey string, opts ...Option) *Catalog {
	c := &Catalog{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryCache(time.Minute)
	}
	return c
}

// Get returns the avatar with the given ID, from cache when fresh.
func (c *Catalog) Get(ctx context.Context, id string) (*model.Avatar, error) {
	key := "avatar:" + id
	if v, ok := c.cache.Get(key); ok {
		if av, ok := decodeCached(v); ok {
			return av, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/avatars/"+id, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch avatar %s: %w", id, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: fetch avatar %s: HTTP %d", id, res.StatusCode)
	}

	var av model.Avatar
	if err := json.NewDecoder(res.Body).Decode(&av); err != nil {
		return nil, fmt.Errorf("catalog: decode avatar %s: %w", id, err)
	}

	c.cache.Set(key, &av, c.ttl)
	return &av, nil
}

// Close releases the cache.
func (c *Catalog) Close() {
	c.cache.Close()
}

// decodeCached tolerates both in-process (*model.Avatar) and serialized
// (map from the Redis backend) cache hits.
func decodeCached(v any) (*model.Avatar, bool) {
	switch t := v.(type) {
	case *model.Avatar:
		return t, true
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, false
		}
		var av model.Avatar
		if err := json.Unmarshal(raw, &av); err != nil {
			return nil, false
		}
		return &av, true
	default:
		return nil, false
	}
}
