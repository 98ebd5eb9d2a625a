package resolve

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/claimforge/internal/cache"
	"github.com/ppiankov/claimforge/internal/model"
)

// Cached wraps a resolver with a TTL cache keyed by the reference's
// identifiers. Only confident results are cached; misses and errors go
// back to the provider on the next lookup.
type Cached struct {
	inner Resolver
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner with the given cache.
func NewCached(inner Resolver, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name identifies the wrapped resolver for provenance.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Resolve serves from cache when possible.
func (c *Cached) Resolve(ctx context.Context, ref model.LinkedSourceRef, opts Options) (*model.SourceDetails, error) {
	key := cache.Key("resolve", c.inner.Name(),
		ref.DOI, ref.PMID, ref.ArxivID, ref.OpenAlexID, ref.SemanticScholarID, ref.Title)

	if data, found := c.cache.Get(key); found {
		var details model.SourceDetails
		if err := json.Unmarshal(data, &details); err == nil {
			return &details, nil
		}
		// Corrupt entry: fall through to the provider.
		_ = c.cache.Delete(key)
	}

	details, err := c.inner.Resolve(ctx, ref, opts)
	if err != nil || details == nil {
		return details, err
	}

	if data, err := json.Marshal(details); err == nil {
		_ = c.cache.Set(key, data, c.ttl)
	}
	return details, nil
}
