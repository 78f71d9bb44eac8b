package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider wraps another Provider with a short-lived in-memory cache.
// Insight batches routinely repeat text (retries, overlapping sources), and
// re-embedding identical text within minutes is pure waste.
type CachedProvider struct {
	inner Provider
	cache *gocache.Cache
}

func NewCachedProvider(inner Provider, ttl time.Duration) Provider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Generate(ctx context.Context, text string) (*Result, error) {
	key := cacheKey(text)
	if cached, found := p.cache.Get(key); found {
		return cached.(*Result), nil
	}

	res, err := p.inner.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(key, res)
	return res, nil
}

func (p *CachedProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Result, error) {
	results := make([]*Result, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if cached, found := p.cache.Get(cacheKey(text)); found {
			results[i] = cached.(*Result)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	fetched, err := p.inner.GenerateBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, res := range fetched {
		if res == nil {
			continue
		}
		i := missingIdx[j]
		results[i] = res
		p.cache.SetDefault(cacheKey(texts[i]), res)
	}
	return results, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
