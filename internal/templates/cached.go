package templates

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/emberfit/coach/pkg/provider"
	"github.com/emberfit/coach/pkg/types"
)

// CachedProvider decorates a TemplateProvider with in-memory caching, for
// backends that fetch content remotely or from disk. Rotating providers
// should not be wrapped: caching pins the first variant for the TTL.
type CachedProvider struct {
	inner provider.TemplateProvider
	cache *gocache.Cache
}

// NewCachedProvider creates a cached decorator around inner.
// defaultTTL is the expiration time for cached content.
func NewCachedProvider(inner provider.TemplateProvider, defaultTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(defaultTTL, defaultTTL*2),
	}
}

// Lookup returns content from the cache or delegates to the inner
// provider. Misses from the inner provider are not cached.
func (p *CachedProvider) Lookup(category types.Category, subcategory string) (provider.TemplateContent, bool) {
	key := fmt.Sprintf("%s/%s", category, subcategory)
	if val, found := p.cache.Get(key); found {
		if content, ok := val.(provider.TemplateContent); ok {
			return content, true
		}
	}

	content, ok := p.inner.Lookup(category, subcategory)
	if !ok {
		return provider.TemplateContent{}, false
	}

	p.cache.Set(key, content, gocache.DefaultExpiration)
	return content, true
}
