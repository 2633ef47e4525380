package knowledge

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSearchCacheSize = 256

// CachedSearcher memoizes identical search requests with an LRU cache.
// Useful when the orchestrator re-retrieves context for retries of the same
// prompt. Cached slices are copied on return so callers cannot poison
// entries.
type CachedSearcher struct {
	base  Searcher
	cache *lru.Cache[string, []RetrievalResult]
}

// NewCachedSearcher wraps base with an LRU of the given size (<=0 uses the
// default).
func NewCachedSearcher(base Searcher, size int) (*CachedSearcher, error) {
	if size <= 0 {
		size = defaultSearchCacheSize
	}
	cache, err := lru.New[string, []RetrievalResult](size)
	if err != nil {
		return nil, err
	}
	return &CachedSearcher{base: base, cache: cache}, nil
}

var _ Searcher = (*CachedSearcher)(nil)

// Search returns the cached result for an identical request, or delegates
// and caches. Errors and empty results are not cached negatively; an empty
// hit list is a valid cacheable value.
func (c *CachedSearcher) Search(ctx context.Context, req SearchRequest) ([]RetrievalResult, error) {
	key := cacheKey(req)
	if hits, ok := c.cache.Get(key); ok {
		return append([]RetrievalResult(nil), hits...), nil
	}

	hits, err := c.base.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]RetrievalResult(nil), hits...))
	return hits, nil
}

// Purge drops all cached entries, e.g. after a config update changes what
// the server would return.
func (c *CachedSearcher) Purge() {
	c.cache.Purge()
}

func cacheKey(req SearchRequest) string {
	return fmt.Sprintf("%s|%s|%d|%g|%s", req.CollectionID, req.SearchMode, req.TopK, req.SimilarityThreshold, req.Query)
}
