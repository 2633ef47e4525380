package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls int
	hits  []RetrievalResult
	err   error
}

func (s *countingSearcher) Search(context.Context, SearchRequest) ([]RetrievalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func TestCachedSearcherMemoizesIdenticalRequests(t *testing.T) {
	base := &countingSearcher{hits: []RetrievalResult{{ID: "c1", Content: "hit", Score: 0.9}}}
	cached, err := NewCachedSearcher(base, 8)
	require.NoError(t, err)

	req := SearchRequest{CollectionID: "kb1", Query: "q"}
	first, err := cached.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := cached.Search(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 1, base.calls)
	require.Equal(t, first, second)
}

func TestCachedSearcherKeyIncludesTuning(t *testing.T) {
	base := &countingSearcher{}
	cached, err := NewCachedSearcher(base, 8)
	require.NoError(t, err)

	_, err = cached.Search(context.Background(), SearchRequest{CollectionID: "kb1", Query: "q", TopK: 3})
	require.NoError(t, err)
	_, err = cached.Search(context.Background(), SearchRequest{CollectionID: "kb1", Query: "q", TopK: 7})
	require.NoError(t, err)

	require.Equal(t, 2, base.calls)
}

func TestCachedSearcherCopiesOnReturn(t *testing.T) {
	base := &countingSearcher{hits: []RetrievalResult{{ID: "c1", Content: "original"}}}
	cached, err := NewCachedSearcher(base, 8)
	require.NoError(t, err)

	req := SearchRequest{CollectionID: "kb1", Query: "q"}
	first, err := cached.Search(context.Background(), req)
	require.NoError(t, err)
	first[0].Content = "poisoned"

	second, err := cached.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "original", second[0].Content)
}

func TestCachedSearcherDoesNotCacheErrors(t *testing.T) {
	base := &countingSearcher{err: context.DeadlineExceeded}
	cached, err := NewCachedSearcher(base, 8)
	require.NoError(t, err)

	req := SearchRequest{CollectionID: "kb1", Query: "q"}
	_, err = cached.Search(context.Background(), req)
	require.Error(t, err)

	base.err = nil
	_, err = cached.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, base.calls)
}

func TestPurgeDropsEntries(t *testing.T) {
	base := &countingSearcher{}
	cached, err := NewCachedSearcher(base, 8)
	require.NoError(t, err)

	req := SearchRequest{CollectionID: "kb1", Query: "q"}
	_, _ = cached.Search(context.Background(), req)
	cached.Purge()
	_, _ = cached.Search(context.Background(), req)

	require.Equal(t, 2, base.calls)
}
