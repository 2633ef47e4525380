package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doAIs/AgonX/internal/api"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
)

func newTestKnowledgeClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	transport := api.NewClient(api.Options{BaseURL: server.URL, HTTPClient: server.Client()})
	return NewClient(transport)
}

func TestSearchPreservesServerRanking(t *testing.T) {
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/knowledge/search", r.URL.Path)
		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "kb1", req.CollectionID)
		require.Equal(t, "refunds", req.Query)
		_, _ = w.Write([]byte(`{"code":200,"data":[
			{"id":"c1","content":"best","score":0.93,"source":"a.pdf"},
			{"id":"c2","content":"good","score":0.71,"source":"b.pdf"},
			{"id":"c3","content":"weak","score":0.40,"source":"c.pdf"}
		]}`))
	})

	hits, err := client.Search(context.Background(), SearchRequest{CollectionID: "kb1", Query: "refunds"})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, "best", hits[0].Content)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	require.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestSearchEmptyResultIsNotAnError(t *testing.T) {
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":[]}`))
	})

	hits, err := client.Search(context.Background(), SearchRequest{CollectionID: "kb1", Query: "nothing matches"})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearchValidatesLocally(t *testing.T) {
	client := NewClient(api.NewClient(api.Options{BaseURL: "http://unused.test"}))

	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	var validation *agonerrors.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = client.Search(context.Background(), SearchRequest{CollectionID: "kb1"})
	require.ErrorAs(t, err, &validation)
}

func TestEnhancedSearchDecodesContext(t *testing.T) {
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/knowledge/search/enhanced", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":200,"data":[{
			"id":"c1","content":"hit","score":0.9,"source":"doc.pdf",
			"context":{"before":["prior chunk"],"after":["next chunk"]},
			"page_info":{"page_number":3,"total_pages":10},
			"document":{"id":"d1","filename":"doc.pdf"}
		}]}`))
	})

	hits, err := client.EnhancedSearch(context.Background(), SearchRequest{CollectionID: "kb1", Query: "q"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, []string{"prior chunk"}, hits[0].Context.Before)
	require.Equal(t, 3, hits[0].PageInfo.PageNumber)
	require.Equal(t, "doc.pdf", hits[0].Document.Filename)
}

func TestUpdateConfigSendsOnlyChangedFields(t *testing.T) {
	topK := 10
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/knowledge/collections/kb1/config", r.URL.Path)
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		require.Contains(t, raw, "top_k")
		require.NotContains(t, raw, "similarity_threshold")
		_, _ = w.Write([]byte(`{"code":200,"data":{"top_k":10,"similarity_threshold":0.5}}`))
	})

	merged, err := client.UpdateConfig(context.Background(), "kb1", ConfigPatch{TopK: &topK})
	require.NoError(t, err)
	require.Equal(t, 10, merged.TopK)
	// Unpatched fields come back with the server's authoritative values.
	require.Equal(t, 0.5, merged.SimilarityThreshold)
}

func TestListCollections(t *testing.T) {
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/knowledge/collections", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":200,"data":[{"id":"kb1","name":"docs","document_count":12}]}`))
	})

	collections, err := client.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 1)
	require.Equal(t, "docs", collections[0].Name)
	require.Equal(t, 12, collections[0].DocumentCount)
}

func TestListDocumentsPaging(t *testing.T) {
	client := newTestKnowledgeClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/knowledge/collections/kb1/documents", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "5", r.URL.Query().Get("page_size"))
		_, _ = w.Write([]byte(`{"code":200,"data":{"items":[{"id":"d1","filename":"a.pdf"}],"total":6,"page":2,"page_size":5}}`))
	})

	page, err := client.ListDocuments(context.Background(), "kb1", 2, 5)
	require.NoError(t, err)
	require.Equal(t, 6, page.Total)
	require.Equal(t, "a.pdf", page.Items[0].Filename)
}
