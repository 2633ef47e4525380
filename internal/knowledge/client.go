package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/doAIs/AgonX/internal/api"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
)

// Searcher is the minimal retrieval surface consumed by the orchestrator's
// augmented-send path.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]RetrievalResult, error)
}

// Client issues retrieval and collection-management requests. It is
// stateless and independent of chat state; concurrent requests are allowed.
type Client struct {
	api *api.Client
}

// NewClient builds a retrieval client over the given transport.
func NewClient(transport *api.Client) *Client {
	return &Client{api: transport}
}

var _ Searcher = (*Client)(nil)

// Search runs a plain retrieval query. An empty result list means no
// matches and is not an error.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]RetrievalResult, error) {
	if req.CollectionID == "" {
		return nil, &agonerrors.ValidationError{Detail: "collection_id is required"}
	}
	if req.Query == "" {
		return nil, &agonerrors.ValidationError{Detail: "query is required"}
	}
	results, err := api.Post[[]RetrievalResult](ctx, c.api, "/knowledge/search", req)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", req.CollectionID, err)
	}
	return results, nil
}

// EnhancedSearch runs a retrieval query that additionally returns
// neighboring-chunk context, page imagery, and document provenance. The
// ranking contract matches Search.
func (c *Client) EnhancedSearch(ctx context.Context, req SearchRequest) ([]EnhancedRetrievalResult, error) {
	if req.CollectionID == "" {
		return nil, &agonerrors.ValidationError{Detail: "collection_id is required"}
	}
	if req.Query == "" {
		return nil, &agonerrors.ValidationError{Detail: "query is required"}
	}
	results, err := api.Post[[]EnhancedRetrievalResult](ctx, c.api, "/knowledge/search/enhanced", req)
	if err != nil {
		return nil, fmt.Errorf("enhanced search collection %s: %w", req.CollectionID, err)
	}
	return results, nil
}

// GetConfig reads the retrieval config for a collection.
func (c *Client) GetConfig(ctx context.Context, collectionID string) (RetrievalConfig, error) {
	return api.Get[RetrievalConfig](ctx, c.api, "/knowledge/collections/"+collectionID+"/config", nil)
}

// UpdateConfig applies a partial patch. The returned config is the server's
// authoritative merge.
func (c *Client) UpdateConfig(ctx context.Context, collectionID string, patch ConfigPatch) (RetrievalConfig, error) {
	return api.Put[RetrievalConfig](ctx, c.api, "/knowledge/collections/"+collectionID+"/config", patch)
}

// ListCollections returns all knowledge bases visible to the caller.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	return api.Get[[]Collection](ctx, c.api, "/knowledge/collections", nil)
}

// CreateCollection creates a named knowledge base.
func (c *Client) CreateCollection(ctx context.Context, name, description string) (Collection, error) {
	return api.Post[Collection](ctx, c.api, "/knowledge/collections", map[string]string{
		"name":        name,
		"description": description,
	})
}

// DeleteCollection removes a knowledge base and its documents.
func (c *Client) DeleteCollection(ctx context.Context, collectionID string) error {
	return api.Delete(ctx, c.api, "/knowledge/collections/"+collectionID)
}

// ListDocuments returns one page of a collection's documents.
func (c *Client) ListDocuments(ctx context.Context, collectionID string, page, pageSize int) (api.Page[Document], error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	return api.Get[api.Page[Document]](ctx, c.api, "/knowledge/collections/"+collectionID+"/documents", query)
}

// DeleteDocument removes a single document.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	return api.Delete(ctx, c.api, "/knowledge/documents/"+documentID)
}
