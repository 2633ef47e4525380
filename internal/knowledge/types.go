// Package knowledge implements the retrieval client: plain and enhanced
// search against named collections, per-collection retrieval config, and
// the collection/document management calls surrounding them.
package knowledge

import (
	"encoding/json"
	"time"
)

// Search modes accepted by the server.
const (
	SearchModeVector  = "vector"
	SearchModeKeyword = "keyword"
	SearchModeHybrid  = "hybrid"
)

// Collection is a named knowledge base.
type Collection struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Document is one ingested file within a collection.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchRequest describes one retrieval query. Optional fields are omitted
// from the wire when unset; the server falls back to the collection config.
type SearchRequest struct {
	CollectionID        string  `json:"collection_id"`
	Query               string  `json:"query"`
	TopK                int     `json:"top_k,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	SearchMode          string  `json:"search_mode,omitempty"`
}

// RetrievalResult is one ranked hit. Results arrive ordered by descending
// score and the client preserves that order.
type RetrievalResult struct {
	ID       string          `json:"id"`
	Content  string          `json:"content"`
	Score    float64         `json:"score"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Source   string          `json:"source"`
}

// ChunkContext carries the chunks surrounding a hit in document order.
type ChunkContext struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// PageInfo locates a hit on its source page for preview rendering.
type PageInfo struct {
	PageNumber int     `json:"page_number"`
	PageImage  string  `json:"page_image,omitempty"`
	X0         float64 `json:"x0,omitempty"`
	Y0         float64 `json:"y0,omitempty"`
	X1         float64 `json:"x1,omitempty"`
	Y1         float64 `json:"y1,omitempty"`
}

// RelatedImage is an image extracted near a hit.
type RelatedImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// DocumentRef is the provenance of a hit.
type DocumentRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// EnhancedRetrievalResult is a RetrievalResult plus neighboring-chunk
// context, page-level location, and document provenance for UI preview.
type EnhancedRetrievalResult struct {
	RetrievalResult
	Context       ChunkContext   `json:"context"`
	PageInfo      *PageInfo      `json:"page_info,omitempty"`
	RelatedImages []RelatedImage `json:"related_images"`
	Document      *DocumentRef   `json:"document,omitempty"`
}

// RetrievalConfig is the per-collection retrieval tuning. top_n <= top_k is
// expected but the server is the authority; the client does not enforce it.
type RetrievalConfig struct {
	ChunkSize           int     `json:"chunk_size"`
	ChunkOverlap        int     `json:"chunk_overlap"`
	TopK                int     `json:"top_k"`
	TopN                int     `json:"top_n"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	SearchMode          string  `json:"search_mode"`
	RerankEnabled       bool    `json:"rerank_enabled"`
}

// ConfigPatch is a partial RetrievalConfig update. Nil fields are left
// untouched; the server returns the authoritative merged config and the
// client never guesses the merge locally.
type ConfigPatch struct {
	ChunkSize           *int     `json:"chunk_size,omitempty"`
	ChunkOverlap        *int     `json:"chunk_overlap,omitempty"`
	TopK                *int     `json:"top_k,omitempty"`
	TopN                *int     `json:"top_n,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	SearchMode          *string  `json:"search_mode,omitempty"`
	RerankEnabled       *bool    `json:"rerank_enabled,omitempty"`
}
