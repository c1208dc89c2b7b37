// Package vector is the HTTP adapter for the vector index service
// (Pinecone-style API). It backs both similarity lookups for the decision
// engine and duplicate detection for the document pipeline.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"kycgate/internal/document"
	"kycgate/internal/platform/config"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

const (
	// duplicateCandidates is how many neighbors are pulled before the
	// similarity threshold is applied client side.
	duplicateCandidates = 10

	maxResponseBytes = 4 << 20
)

// Client calls the vector index over HTTP. It implements the engine's
// NeighborSearch port and the document pipeline's VectorIndex.
type Client struct {
	baseURL   string
	apiKey    string
	namespace string
	http      *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. For tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New constructs a vector index client from configuration.
func New(cfg config.VectorIndexConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vector index base URL is required")
	}
	c := &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type vectorRecord struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []vectorRecord `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

// Upsert stores a processed document's embedding with filterable metadata.
func (c *Client) Upsert(ctx context.Context, documentID id.DocumentID, embedding []float32, meta document.VectorMetadata) error {
	req := upsertRequest{
		Vectors: []vectorRecord{{
			ID:     documentID.String(),
			Values: embedding,
			Metadata: map[string]string{
				"document_type": string(meta.DocumentType),
				"user_id":       meta.OwnerID.String(),
				"status":        string(meta.Status),
				"created_at":    meta.CreatedAt,
			},
		}},
		Namespace: c.namespace,
	}
	return c.post(ctx, "/vectors/upsert", req, &struct{}{})
}

type queryRequest struct {
	Vector          []float32         `json:"vector"`
	TopK            int               `json:"topK"`
	IncludeMetadata bool              `json:"includeMetadata"`
	Filter          map[string]string `json:"filter,omitempty"`
	Namespace       string            `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// FindNeighbors returns the k nearest previously processed documents of the
// given type. An empty index yields an empty slice.
func (c *Client) FindNeighbors(ctx context.Context, embedding []float32, docType id.DocumentType, k int) ([]id.Neighbor, error) {
	return c.query(ctx, embedding, k, map[string]string{
		"document_type": string(docType),
	}, 0)
}

// FindDuplicates returns the uploader's prior submissions scoring at or
// above the threshold.
func (c *Client) FindDuplicates(ctx context.Context, embedding []float32, ownerID id.UserID, threshold float64) ([]id.Neighbor, error) {
	return c.query(ctx, embedding, duplicateCandidates, map[string]string{
		"user_id": ownerID.String(),
	}, threshold)
}

func (c *Client) query(ctx context.Context, embedding []float32, k int, filter map[string]string, threshold float64) ([]id.Neighbor, error) {
	req := queryRequest{
		Vector:          embedding,
		TopK:            k,
		IncludeMetadata: true,
		Filter:          filter,
		Namespace:       c.namespace,
	}

	var resp queryResponse
	if err := c.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	neighbors := make([]id.Neighbor, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match.Score < threshold {
			continue
		}
		docID, err := id.ParseDocumentID(match.ID)
		if err != nil {
			// Foreign vectors in a shared index are skipped, not fatal.
			continue
		}
		neighbors = append(neighbors, id.Neighbor{
			DocumentID:   docID,
			Score:        match.Score,
			DocumentType: id.DocumentType(match.Metadata["document_type"]),
			Verdict:      id.Verdict(match.Metadata["verdict"]),
		})
	}
	return neighbors, nil
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

// Delete removes a document's vector, for retention cleanup.
func (c *Client) Delete(ctx context.Context, documentID id.DocumentID) error {
	req := deleteRequest{IDs: []string{documentID.String()}, Namespace: c.namespace}
	return c.post(ctx, "/vectors/delete", req, &struct{}{})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call vector index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector index returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
