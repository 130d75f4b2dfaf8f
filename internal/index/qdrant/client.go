// Package qdrant is a minimal REST client for the vector side of the hybrid
// index: cosine-similarity search over fixed-dimension parent embeddings.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

// Client implements port.VectorStore against a Qdrant instance.
type Client struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewClient creates a Qdrant vector store client.
func NewClient(cfg *config.IndexConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.QdrantURL,
		collection: cfg.QdrantCollection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist. Qdrant returns 409 for an existing collection, which is not an error.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	body, err := json.Marshal(map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling collection config: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant create collection: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant create collection error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Upsert stores a parent chunk embedding, idempotent by chunk id.
func (c *Client) Upsert(ctx context.Context, chunk domain.ParentChunk, embedding []float32) error {
	body, err := json.Marshal(map[string]interface{}{
		"points": []map[string]interface{}{
			{
				"id":     chunk.ID.String(),
				"vector": embedding,
				"payload": map[string]interface{}{
					"doc":       chunk.Doc,
					"page":      chunk.PageStart,
					"parent_id": chunk.ID.String(),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling points: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant upsert error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Query returns the k nearest parent chunks by cosine similarity.
func (c *Client) Query(ctx context.Context, embedding []float32, k int) ([]port.QueryHit, error) {
	body, err := json.Marshal(map[string]interface{}{
		"vector": embedding,
		"limit":  k,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant query: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant query error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Result []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling search response: %w", err)
	}

	hits := make([]port.QueryHit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		hits = append(hits, port.QueryHit{ParentID: id, Score: r.Score})
	}
	return hits, nil
}
