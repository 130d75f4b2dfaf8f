// Package opensearch is a minimal REST client for the keyword side of the
// hybrid index. It speaks to the OpenSearch document and search APIs directly.
package opensearch

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

// Client implements port.KeywordStore against an OpenSearch node.
type Client struct {
	baseURL string
	index   string
	client  *http.Client
}

// NewClient creates an OpenSearch keyword store client.
func NewClient(cfg *config.IndexConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.OpenSearchURL,
		index:   cfg.OpenSearchIndex,
		client:  &http.Client{Timeout: timeout},
	}
}

// Upsert indexes a parent chunk, idempotent by chunk id.
func (c *Client) Upsert(ctx context.Context, chunk domain.ParentChunk) error {
	doc := map[string]interface{}{
		"text":      chunk.Text,
		"doc":       chunk.Doc,
		"page":      chunk.PageStart,
		"parent_id": chunk.ID.String(),
		"type":      "parent",
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_doc/%s", c.baseURL, c.index, chunk.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: opensearch upsert: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("opensearch upsert error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Query runs a full-text match against indexed parent chunks.
func (c *Client) Query(ctx context.Context, text string, k int) ([]port.QueryHit, error) {
	query := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"text": map[string]interface{}{"query": text},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: opensearch query: %v", domain.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opensearch query error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling search response: %w", err)
	}

	hits := make([]port.QueryHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue // foreign document in the index
		}
		hits = append(hits, port.QueryHit{ParentID: id, Score: h.Score})
	}
	return hits, nil
}
