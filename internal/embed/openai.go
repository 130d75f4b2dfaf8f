// Package embed calls an OpenAI-compatible embeddings endpoint. The pipeline
// treats embedding computation as external; this client only transports text
// and fixed-dimension vectors.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
)

// Client implements port.Embedder over an embeddings REST API.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

// NewClient creates an embeddings client from config.
func NewClient(cfg *config.EmbedderConfig) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Dimension returns the configured embedding dimension.
func (c *Client) Dimension() int { return c.dimension }

// EmbedText returns the embedding vector for one text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"input":      text,
		"dimensions": c.dimension,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("empty response from embeddings API")
	}
	if len(parsed.Data[0].Embedding) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: want %d, got %d", c.dimension, len(parsed.Data[0].Embedding))
	}
	return parsed.Data[0].Embedding, nil
}
