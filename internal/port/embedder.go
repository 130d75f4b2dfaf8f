package port

import "context"

// Embedder computes fixed-dimension text embeddings via an external service.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
