package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// QueryHit is one ranked parent id returned by an index backend.
type QueryHit struct {
	ParentID uuid.UUID
	Score    float64
}

// KeywordStore is a language-aware lexical index over parent chunks.
type KeywordStore interface {
	Upsert(ctx context.Context, chunk domain.ParentChunk) error
	Query(ctx context.Context, text string, k int) ([]QueryHit, error)
}

// VectorStore is a cosine-similarity index over fixed-dimension embeddings
// of parent chunks. Embedding computation is external.
type VectorStore interface {
	Upsert(ctx context.Context, chunk domain.ParentChunk, embedding []float32) error
	Query(ctx context.Context, embedding []float32, k int) ([]QueryHit, error)
}
