package review

import (
	"context"
	"fmt"
	"log"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/chunker"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/normalize"
)

// Indexer is the hybrid index surface ingestion needs.
type Indexer interface {
	Upsert(ctx context.Context, chunk domain.ParentChunk) (degraded bool, err error)
}

// Chunks is the segmented form of one document set, ready for retrieval.
type Chunks struct {
	Parents  []domain.ParentChunk
	Children []domain.ChildChunk
	Degraded bool
}

// BuildAndIndex normalizes raw elements, segments them into parent and child
// chunks, and indexes the parents. One failing backend degrades the run; both
// failing aborts it, since no retrieval at all would be possible.
func BuildAndIndex(ctx context.Context, idx Indexer, elements []domain.Element) (*Chunks, error) {
	normalized, err := normalize.Elements(elements)
	if err != nil {
		return nil, err
	}

	parents, children := chunker.Build(normalized)
	if len(parents) == 0 {
		return nil, fmt.Errorf("%w: no text to segment", domain.ErrInvalidElements)
	}

	out := &Chunks{Parents: parents, Children: children}
	for i := range parents {
		degraded, err := idx.Upsert(ctx, parents[i])
		if err != nil {
			return nil, fmt.Errorf("indexing parent %s: %w", parents[i].ID, err)
		}
		if degraded {
			out.Degraded = true
		}
	}
	if out.Degraded {
		log.Printf("review: indexed %d parents in degraded mode", len(parents))
	}
	return out, nil
}
