// Package index wraps the keyword and vector stores behind one upsert/query
// surface. When one backend is unreachable the adapter degrades to the other
// and reports it; only the loss of both fails a query.
package index

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

// Hit is one merged query result with per-store scores.
type Hit struct {
	ParentID     uuid.UUID
	KeywordScore float64
	VectorScore  float64
}

// Result carries merged hits plus the degraded-mode flag for the query.
type Result struct {
	Hits     []Hit
	Degraded bool
}

// Hybrid is the hybrid index adapter over a keyword store and a vector store.
type Hybrid struct {
	keyword  port.KeywordStore
	vector   port.VectorStore
	embedder port.Embedder
}

// NewHybrid creates a hybrid index adapter.
func NewHybrid(keyword port.KeywordStore, vector port.VectorStore, embedder port.Embedder) *Hybrid {
	return &Hybrid{keyword: keyword, vector: vector, embedder: embedder}
}

// Upsert indexes a parent chunk into both stores, idempotent by chunk id.
// A single backend failure degrades the upsert instead of failing it; both
// failing is an error.
func (h *Hybrid) Upsert(ctx context.Context, chunk domain.ParentChunk) (degraded bool, err error) {
	kwErr := h.keyword.Upsert(ctx, chunk)
	if kwErr != nil {
		log.Printf("index.Hybrid: keyword upsert failed for %s: %v", chunk.ID, kwErr)
	}

	var vecErr error
	embedding, vecErr := h.embedder.EmbedText(ctx, chunk.Text)
	if vecErr == nil {
		vecErr = h.vector.Upsert(ctx, chunk, embedding)
	}
	if vecErr != nil {
		log.Printf("index.Hybrid: vector upsert failed for %s: %v", chunk.ID, vecErr)
	}

	if kwErr != nil && vecErr != nil {
		return true, domain.ErrBackendUnavailable
	}
	return kwErr != nil || vecErr != nil, nil
}

// Query runs the text against both stores and merges ranked parent ids,
// keeping the max per-store score for each parent. Results are ordered by
// the higher of the two scores.
func (h *Hybrid) Query(ctx context.Context, text string, k int) (*Result, error) {
	merged := make(map[uuid.UUID]*Hit)

	kwHits, kwErr := h.keyword.Query(ctx, text, k)
	if kwErr != nil {
		log.Printf("index.Hybrid: keyword query failed, degrading to vector only: %v", kwErr)
	}
	for _, qh := range kwHits {
		hit := ensureHit(merged, qh.ParentID)
		if qh.Score > hit.KeywordScore {
			hit.KeywordScore = qh.Score
		}
	}

	var vecErr error
	embedding, vecErr := h.embedder.EmbedText(ctx, text)
	var vecHits []port.QueryHit
	if vecErr == nil {
		vecHits, vecErr = h.vector.Query(ctx, embedding, k)
	}
	if vecErr != nil {
		log.Printf("index.Hybrid: vector query failed, degrading to keyword only: %v", vecErr)
	}
	for _, qh := range vecHits {
		hit := ensureHit(merged, qh.ParentID)
		if qh.Score > hit.VectorScore {
			hit.VectorScore = qh.Score
		}
	}

	if kwErr != nil && vecErr != nil {
		return nil, domain.ErrBackendUnavailable
	}

	hits := make([]Hit, 0, len(merged))
	for _, hit := range merged {
		hits = append(hits, *hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		si, sj := maxScore(hits[i]), maxScore(hits[j])
		if si != sj {
			return si > sj
		}
		return hits[i].ParentID.String() < hits[j].ParentID.String()
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	return &Result{Hits: hits, Degraded: kwErr != nil || vecErr != nil}, nil
}

func ensureHit(m map[uuid.UUID]*Hit, id uuid.UUID) *Hit {
	if h, ok := m[id]; ok {
		return h
	}
	h := &Hit{ParentID: id}
	m[id] = h
	return h
}

func maxScore(h Hit) float64 {
	if h.VectorScore > h.KeywordScore {
		return h.VectorScore
	}
	return h.KeywordScore
}
