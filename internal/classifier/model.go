// Package classifier scores candidate chunks against per-clause relevance
// models. The model is a versioned, immutable artifact of one-vs-rest
// logistic weights over chunk embeddings; scoring is a pure function and a
// model update means constructing a new handle, never mutating a shared one.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// clauseHead is the logistic head for a single clause.
type clauseHead struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Model is an immutable handle over a loaded classifier artifact.
type Model struct {
	version   string
	dimension int
	heads     map[string]clauseHead
}

// artifact is the on-disk JSON layout of the model.
type artifact struct {
	Version        string                `json:"version"`
	EmbeddingModel string                `json:"embedding_model"`
	Dimension      int                   `json:"dimension"`
	Clauses        map[string]clauseHead `json:"clauses"`
}

// Load parses and validates a model artifact.
func Load(data []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	if a.Dimension <= 0 || len(a.Clauses) == 0 {
		return nil, fmt.Errorf("%w: artifact missing dimension or clause heads", domain.ErrModelUnavailable)
	}
	for clauseID, head := range a.Clauses {
		if len(head.Weights) != a.Dimension {
			return nil, fmt.Errorf("%w: clause %s has %d weights, want %d",
				domain.ErrModelUnavailable, clauseID, len(head.Weights), a.Dimension)
		}
	}
	return &Model{version: a.Version, dimension: a.Dimension, heads: a.Clauses}, nil
}

// Version returns the artifact version string.
func (m *Model) Version() string { return m.version }

// Dimension returns the embedding dimension the model was trained on.
func (m *Model) Dimension() int { return m.dimension }

// Score returns the relevance probability of an embedding for a clause.
// The second return is false when the model has no head for the clause.
func (m *Model) Score(clauseID string, embedding []float32) (float64, bool) {
	head, ok := m.heads[clauseID]
	if !ok || len(embedding) != m.dimension {
		return 0, false
	}
	z := head.Bias
	for i, w := range head.Weights {
		z += w * float64(embedding[i])
	}
	return 1 / (1 + math.Exp(-z)), true
}
