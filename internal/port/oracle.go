package port

import (
	"context"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// JudgeEvidence pairs one surviving candidate's text with its anchor.
type JudgeEvidence struct {
	Anchor domain.EvidenceAnchor `json:"anchor"`
	Text   string                `json:"text"`
}

// JudgeRequest packages one clause and its surviving evidence for the oracle.
// Requests are independent across clauses and safe to issue concurrently.
type JudgeRequest struct {
	ClauseID     string          `json:"clause_id"`
	ExpectedText string          `json:"expected_text"`
	Evidence     []JudgeEvidence `json:"evidence"`
}

// JudgmentOracle obtains a schema-validated structured verdict for one clause.
type JudgmentOracle interface {
	Judge(ctx context.Context, req JudgeRequest) (*domain.OracleVerdict, error)
}
