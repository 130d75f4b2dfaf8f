package classifier

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

// Filter prunes low-relevance candidates with the pre-trained per-clause
// model. Dropping a truly relevant chunk costs more than keeping a noisy one,
// so every fallback in here fails open: a missing model, a clause without a
// head, or a failed embedding all keep candidates instead of dropping them.
type Filter struct {
	model         *Model // nil means pass-through
	embedder      port.Embedder
	thresholdHigh float64
	thresholdLow  float64
}

// NewFilter creates a Filter. A nil model is allowed and makes the filter a
// pass-through (the ClassificationUnavailable policy).
func NewFilter(model *Model, embedder port.Embedder, thresholdHigh, thresholdLow float64) *Filter {
	if thresholdHigh == 0 {
		thresholdHigh = 0.55
	}
	if thresholdLow == 0 {
		thresholdLow = 0.45
	}
	return &Filter{
		model:         model,
		embedder:      embedder,
		thresholdHigh: thresholdHigh,
		thresholdLow:  thresholdLow,
	}
}

// Apply classifies a clause's candidates. chunkText resolves a child id to
// its text. When bypass is set (the clause has a deterministic failure) no
// scoring happens and every candidate is forwarded to the oracle.
func (f *Filter) Apply(
	ctx context.Context,
	clause *domain.ClauseRequirement,
	candidates []domain.Candidate,
	chunkText map[uuid.UUID]string,
	bypass bool,
) []domain.ClassifiedCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if bypass || f.model == nil {
		return retainAll(candidates)
	}

	scored := make([]domain.ClassifiedCandidate, 0, len(candidates))
	for _, c := range candidates {
		cc := domain.ClassifiedCandidate{Candidate: c}
		text, ok := chunkText[c.ChildID]
		if !ok {
			cc.Retained = true // no text to score, keep
			scored = append(scored, cc)
			continue
		}
		embedding, err := f.embedder.EmbedText(ctx, text)
		if err != nil {
			log.Printf("classifier.Filter: embedding failed for chunk %s, keeping candidate: %v", c.ChildID, err)
			cc.Retained = true
			scored = append(scored, cc)
			continue
		}
		prob, ok := f.model.Score(clause.ID, embedding)
		if !ok {
			// No head for this clause in the artifact
			cc.Retained = true
			scored = append(scored, cc)
			continue
		}
		cc.Probability = prob
		scored = append(scored, cc)
	}

	applyThresholds(scored, f.thresholdHigh, f.thresholdLow)
	return scored
}

// applyThresholds retains candidates at the high threshold, falls back to the
// low threshold, and as a last resort keeps the single most probable
// candidate so a clause with retrieval evidence never reaches the oracle
// empty-handed.
func applyThresholds(scored []domain.ClassifiedCandidate, high, low float64) {
	retainAt := func(threshold float64) int {
		n := 0
		for i := range scored {
			if scored[i].Retained || scored[i].Probability >= threshold {
				scored[i].Retained = true
				n++
			}
		}
		return n
	}

	if retainAt(high) > 0 {
		return
	}
	if retainAt(low) > 0 {
		return
	}

	best := 0
	for i := range scored {
		if scored[i].Probability > scored[best].Probability {
			best = i
		}
	}
	scored[best].Retained = true
}

func retainAll(candidates []domain.Candidate) []domain.ClassifiedCandidate {
	out := make([]domain.ClassifiedCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = domain.ClassifiedCandidate{Candidate: c, Retained: true}
	}
	return out
}

// Retained returns only the retained candidates, ordered by probability then
// document offset.
func Retained(classified []domain.ClassifiedCandidate) []domain.ClassifiedCandidate {
	out := make([]domain.ClassifiedCandidate, 0, len(classified))
	for _, c := range classified {
		if c.Retained {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].DocOffset < out[j].DocOffset
	})
	return out
}
