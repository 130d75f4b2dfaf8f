// Package reconciler merges deterministic check results with the oracle's
// judgment into the single terminal FinalVerdict per clause. Downstream
// consumers read only FinalVerdict; no other component's intermediate state
// leaves the pipeline.
package reconciler

import (
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// Reconciler applies the merge rules. A deterministic failure always wins
// over the oracle: rules compute, the model guesses.
type Reconciler struct {
	confidenceThreshold float64
}

// New creates a Reconciler. threshold 0 falls back to 0.5.
func New(confidenceThreshold float64) *Reconciler {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &Reconciler{confidenceThreshold: confidenceThreshold}
}

// Reconcile produces the terminal verdict for one clause.
//
// fallbackAnchors are the retained candidates' anchors; they stand in when a
// non-missing verdict would otherwise carry no evidence. A nil oracle verdict
// together with no anchors means retrieval found nothing: the clause is
// missing with its configured default severity.
func (r *Reconciler) Reconcile(
	clause *domain.ClauseRequirement,
	det []domain.DeterministicResult,
	oracle *domain.OracleVerdict,
	fallbackAnchors []domain.EvidenceAnchor,
) domain.FinalVerdict {
	defaultSeverity := clause.DefaultSeverity
	if defaultSeverity == "" {
		defaultSeverity = domain.SeverityMedium
	}

	failed := failedResults(det)

	if oracle == nil && len(fallbackAnchors) == 0 && len(failed) == 0 {
		return domain.FinalVerdict{
			ClauseID: clause.ID,
			Status:   domain.VerdictMissing,
			Severity: defaultSeverity,
			Expected: clause.ExpectedText,
		}
	}

	final := domain.FinalVerdict{
		ClauseID: clause.ID,
		Expected: clause.ExpectedText,
		Severity: defaultSeverity,
	}
	if oracle != nil {
		final.Status = oracle.Status
		final.Severity = oracle.Severity
		final.Expected = oracle.Expected
		final.Actual = oracle.Actual
		final.Fix = oracle.Fix
		final.Evidence = oracle.Evidence

		if oracle.Confidence < r.confidenceThreshold && len(failed) == 0 {
			final.Status = domain.VerdictNeedsReview
		}
	} else {
		// Candidates or rule failures exist but no judgment was produced.
		final.Status = domain.VerdictNeedsReview
	}

	if len(failed) > 0 {
		final.Conflict = oracle != nil && oracle.Status == domain.VerdictMatch
		final.Status = domain.VerdictMismatch
		final.Severity = failureSeverity(failed)
		if oracle != nil {
			final.Severity = domain.MaxSeverity(final.Severity, oracle.Severity)
		}
		final.Notes = joinMessages(failed)
		if final.Actual == "" {
			final.Actual = failed[0].Actual
		}
	}

	if final.Status != domain.VerdictMissing && len(final.Evidence) == 0 {
		final.Evidence = fallbackAnchors
	}
	return final
}

func failedResults(det []domain.DeterministicResult) []domain.DeterministicResult {
	var out []domain.DeterministicResult
	for _, res := range det {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

func failureSeverity(failed []domain.DeterministicResult) domain.Severity {
	sev := failed[0].Severity
	for _, res := range failed[1:] {
		sev = domain.MaxSeverity(sev, res.Severity)
	}
	return sev
}

func joinMessages(failed []domain.DeterministicResult) string {
	msgs := make([]string, 0, len(failed))
	for _, res := range failed {
		msgs = append(msgs, res.Message)
	}
	return strings.Join(msgs, "; ")
}
