package reconciler_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
)

func clause() *domain.ClauseRequirement {
	return &domain.ClauseRequirement{
		ID:              "pg",
		ExpectedText:    "ضمانت نامه حسن انجام کار معادل ۱۰ درصد",
		RuleKeys:        []string{"guarantee.performance"},
		DefaultSeverity: domain.SeverityHigh,
	}
}

func anchor() domain.EvidenceAnchor {
	return domain.EvidenceAnchor{Doc: "po.docx", Page: 5, ChildID: uuid.New(), Offset: 40}
}

func detFailure(sev domain.Severity) domain.DeterministicResult {
	return domain.DeterministicResult{
		CheckKey: "guarantee.performance",
		Passed:   false,
		Expected: "0 < performance_percent <= 10",
		Actual:   "0.00",
		Message:  "guarantee.performance: no performance guarantee extracted",
		Severity: sev,
	}
}

func detPass() domain.DeterministicResult {
	return domain.DeterministicResult{CheckKey: "guarantee.performance", Passed: true, Severity: domain.SeverityHigh}
}

func TestReconcile_DeterministicFailureOverridesOracleMatch(t *testing.T) {
	r := reconciler.New(0.5)
	ev := anchor()
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMatch,
		Expected: "۱۰ درصد", Actual: "۱۰ درصد مبلغ سفارش",
		Evidence: []domain.EvidenceAnchor{ev},
		Severity: domain.SeverityLow, Confidence: 0.95,
	}

	final := r.Reconcile(clause(), []domain.DeterministicResult{detFailure(domain.SeverityHigh)}, oracle, nil)

	assert.Equal(t, domain.VerdictMismatch, final.Status)
	assert.True(t, final.Conflict, "oracle claimed match against a failed rule")
	assert.Equal(t, domain.SeverityHigh, final.Severity, "max of rule and oracle severity")
	assert.Contains(t, final.Notes, "guarantee.performance")
	require.Len(t, final.Evidence, 1)
	assert.Equal(t, ev, final.Evidence[0])
}

func TestReconcile_AgreementPassesOracleThrough(t *testing.T) {
	r := reconciler.New(0.5)
	ev := anchor()
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMatch,
		Expected: "۱۰ درصد", Actual: "۱۰ درصد", Fix: "",
		Evidence: []domain.EvidenceAnchor{ev},
		Severity: domain.SeverityMedium, Confidence: 0.9,
	}

	final := r.Reconcile(clause(), []domain.DeterministicResult{detPass()}, oracle, nil)

	assert.Equal(t, domain.VerdictMatch, final.Status)
	assert.False(t, final.Conflict)
	assert.Equal(t, domain.SeverityMedium, final.Severity)
	assert.Equal(t, "۱۰ درصد", final.Actual)
}

func TestReconcile_LowConfidenceWithoutRuleSignal(t *testing.T) {
	r := reconciler.New(0.5)
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMatch,
		Evidence: []domain.EvidenceAnchor{anchor()},
		Severity: domain.SeverityMedium, Confidence: 0.3,
	}

	final := r.Reconcile(clause(), []domain.DeterministicResult{detPass()}, oracle, nil)
	assert.Equal(t, domain.VerdictNeedsReview, final.Status)
}

func TestReconcile_LowConfidenceIgnoredWhenRuleFailed(t *testing.T) {
	r := reconciler.New(0.5)
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMismatch,
		Evidence: []domain.EvidenceAnchor{anchor()},
		Severity: domain.SeverityMedium, Confidence: 0.1,
	}

	final := r.Reconcile(clause(), []domain.DeterministicResult{detFailure(domain.SeverityMedium)}, oracle, nil)
	assert.Equal(t, domain.VerdictMismatch, final.Status)
	assert.False(t, final.Conflict, "oracle agreed with the rule")
}

func TestReconcile_ZeroCandidatesIsMissing(t *testing.T) {
	r := reconciler.New(0.5)

	final := r.Reconcile(clause(), []domain.DeterministicResult{detPass()}, nil, nil)

	assert.Equal(t, domain.VerdictMissing, final.Status)
	assert.Equal(t, domain.SeverityHigh, final.Severity, "clause default severity")
	assert.Empty(t, final.Evidence)
	assert.Equal(t, clause().ExpectedText, final.Expected)
}

func TestReconcile_ZeroCandidatesButRuleFailedIsMismatch(t *testing.T) {
	r := reconciler.New(0.5)

	final := r.Reconcile(clause(), []domain.DeterministicResult{detFailure(domain.SeverityHigh)}, nil, nil)

	assert.Equal(t, domain.VerdictMismatch, final.Status)
	assert.False(t, final.Conflict)
	assert.Equal(t, "0.00", final.Actual, "computed value carried for audit")
}

func TestReconcile_NoVerdictWithCandidatesNeedsReview(t *testing.T) {
	r := reconciler.New(0.5)
	fallback := []domain.EvidenceAnchor{anchor()}

	final := r.Reconcile(clause(), nil, nil, fallback)

	assert.Equal(t, domain.VerdictNeedsReview, final.Status)
	assert.Equal(t, fallback, final.Evidence, "fallback anchors keep the verdict auditable")
}

func TestReconcile_FallbackAnchorsFillEmptyEvidence(t *testing.T) {
	r := reconciler.New(0.5)
	fallback := []domain.EvidenceAnchor{anchor()}
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictNeedsReview,
		Severity: domain.SeverityMedium, Confidence: 0,
	}

	final := r.Reconcile(clause(), nil, oracle, fallback)
	assert.Equal(t, fallback, final.Evidence)
}

func TestReconcile_OracleMissingKeepsEmptyEvidence(t *testing.T) {
	r := reconciler.New(0.5)
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMissing,
		Severity: domain.SeverityMedium, Confidence: 0.9,
	}

	final := r.Reconcile(clause(), nil, oracle, []domain.EvidenceAnchor{anchor()})
	assert.Equal(t, domain.VerdictMissing, final.Status)
	assert.Empty(t, final.Evidence)
}

func TestReconcile_Idempotent(t *testing.T) {
	r := reconciler.New(0.5)
	oracle := &domain.OracleVerdict{
		ClauseID: "pg", Status: domain.VerdictMatch,
		Evidence: []domain.EvidenceAnchor{anchor()},
		Severity: domain.SeverityMedium, Confidence: 0.8,
	}
	det := []domain.DeterministicResult{detFailure(domain.SeverityMedium)}

	first := r.Reconcile(clause(), det, oracle, nil)
	second := r.Reconcile(clause(), det, oracle, nil)
	assert.Equal(t, first, second)
}
