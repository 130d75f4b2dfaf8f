package review_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/retriever"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/review"
)

type fakeRetriever struct {
	mu      sync.Mutex
	results map[string]*retriever.Result
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, clause *domain.ClauseRequirement) (*retriever.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[clause.ID]; ok {
		return res, nil
	}
	return &retriever.Result{}, nil
}

// passFilter retains everything and records the bypass flag per clause.
type passFilter struct {
	mu     sync.Mutex
	bypass map[string]bool
}

func (f *passFilter) Apply(_ context.Context, clause *domain.ClauseRequirement, candidates []domain.Candidate, _ map[uuid.UUID]string, bypass bool) []domain.ClassifiedCandidate {
	f.mu.Lock()
	if f.bypass == nil {
		f.bypass = make(map[string]bool)
	}
	f.bypass[clause.ID] = bypass
	f.mu.Unlock()

	out := make([]domain.ClassifiedCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = domain.ClassifiedCandidate{Candidate: c, Retained: true}
	}
	return out
}

type fakeJudge struct {
	mu     sync.Mutex
	calls  int
	status domain.VerdictStatus
}

func (f *fakeJudge) JudgeClosed(_ context.Context, req port.JudgeRequest, fallback domain.Severity) *domain.OracleVerdict {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	status := f.status
	if status == "" {
		status = domain.VerdictMatch
	}
	var anchors []domain.EvidenceAnchor
	for _, ev := range req.Evidence {
		anchors = append(anchors, ev.Anchor)
	}
	return &domain.OracleVerdict{
		ClauseID: req.ClauseID,
		Status:   status,
		Expected: req.ExpectedText,
		Actual:   req.ExpectedText,
		Evidence: anchors,
		Severity: fallback,
		// Confidence 1 keeps the threshold rule out of these tests.
		Confidence: 1,
	}
}

func (f *fakeJudge) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func passingFields() *domain.POFields {
	return &domain.POFields{
		Lines:      []domain.POLine{{Quantity: 1, UnitPrice: 100, LineTotal: 100, Currency: "EUR"}},
		GrandTotal: 100, Currency: "EUR", ContractValue: 100,
		Guarantees:   domain.Guarantees{AdvancePaymentPercent: 20, PerformancePercent: 10},
		Incoterm:     "DDP",
		LDRatePerDay: 0.25,
	}
}

func makeChildren(n int) []domain.ChildChunk {
	parent := uuid.New()
	out := make([]domain.ChildChunk, n)
	for i := range out {
		out[i] = domain.ChildChunk{
			ID: uuid.New(), ParentID: parent, Doc: "po.docx",
			Page: i + 1, Offset: i * 510, DocOffset: i * 510,
			Text: "بند شماره",
		}
	}
	return out
}

func candidatesFor(clauseID string, children []domain.ChildChunk) *retriever.Result {
	res := &retriever.Result{}
	for _, c := range children {
		res.Candidates = append(res.Candidates, domain.Candidate{
			ClauseID: clauseID, ChildID: c.ID, Score: 1, Source: domain.SourceRegex, DocOffset: c.DocOffset,
		})
	}
	return res
}

func newPipeline(t *testing.T, ret review.ClauseRetriever, filter review.CandidateFilter, judge review.Judge) *review.Pipeline {
	t.Helper()
	p, err := review.NewPipeline(ret, filter, checks.NewDefaultRegistry(), judge, reconciler.New(0.5), 4)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestRun_OneVerdictPerClauseInOrder(t *testing.T) {
	children := makeChildren(2)
	ret := &fakeRetriever{results: map[string]*retriever.Result{
		"warranty": candidatesFor("warranty", children),
		"pg":       candidatesFor("pg", children[:1]),
	}}
	judge := &fakeJudge{}
	p := newPipeline(t, ret, &passFilter{}, judge)

	out, err := p.Run(context.Background(), review.Input{
		Clauses: []domain.ClauseRequirement{
			{ID: "warranty", ExpectedText: "گارانتی ۱۲ ماه", DefaultSeverity: domain.SeverityMedium},
			{ID: "pg", ExpectedText: "ضمانت ۱۰ درصد", DefaultSeverity: domain.SeverityHigh},
		},
		Fields:   passingFields(),
		Children: children,
	})
	require.NoError(t, err)
	require.Len(t, out.Verdicts, 2)
	assert.Equal(t, "warranty", out.Verdicts[0].ClauseID)
	assert.Equal(t, "pg", out.Verdicts[1].ClauseID)
	assert.Equal(t, domain.VerdictMatch, out.Verdicts[0].Status)
	assert.NotEmpty(t, out.Verdicts[0].Evidence)
	assert.Equal(t, 2, judge.callCount())
	assert.False(t, out.Degraded)
	assert.NotEmpty(t, out.Checks)
}

func TestRun_ZeroCandidatesIsMissing(t *testing.T) {
	judge := &fakeJudge{}
	p := newPipeline(t, &fakeRetriever{}, &passFilter{}, judge)

	out, err := p.Run(context.Background(), review.Input{
		Clauses: []domain.ClauseRequirement{
			{ID: "absent", ExpectedText: "بند ناموجود", DefaultSeverity: domain.SeverityLow},
		},
		Fields: passingFields(),
	})
	require.NoError(t, err)
	require.Len(t, out.Verdicts, 1)
	assert.Equal(t, domain.VerdictMissing, out.Verdicts[0].Status)
	assert.Equal(t, domain.SeverityLow, out.Verdicts[0].Severity)
	assert.Empty(t, out.Verdicts[0].Evidence)
	assert.Zero(t, judge.callCount(), "oracle is never called without evidence")
}

func TestRun_DeterministicFailureBypassesFilterAndWins(t *testing.T) {
	children := makeChildren(1)
	ret := &fakeRetriever{results: map[string]*retriever.Result{
		"pg": candidatesFor("pg", children),
	}}
	filter := &passFilter{}
	judge := &fakeJudge{status: domain.VerdictMatch}
	p := newPipeline(t, ret, filter, judge)

	fields := passingFields()
	fields.Guarantees.PerformancePercent = 0 // fails guarantee.performance

	out, err := p.Run(context.Background(), review.Input{
		Clauses: []domain.ClauseRequirement{
			{ID: "pg", ExpectedText: "ضمانت ۱۰ درصد", RuleKeys: []string{"guarantee.performance"}, DefaultSeverity: domain.SeverityHigh},
		},
		Fields:   fields,
		Children: children,
	})
	require.NoError(t, err)
	assert.True(t, filter.bypass["pg"], "deterministic failure must bypass the classifier")
	require.Len(t, out.Verdicts, 1)
	assert.Equal(t, domain.VerdictMismatch, out.Verdicts[0].Status, "rule failure overrides the oracle match")
	assert.True(t, out.Verdicts[0].Conflict)
}

func TestRun_CanceledRunStillYieldsCompleteVerdictSet(t *testing.T) {
	children := makeChildren(1)
	ret := &fakeRetriever{results: map[string]*retriever.Result{
		"a": candidatesFor("a", children),
		"b": candidatesFor("b", children),
	}}
	judge := &fakeJudge{}
	p := newPipeline(t, ret, &passFilter{}, judge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := p.Run(ctx, review.Input{
		Clauses: []domain.ClauseRequirement{
			{ID: "a", ExpectedText: "الف"},
			{ID: "b", ExpectedText: "ب"},
		},
		Fields:   passingFields(),
		Children: children,
	})
	require.NoError(t, err)
	require.Len(t, out.Verdicts, 2)
	for _, v := range out.Verdicts {
		assert.Equal(t, domain.VerdictNeedsReview, v.Status)
		assert.NotEmpty(t, v.Evidence, "fallback anchors keep canceled verdicts auditable")
	}
	assert.Zero(t, judge.callCount(), "no oracle calls after cancellation")
}

func TestRun_InvalidLocatorFailsFast(t *testing.T) {
	judge := &fakeJudge{}
	p := newPipeline(t, &fakeRetriever{}, &passFilter{}, judge)

	_, err := p.Run(context.Background(), review.Input{
		Clauses: []domain.ClauseRequirement{
			{ID: "bad", RegexLocators: []string{"("}},
		},
		Fields: passingFields(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequirements)
	assert.Zero(t, judge.callCount())
}

func TestRun_NoClausesIsInputError(t *testing.T) {
	p := newPipeline(t, &fakeRetriever{}, &passFilter{}, &fakeJudge{})
	_, err := p.Run(context.Background(), review.Input{Fields: passingFields()})
	assert.ErrorIs(t, err, domain.ErrInvalidRequirements)
}

func TestRun_RetrievalOutageNeedsReview(t *testing.T) {
	ret := &fakeRetriever{err: domain.ErrBackendUnavailable}
	p := newPipeline(t, ret, &passFilter{}, &fakeJudge{})

	out, err := p.Run(context.Background(), review.Input{
		Clauses: []domain.ClauseRequirement{{ID: "a", ExpectedText: "الف"}},
		Fields:  passingFields(),
	})
	require.NoError(t, err)
	require.Len(t, out.Verdicts, 1)
	assert.Equal(t, domain.VerdictNeedsReview, out.Verdicts[0].Status)
	assert.Contains(t, out.Verdicts[0].Notes, "retrieval unavailable")
	assert.True(t, out.Degraded)
}

func TestRun_DegradedRetrievalPropagates(t *testing.T) {
	children := makeChildren(1)
	res := candidatesFor("a", children)
	res.Degraded = true
	ret := &fakeRetriever{results: map[string]*retriever.Result{"a": res}}
	p := newPipeline(t, ret, &passFilter{}, &fakeJudge{})

	out, err := p.Run(context.Background(), review.Input{
		Clauses:  []domain.ClauseRequirement{{ID: "a", ExpectedText: "الف"}},
		Fields:   passingFields(),
		Children: children,
	})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
}
