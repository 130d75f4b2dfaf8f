package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/classifier"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
)

type memRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.ReviewRun
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: make(map[uuid.UUID]*domain.ReviewRun)}
}

func (r *memRunRepo) Create(_ context.Context, run *domain.ReviewRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRunRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.RunStatus, degraded bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.Status = status
	run.Degraded = run.Degraded || degraded
	return nil
}

func (r *memRunRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ReviewRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *memRunRepo) status(id uuid.UUID) domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		return run.Status
	}
	return ""
}

type memVerdictRepo struct {
	mu    sync.Mutex
	byRun map[uuid.UUID][]domain.FinalVerdict
}

func newMemVerdictRepo() *memVerdictRepo {
	return &memVerdictRepo{byRun: make(map[uuid.UUID][]domain.FinalVerdict)}
}

func (r *memVerdictRepo) InsertBatch(_ context.Context, runID uuid.UUID, verdicts []domain.FinalVerdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRun[runID] = append([]domain.FinalVerdict(nil), verdicts...)
	return nil
}

func (r *memVerdictRepo) ListByRun(_ context.Context, runID uuid.UUID) ([]domain.FinalVerdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FinalVerdict(nil), r.byRun[runID]...), nil
}

type fakeHybrid struct {
	mu         sync.Mutex
	upserts    int
	failUpsert bool
}

func (h *fakeHybrid) Upsert(_ context.Context, _ domain.ParentChunk) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failUpsert {
		return false, fmt.Errorf("%w: both backends down", domain.ErrBackendUnavailable)
	}
	h.upserts++
	return false, nil
}

func (h *fakeHybrid) Query(_ context.Context, _ string, _ int) (*index.Result, error) {
	return &index.Result{}, nil
}

type matchJudge struct {
	mu    sync.Mutex
	calls int
}

func (j *matchJudge) JudgeClosed(_ context.Context, req port.JudgeRequest, _ domain.Severity) *domain.OracleVerdict {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	v := &domain.OracleVerdict{
		ClauseID:   req.ClauseID,
		Status:     domain.VerdictMatch,
		Expected:   req.ExpectedText,
		Actual:     req.ExpectedText,
		Severity:   domain.SeverityMedium,
		Confidence: 1,
	}
	for _, ev := range req.Evidence {
		v.Evidence = append(v.Evidence, ev.Anchor)
	}
	return v
}

type memArchiver struct {
	mu   sync.Mutex
	keys []string
}

func (a *memArchiver) Put(_ context.Context, key, _ string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(data) == 0 {
		return errors.New("empty archive")
	}
	a.keys = append(a.keys, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Retriever: config.RetrieverConfig{TopN: 50, K: 10},
		Review:    config.ReviewConfig{Concurrency: 2},
	}
}

func testJob() SubmitInput {
	text := strings.Repeat("گارانتی تجهیزات دوازده ماه از تاریخ راه‌اندازی است. ", 40)
	return SubmitInput{
		TemplateID: "irr_main",
		Toggles:    domain.Toggles{APGRequired: true},
		Elements: []domain.Element{
			{Doc: "po", Page: 1, ElementID: "e1", Type: "NarrativeText", Text: text},
		},
		Clauses: []domain.ClauseRequirement{
			{
				ID:            "warranty",
				TemplateID:    "irr_main",
				Title:         "Warranty",
				ExpectedText:  "گارانتی دوازده ماه",
				RegexLocators: []string{"گارانتی"},
			},
		},
		Fields: domain.POFields{
			Lines:      []domain.POLine{{Description: "pump", Quantity: 2, UnitPrice: 100, LineTotal: 200, Currency: "EUR"}},
			GrandTotal: 200,
			Currency:   "EUR",
			Guarantees: domain.Guarantees{PerformancePercent: 10, AdvancePaymentPercent: 10},
		},
	}
}

func newTestService(hybrid *fakeHybrid, judge *matchJudge, runs *memRunRepo, verdicts *memVerdictRepo, archiver Archiver) *ReviewService {
	filter := classifier.NewFilter(nil, nil, 0, 0)
	return NewReviewService(
		testConfig(), hybrid, filter, checks.NewDefaultRegistry(),
		judge, reconciler.New(0.5), runs, verdicts, archiver,
	)
}

func TestRunSyncProducesVerdictPerClause(t *testing.T) {
	hybrid := &fakeHybrid{}
	judge := &matchJudge{}
	svc := newTestService(hybrid, judge, newMemRunRepo(), newMemVerdictRepo(), nil)

	out, degraded, err := svc.RunSync(context.Background(), testJob())
	require.NoError(t, err)

	require.Len(t, out.Verdicts, 1)
	assert.Equal(t, "warranty", out.Verdicts[0].ClauseID)
	assert.Equal(t, domain.VerdictMatch, out.Verdicts[0].Status)
	assert.NotEmpty(t, out.Verdicts[0].Evidence)
	assert.False(t, degraded)
	assert.Positive(t, hybrid.upserts)
	assert.Equal(t, 1, judge.calls)
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	runs := newMemRunRepo()
	svc := newTestService(&fakeHybrid{}, &matchJudge{}, runs, newMemVerdictRepo(), nil)

	job := testJob()
	job.Elements = nil
	_, err := svc.Submit(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrInvalidElements)

	job = testJob()
	job.Clauses = nil
	_, err = svc.Submit(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrInvalidRequirements)

	assert.Empty(t, runs.runs)
}

func TestSubmitRunsToCompletion(t *testing.T) {
	runs := newMemRunRepo()
	verdicts := newMemVerdictRepo()
	archiver := &memArchiver{}
	svc := newTestService(&fakeHybrid{}, &matchJudge{}, runs, verdicts, archiver)

	run, err := svc.Submit(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusReceived, run.Status)
	assert.Equal(t, 1, run.ClauseCount)

	require.Eventually(t, func() bool {
		return runs.status(run.ID) == domain.RunStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := svc.ListVerdicts(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.VerdictMatch, stored[0].Status)

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	require.Len(t, archiver.keys, 1)
	assert.Equal(t, fmt.Sprintf("runs/%s/issues.csv", run.ID), archiver.keys[0])
}

func TestSubmitRecordsFailure(t *testing.T) {
	runs := newMemRunRepo()
	verdicts := newMemVerdictRepo()
	svc := newTestService(&fakeHybrid{failUpsert: true}, &matchJudge{}, runs, verdicts, nil)

	run, err := svc.Submit(context.Background(), testJob())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return runs.status(run.ID) == domain.RunStatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := svc.ListVerdicts(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestListVerdictsUnknownRun(t *testing.T) {
	svc := newTestService(&fakeHybrid{}, &matchJudge{}, newMemRunRepo(), newMemVerdictRepo(), nil)

	_, err := svc.ListVerdicts(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
