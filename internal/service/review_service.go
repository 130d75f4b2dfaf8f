package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/classifier"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/export"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/retriever"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/review"
)

// runTimeout bounds one background run end to end, oracle retries included.
const runTimeout = 15 * time.Minute

// HybridIndex is the slice of the hybrid index adapter a run needs: parent
// upserts during ingestion and queries during retrieval.
type HybridIndex interface {
	review.Indexer
	retriever.HybridQuerier
}

// Archiver stores run exports in object storage. Optional; nil disables
// archiving.
type Archiver interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// ReviewService accepts verification jobs, runs them in the background, and
// exposes their state and verdicts.
type ReviewService struct {
	cfg         *config.Config
	hybrid      HybridIndex
	filter      *classifier.Filter
	registry    *checks.Registry
	judge       review.Judge
	reconciler  *reconciler.Reconciler
	runRepo     port.ReviewRunRepository
	verdictRepo port.FinalVerdictRepository
	archiver    Archiver
}

// NewReviewService creates a ReviewService.
func NewReviewService(
	cfg *config.Config,
	hybrid HybridIndex,
	filter *classifier.Filter,
	registry *checks.Registry,
	judge review.Judge,
	rec *reconciler.Reconciler,
	runRepo port.ReviewRunRepository,
	verdictRepo port.FinalVerdictRepository,
	archiver Archiver,
) *ReviewService {
	return &ReviewService{
		cfg:         cfg,
		hybrid:      hybrid,
		filter:      filter,
		registry:    registry,
		judge:       judge,
		reconciler:  rec,
		runRepo:     runRepo,
		verdictRepo: verdictRepo,
		archiver:    archiver,
	}
}

// SubmitInput is one verification job as received from the submitting worker.
type SubmitInput struct {
	TemplateID string
	Toggles    domain.Toggles
	Elements   []domain.Element
	Clauses    []domain.ClauseRequirement
	Fields     domain.POFields
}

// Submit validates the job, records it, and starts it in the background.
// The returned run is in the received state; clients poll for completion.
func (s *ReviewService) Submit(ctx context.Context, in SubmitInput) (*domain.ReviewRun, error) {
	if len(in.Elements) == 0 {
		return nil, fmt.Errorf("%w: no elements", domain.ErrInvalidElements)
	}
	if len(in.Clauses) == 0 {
		return nil, fmt.Errorf("%w: no clauses", domain.ErrInvalidRequirements)
	}

	toggles, err := json.Marshal(in.Toggles)
	if err != nil {
		return nil, fmt.Errorf("reviewService.Submit toggles: %w", err)
	}

	run := &domain.ReviewRun{
		ID:          uuid.New(),
		TemplateID:  in.TemplateID,
		Status:      domain.RunStatusReceived,
		Toggles:     toggles,
		ClauseCount: len(in.Clauses),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	// Detached from the request context so an impatient client does not
	// abort the run.
	go s.execute(run.ID, in)

	return run, nil
}

// GetRun returns a run's lifecycle record.
func (s *ReviewService) GetRun(ctx context.Context, id uuid.UUID) (*domain.ReviewRun, error) {
	return s.runRepo.GetByID(ctx, id)
}

// ListVerdicts returns a completed run's verdicts in clause order.
func (s *ReviewService) ListVerdicts(ctx context.Context, id uuid.UUID) ([]domain.FinalVerdict, error) {
	if _, err := s.runRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.verdictRepo.ListByRun(ctx, id)
}

// execute runs one job to its terminal state. It never returns an error;
// failures are recorded on the run.
func (s *ReviewService) execute(runID uuid.UUID, in SubmitInput) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.runRepo.UpdateStatus(ctx, runID, domain.RunStatusRunning, false); err != nil {
		log.Printf("reviewService: run %s: mark running: %v", runID, err)
		return
	}

	out, degraded, err := s.RunSync(ctx, in)
	if err != nil {
		log.Printf("reviewService: run %s failed: %v", runID, err)
		if uerr := s.runRepo.UpdateStatus(ctx, runID, domain.RunStatusFailed, degraded); uerr != nil {
			log.Printf("reviewService: run %s: mark failed: %v", runID, uerr)
		}
		return
	}

	if err := s.verdictRepo.InsertBatch(ctx, runID, out.Verdicts); err != nil {
		log.Printf("reviewService: run %s: persist verdicts: %v", runID, err)
		if uerr := s.runRepo.UpdateStatus(ctx, runID, domain.RunStatusFailed, degraded); uerr != nil {
			log.Printf("reviewService: run %s: mark failed: %v", runID, uerr)
		}
		return
	}

	s.archive(ctx, runID, out.Verdicts)

	if err := s.runRepo.UpdateStatus(ctx, runID, domain.RunStatusCompleted, degraded); err != nil {
		log.Printf("reviewService: run %s: mark completed: %v", runID, err)
		return
	}
	log.Printf("reviewService: run %s completed (%d verdicts, degraded=%v)", runID, len(out.Verdicts), degraded)
}

// RunSync executes one job synchronously: ingest and index the elements,
// then run the per-clause pipeline over the resulting child chunks. The
// degraded flag covers both ingestion and retrieval.
func (s *ReviewService) RunSync(ctx context.Context, in SubmitInput) (*review.Output, bool, error) {
	chunks, err := review.BuildAndIndex(ctx, s.hybrid, in.Elements)
	if err != nil {
		return nil, false, err
	}

	ret := retriever.New(s.hybrid, chunks.Children, s.cfg.Retriever.TopN, s.cfg.Retriever.K)

	pipeline, err := review.NewPipeline(ret, s.filter, s.registry, s.judge, s.reconciler, s.cfg.Review.Concurrency)
	if err != nil {
		return nil, chunks.Degraded, err
	}
	defer pipeline.Release()

	out, err := pipeline.Run(ctx, review.Input{
		Clauses:  in.Clauses,
		Fields:   &in.Fields,
		Toggles:  in.Toggles,
		Children: chunks.Children,
	})
	if err != nil {
		return nil, chunks.Degraded, err
	}
	return out, chunks.Degraded || out.Degraded, nil
}

// archive writes the issue register to object storage. Best effort: an
// archiving failure never fails a run that already has its verdicts.
func (s *ReviewService) archive(ctx context.Context, runID uuid.UUID, verdicts []domain.FinalVerdict) {
	if s.archiver == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, verdicts); err != nil {
		log.Printf("reviewService: run %s: build issue register: %v", runID, err)
		return
	}
	key := fmt.Sprintf("runs/%s/issues.csv", runID)
	if err := s.archiver.Put(ctx, key, "text/csv; charset=utf-8", buf.Bytes()); err != nil {
		log.Printf("reviewService: run %s: archive issue register: %v", runID, err)
	}
}
