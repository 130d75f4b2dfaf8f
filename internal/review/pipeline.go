// Package review orchestrates one verification run: deterministic checks
// once per document, then per-clause retrieve → classify → judge → reconcile
// fanned out over a bounded worker pool. A run always produces exactly one
// FinalVerdict per clause, including on cancellation.
package review

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/classifier"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/retriever"
)

// maxEvidencePerRequest caps how many excerpts one judge request carries.
const maxEvidencePerRequest = 8

// ClauseRetriever is the retriever surface the pipeline needs.
type ClauseRetriever interface {
	Retrieve(ctx context.Context, clause *domain.ClauseRequirement) (*retriever.Result, error)
}

// CandidateFilter is the classifier surface the pipeline needs.
type CandidateFilter interface {
	Apply(ctx context.Context, clause *domain.ClauseRequirement, candidates []domain.Candidate, chunkText map[uuid.UUID]string, bypass bool) []domain.ClassifiedCandidate
}

// Judge is the fail-closed oracle surface the pipeline needs.
type Judge interface {
	JudgeClosed(ctx context.Context, req port.JudgeRequest, fallbackSeverity domain.Severity) *domain.OracleVerdict
}

// Pipeline runs the per-clause verification stages over a worker pool.
type Pipeline struct {
	retriever  ClauseRetriever
	filter     CandidateFilter
	registry   *checks.Registry
	judge      Judge
	reconciler *reconciler.Reconciler
	pool       *ants.Pool
}

// NewPipeline creates a Pipeline with a pool of the given size. Callers own
// the pool lifecycle via Release.
func NewPipeline(
	ret ClauseRetriever,
	filter CandidateFilter,
	registry *checks.Registry,
	judge Judge,
	rec *reconciler.Reconciler,
	concurrency int,
) (*Pipeline, error) {
	if concurrency < 1 {
		concurrency = 4
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &Pipeline{
		retriever:  ret,
		filter:     filter,
		registry:   registry,
		judge:      judge,
		reconciler: rec,
		pool:       pool,
	}, nil
}

// Release frees the worker pool.
func (p *Pipeline) Release() {
	p.pool.Release()
}

// Input is everything one run operates on. Children must be the child chunks
// of the same document version the retriever was built over.
type Input struct {
	Clauses  []domain.ClauseRequirement
	Fields   *domain.POFields
	Toggles  domain.Toggles
	Children []domain.ChildChunk
}

// Output is the complete result of one run.
type Output struct {
	Verdicts []domain.FinalVerdict
	Checks   []domain.DeterministicResult
	Degraded bool
}

// Run executes the full per-clause pipeline. The returned verdict slice is
// parallel to Input.Clauses: exactly one terminal verdict per clause, in
// input order. Cancellation stops issuing new oracle calls; clauses not yet
// judged still reconcile to needs_review.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	if len(in.Clauses) == 0 {
		return nil, fmt.Errorf("%w: no clauses in requirements", domain.ErrInvalidRequirements)
	}
	if err := validateLocators(in.Clauses); err != nil {
		return nil, err
	}

	detResults := p.registry.Run(ctx, in.Fields, in.Toggles)
	failedKeys := checks.FailedKeys(detResults)

	chunkText := make(map[uuid.UUID]string, len(in.Children))
	childByID := make(map[uuid.UUID]*domain.ChildChunk, len(in.Children))
	for i := range in.Children {
		c := &in.Children[i]
		chunkText[c.ID] = c.Text
		childByID[c.ID] = c
	}

	out := &Output{
		Verdicts: make([]domain.FinalVerdict, len(in.Clauses)),
		Checks:   detResults,
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex // guards out.Degraded
	)
	for i := range in.Clauses {
		i := i
		clause := &in.Clauses[i]
		wg.Add(1)
		job := func() {
			defer wg.Done()
			verdict, degraded := p.runClause(ctx, clause, detResults, failedKeys, chunkText, childByID)
			out.Verdicts[i] = verdict
			if degraded {
				mu.Lock()
				out.Degraded = true
				mu.Unlock()
			}
		}
		if err := p.pool.Submit(job); err != nil {
			// Pool released or overloaded beyond its queue: run inline so the
			// clause still gets its verdict.
			log.Printf("review.Pipeline: pool submit failed for clause %s, running inline: %v", clause.ID, err)
			job()
		}
	}
	wg.Wait()

	return out, nil
}

// runClause executes retrieve → classify → judge → reconcile for one clause.
// It never returns an error: every failure path reconciles into a terminal
// verdict.
func (p *Pipeline) runClause(
	ctx context.Context,
	clause *domain.ClauseRequirement,
	detResults []domain.DeterministicResult,
	failedKeys map[string]bool,
	chunkText map[uuid.UUID]string,
	childByID map[uuid.UUID]*domain.ChildChunk,
) (domain.FinalVerdict, bool) {
	clauseDet := checks.ForClause(detResults, clause)

	res, err := p.retriever.Retrieve(ctx, clause)
	if err != nil {
		log.Printf("review.Pipeline: retrieval failed for clause %s: %v", clause.ID, err)
		verdict := p.reconciler.Reconcile(clause, clauseDet, nil, nil)
		if verdict.Status == domain.VerdictMissing {
			verdict.Status = domain.VerdictNeedsReview
			verdict.Notes = fmt.Sprintf("retrieval unavailable: %v", err)
		}
		return verdict, true
	}

	bypass := false
	for _, key := range clause.RuleKeys {
		if failedKeys[key] {
			bypass = true
			break
		}
	}

	classified := p.filter.Apply(ctx, clause, res.Candidates, chunkText, bypass)
	retained := classifier.Retained(classified)
	if len(retained) == 0 {
		return p.reconciler.Reconcile(clause, clauseDet, nil, nil), res.Degraded
	}

	req, anchors := buildJudgeRequest(clause, retained, childByID)

	if ctx.Err() != nil {
		// Canceled run: no new oracle calls, but the verdict set stays complete.
		return p.reconciler.Reconcile(clause, clauseDet, nil, anchors), res.Degraded
	}
	verdict := p.judge.JudgeClosed(ctx, req, defaultSeverity(clause))
	return p.reconciler.Reconcile(clause, clauseDet, verdict, anchors), res.Degraded
}

// buildJudgeRequest packages the top retained candidates into one oracle
// request and returns their anchors for evidence fallback.
func buildJudgeRequest(
	clause *domain.ClauseRequirement,
	retained []domain.ClassifiedCandidate,
	childByID map[uuid.UUID]*domain.ChildChunk,
) (port.JudgeRequest, []domain.EvidenceAnchor) {
	req := port.JudgeRequest{
		ClauseID:     clause.ID,
		ExpectedText: clause.ExpectedText,
	}
	var anchors []domain.EvidenceAnchor
	for _, cand := range retained {
		child, ok := childByID[cand.ChildID]
		if !ok {
			continue
		}
		anchor := domain.EvidenceAnchor{
			Doc:     child.Doc,
			Page:    child.Page,
			ChildID: child.ID,
			Offset:  child.Offset,
		}
		anchors = append(anchors, anchor)
		if len(req.Evidence) < maxEvidencePerRequest {
			req.Evidence = append(req.Evidence, port.JudgeEvidence{Anchor: anchor, Text: child.Text})
		}
	}
	return req, anchors
}

func defaultSeverity(clause *domain.ClauseRequirement) domain.Severity {
	if clause.DefaultSeverity == "" {
		return domain.SeverityMedium
	}
	return clause.DefaultSeverity
}

// validateLocators compiles every clause locator up front so a malformed
// requirements file fails the run before any work starts.
func validateLocators(clauses []domain.ClauseRequirement) error {
	for i := range clauses {
		for _, loc := range clauses[i].RegexLocators {
			if _, err := regexp.Compile("(?i)" + loc); err != nil {
				return fmt.Errorf("%w: clause %s locator %q: %v", domain.ErrInvalidRequirements, clauses[i].ID, loc, err)
			}
		}
	}
	return nil
}
