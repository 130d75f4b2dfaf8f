package oracle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/normalize"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

const initialBackoff = 2 * time.Second

// Adapter wraps a JudgmentOracle with bounded retry, backoff, and a textual
// cross-check of the returned verdict. It is safe for concurrent use; callers
// bound their own concurrency since the provider is externally rate-limited.
type Adapter struct {
	inner      port.JudgmentOracle
	maxRetries int
	backoff    time.Duration
}

// NewAdapter wraps an oracle client. maxRetries counts attempts beyond the
// first; 0 falls back to 3.
func NewAdapter(inner port.JudgmentOracle, maxRetries int) *Adapter {
	return NewAdapterWithBackoff(inner, maxRetries, initialBackoff)
}

// NewAdapterWithBackoff sets the initial retry delay explicitly (for testing).
func NewAdapterWithBackoff(inner port.JudgmentOracle, maxRetries int, backoff time.Duration) *Adapter {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = initialBackoff
	}
	return &Adapter{inner: inner, maxRetries: maxRetries, backoff: backoff}
}

// Judge calls the oracle with retry and exponential backoff. A rate-limited
// attempt waits the provider's Retry-After instead. The returned error wraps
// ErrOracleTimeout when the context deadline was the cause.
func (a *Adapter) Judge(ctx context.Context, req port.JudgeRequest) (*domain.OracleVerdict, error) {
	var lastErr error
	backoff := a.backoff

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff
			var rle *RateLimitError
			if errors.As(lastErr, &rle) {
				wait = rle.RetryAfter
			}
			log.Printf("oracle.Adapter: clause %s attempt %d/%d failed, retrying in %s: %v",
				req.ClauseID, attempt, a.maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: clause %s: %v", domain.ErrOracleTimeout, req.ClauseID, ctx.Err())
			case <-time.After(wait):
			}
			backoff *= 2
		}

		verdict, err := a.inner.Judge(ctx, req)
		if err == nil {
			return crossCheck(verdict), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: clause %s: %v", domain.ErrOracleTimeout, req.ClauseID, err)
		}
	}
	return nil, fmt.Errorf("oracle exhausted %d retries for clause %s: %w", a.maxRetries, req.ClauseID, lastErr)
}

// JudgeClosed is the fail-closed entry point the review pipeline uses: any
// failure becomes a terminal needs_review verdict instead of an error.
func (a *Adapter) JudgeClosed(ctx context.Context, req port.JudgeRequest, fallbackSeverity domain.Severity) *domain.OracleVerdict {
	verdict, err := a.Judge(ctx, req)
	if err != nil {
		log.Printf("oracle.Adapter: clause %s failed closed: %v", req.ClauseID, err)
		return ReviewVerdict(req, fallbackSeverity)
	}
	return verdict
}

// ReviewVerdict builds the terminal needs_review verdict emitted when no
// usable judgment was obtained.
func ReviewVerdict(req port.JudgeRequest, severity domain.Severity) *domain.OracleVerdict {
	return &domain.OracleVerdict{
		ClauseID:   req.ClauseID,
		Status:     domain.VerdictNeedsReview,
		Expected:   req.ExpectedText,
		Severity:   severity,
		Confidence: 0,
	}
}

// crossCheck second-guesses the model with a literal containment test on
// normalized text. A claimed match whose expected wording is absent from the
// quoted actual text, or a claimed mismatch that quotes the expected wording
// verbatim, is downgraded to needs_review. The match-side test only applies
// to short requirements; long expected texts are legitimately paraphrased.
func crossCheck(v *domain.OracleVerdict) *domain.OracleVerdict {
	if v.Expected == "" || v.Actual == "" {
		return v
	}
	expected := normalize.Text(v.Expected)
	actual := normalize.Text(v.Actual)

	switch v.Status {
	case domain.VerdictMatch:
		if !strings.Contains(actual, expected) && len([]rune(expected)) <= 80 {
			v.Status = domain.VerdictNeedsReview
		}
	case domain.VerdictMismatch:
		if strings.Contains(actual, expected) {
			v.Status = domain.VerdictNeedsReview
		}
	}
	return v
}
