// Package retriever selects candidate child chunks per clause. Two passes
// feed the candidate list: a regex-locator scan over child chunks for literal
// structural markers, and a hybrid keyword+vector query using the clause's
// expected text. Candidates merge by child id keeping the max score; an equal
// score is broken by earlier document offset.
package retriever

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index"
)

// HybridQuerier is the slice of the hybrid index adapter the retriever needs.
type HybridQuerier interface {
	Query(ctx context.Context, text string, k int) (*index.Result, error)
}

// Retriever merges pattern-based and hybrid-query candidates per clause.
type Retriever struct {
	hybrid   HybridQuerier
	children []domain.ChildChunk
	byParent map[uuid.UUID][]int // indexes into children
	topN     int
	k        int
}

// New creates a Retriever over a fixed child chunk set for one document version.
func New(hybrid HybridQuerier, children []domain.ChildChunk, topN, k int) *Retriever {
	if topN <= 0 {
		topN = 50
	}
	if k <= 0 {
		k = 10
	}
	byParent := make(map[uuid.UUID][]int)
	for i := range children {
		byParent[children[i].ParentID] = append(byParent[children[i].ParentID], i)
	}
	return &Retriever{
		hybrid:   hybrid,
		children: children,
		byParent: byParent,
		topN:     topN,
		k:        k,
	}
}

// Result carries a clause's merged candidates and the degraded-retrieval flag.
type Result struct {
	Candidates []domain.Candidate
	Degraded   bool
}

// Retrieve returns the top-N candidates for one clause. An empty candidate
// list is a valid result: the clause resolves to missing downstream, it is
// never dropped here.
func (r *Retriever) Retrieve(ctx context.Context, clause *domain.ClauseRequirement) (*Result, error) {
	best := make(map[uuid.UUID]*domain.Candidate)

	if err := r.regexPass(clause, best); err != nil {
		return nil, err
	}

	degraded, err := r.hybridPass(ctx, clause, best)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, *c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].DocOffset != candidates[j].DocOffset {
			return candidates[i].DocOffset < candidates[j].DocOffset
		}
		return candidates[i].ChildID.String() < candidates[j].ChildID.String()
	})
	if len(candidates) > r.topN {
		candidates = candidates[:r.topN]
	}

	return &Result{Candidates: candidates, Degraded: degraded}, nil
}

// regexPass scores children by how many of the clause's locators they match.
func (r *Retriever) regexPass(clause *domain.ClauseRequirement, best map[uuid.UUID]*domain.Candidate) error {
	if len(clause.RegexLocators) == 0 {
		return nil
	}
	patterns := make([]*regexp.Regexp, 0, len(clause.RegexLocators))
	for _, loc := range clause.RegexLocators {
		re, err := regexp.Compile("(?i)" + loc)
		if err != nil {
			return fmt.Errorf("%w: clause %s locator %q: %v", domain.ErrInvalidRequirements, clause.ID, loc, err)
		}
		patterns = append(patterns, re)
	}

	for i := range r.children {
		child := &r.children[i]
		matches := 0
		for _, re := range patterns {
			if re.MatchString(child.Text) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		offer(best, domain.Candidate{
			ClauseID:  clause.ID,
			ChildID:   child.ID,
			Score:     float64(matches),
			Source:    domain.SourceRegex,
			DocOffset: child.DocOffset,
		})
	}
	return nil
}

// hybridPass queries the hybrid index with the expected text and expands the
// ranked parents into their children.
func (r *Retriever) hybridPass(ctx context.Context, clause *domain.ClauseRequirement, best map[uuid.UUID]*domain.Candidate) (bool, error) {
	if clause.ExpectedText == "" {
		return false, nil
	}
	res, err := r.hybrid.Query(ctx, clause.ExpectedText, r.k)
	if err != nil {
		return false, err
	}

	for _, hit := range res.Hits {
		score, source := hit.KeywordScore, domain.SourceKeyword
		if hit.VectorScore > hit.KeywordScore {
			score, source = hit.VectorScore, domain.SourceVector
		}
		for _, idx := range r.byParent[hit.ParentID] {
			child := &r.children[idx]
			offer(best, domain.Candidate{
				ClauseID:  clause.ID,
				ChildID:   child.ID,
				Score:     score,
				Source:    source,
				DocOffset: child.DocOffset,
			})
		}
	}
	return res.Degraded, nil
}

// offer keeps the higher-scoring candidate per child id, so a clause's list
// never carries duplicate children.
func offer(best map[uuid.UUID]*domain.Candidate, c domain.Candidate) {
	cur, ok := best[c.ChildID]
	if !ok || c.Score > cur.Score {
		best[c.ChildID] = &c
	}
}
