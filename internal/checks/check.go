// Package checks is the deterministic rule engine. Rules are pure functions
// over the extracted structured fields of a purchase order; they never touch
// retrieval output or the oracle. Each rule returns pass/fail plus the
// computed expected and actual values for audit. A rule that cannot evaluate
// because its input fields are malformed fails with Faulted set instead of
// erroring out of the run.
package checks

import (
	"context"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// Check is the interface for a single deterministic rule.
type Check interface {
	RuleKey() string
	RuleName() string
	Severity() domain.Severity
	Evaluate(ctx context.Context, fields *domain.POFields, toggles domain.Toggles) []domain.DeterministicResult
}

// fieldCheck is the common closure-backed rule implementation.
type fieldCheck struct {
	ruleKey  string
	ruleName string
	severity domain.Severity
	evaluate func(*domain.POFields, domain.Toggles) []domain.DeterministicResult
}

func (c *fieldCheck) RuleKey() string           { return c.ruleKey }
func (c *fieldCheck) RuleName() string          { return c.ruleName }
func (c *fieldCheck) Severity() domain.Severity { return c.severity }

func (c *fieldCheck) Evaluate(_ context.Context, fields *domain.POFields, toggles domain.Toggles) []domain.DeterministicResult {
	return c.evaluate(fields, toggles)
}

// Registry holds checks in registration order. Order is part of the contract:
// results are emitted in the same order on every run.
type Registry struct {
	order []Check
	byKey map[string]Check
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Check)}
}

// Register appends a check. A duplicate key replaces the earlier registration
// in place, keeping its position.
func (r *Registry) Register(c Check) {
	if _, ok := r.byKey[c.RuleKey()]; ok {
		for i := range r.order {
			if r.order[i].RuleKey() == c.RuleKey() {
				r.order[i] = c
				break
			}
		}
	} else {
		r.order = append(r.order, c)
	}
	r.byKey[c.RuleKey()] = c
}

// Get returns the check for a rule key, or nil.
func (r *Registry) Get(key string) Check {
	return r.byKey[key]
}

// All returns the checks in registration order.
func (r *Registry) All() []Check {
	out := make([]Check, len(r.order))
	copy(out, r.order)
	return out
}

// NewDefaultRegistry returns the built-in rule set in its canonical order.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range MathChecks() {
		r.Register(c)
	}
	for _, c := range CurrencyChecks() {
		r.Register(c)
	}
	for _, c := range DateChecks() {
		r.Register(c)
	}
	for _, c := range GuaranteeChecks() {
		r.Register(c)
	}
	for _, c := range TextChecks() {
		r.Register(c)
	}
	return r
}

// Run evaluates every registered check against the extracted fields.
func (r *Registry) Run(ctx context.Context, fields *domain.POFields, toggles domain.Toggles) []domain.DeterministicResult {
	var results []domain.DeterministicResult
	for _, c := range r.order {
		results = append(results, c.Evaluate(ctx, fields, toggles)...)
	}
	return results
}

// FailedKeys returns the set of rule keys with at least one failed result.
// The review pipeline uses it to decide classifier bypass per clause.
func FailedKeys(results []domain.DeterministicResult) map[string]bool {
	failed := make(map[string]bool)
	for _, res := range results {
		if !res.Passed {
			failed[res.CheckKey] = true
		}
	}
	return failed
}

// ForClause returns the results whose rule keys a clause references.
func ForClause(results []domain.DeterministicResult, clause *domain.ClauseRequirement) []domain.DeterministicResult {
	if len(clause.RuleKeys) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(clause.RuleKeys))
	for _, k := range clause.RuleKeys {
		wanted[k] = true
	}
	var out []domain.DeterministicResult
	for _, res := range results {
		if wanted[res.CheckKey] {
			out = append(out, res)
		}
	}
	return out
}
