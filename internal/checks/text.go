package checks

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// ldRatePerDay is the house liquidated damages rate, 0.25% of contract value
// per day of delay.
const ldRatePerDay = 0.25

var (
	incotermRe = regexp.MustCompile(`(?i)\b(DDP|EXW|FCA|FOB|CFR|CIF|CPT|CIP|DAP|DPU|DDU)\b`)

	// The rate appears in Persian digits, Latin digits, or spelled out.
	ldRateRe = regexp.MustCompile(`۰\.۲۵|0\.25|بیست و پنج صدم`)
)

// TextChecks returns the rules that fall back to a full-text scan when the
// extractor produced no structured value.
func TextChecks() []Check {
	return []Check{
		&fieldCheck{
			ruleKey: "text.incoterm", ruleName: "Text: Incoterm Present",
			severity: domain.SeverityMedium,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				term := strings.ToUpper(strings.TrimSpace(f.Incoterm))
				if term == "" {
					if m := incotermRe.FindString(f.FullText); m != "" {
						term = strings.ToUpper(m)
					}
				}
				res := domain.DeterministicResult{
					CheckKey: "text.incoterm",
					Passed:   term != "",
					Expected: "a recognized Incoterm (DDP, EXW, FCA, ...)",
					Actual:   term,
					Severity: domain.SeverityMedium,
				}
				if res.Passed {
					res.Message = fmt.Sprintf("text.incoterm: found %s", term)
				} else {
					res.Actual = "none"
					res.Message = "text.incoterm: no Incoterm in extracted fields or order text"
				}
				return []domain.DeterministicResult{res}
			},
		},
		&fieldCheck{
			ruleKey: "text.ld_rate", ruleName: "Text: Liquidated Damages Rate",
			severity: domain.SeverityMedium,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				expected := fmt.Sprintf("%.2f%% per day", ldRatePerDay)
				if f.LDRatePerDay > 0 {
					passed := math.Abs(f.LDRatePerDay-ldRatePerDay) < 0.005
					msg := fmt.Sprintf("text.ld_rate: extracted rate %.2f%% matches", f.LDRatePerDay)
					if !passed {
						msg = fmt.Sprintf("text.ld_rate: extracted rate %.2f%% deviates from %.2f%%", f.LDRatePerDay, ldRatePerDay)
					}
					return []domain.DeterministicResult{{
						CheckKey: "text.ld_rate",
						Passed:   passed,
						Expected: expected,
						Actual:   fmt.Sprintf("%.2f%% per day", f.LDRatePerDay),
						Message:  msg,
						Severity: domain.SeverityMedium,
					}}
				}
				found := ldRateRe.MatchString(f.FullText)
				res := domain.DeterministicResult{
					CheckKey: "text.ld_rate",
					Passed:   found,
					Expected: expected,
					Severity: domain.SeverityMedium,
				}
				if found {
					res.Actual = "rate phrase present in order text"
					res.Message = "text.ld_rate: 0.25%/day phrase found in order text"
				} else {
					res.Actual = "no rate extracted or found"
					res.Message = "text.ld_rate: liquidated damages rate absent"
				}
				return []domain.DeterministicResult{res}
			},
		},
	}
}
