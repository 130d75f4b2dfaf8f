package checks

import (
	"fmt"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// House bounds for guarantee percentages of contract value. Performance
// guarantees run at 10% of contract value; advance payment guarantees cover
// the prepayment and stay within a quarter of the contract value.
const (
	performanceMaxPercent    = 10.0
	advancePaymentMaxPercent = 25.0
)

func guaranteeResult(key string, passed bool, expected, actual, msg string) domain.DeterministicResult {
	return domain.DeterministicResult{
		CheckKey: key,
		Passed:   passed,
		Expected: expected,
		Actual:   actual,
		Message:  msg,
		Severity: domain.SeverityHigh,
	}
}

// GuaranteeChecks returns the PG/APG percentage bound rules. The pg_waived
// toggle turns the performance rule into an unconditional pass; apg_required
// makes a missing advance payment guarantee a failure instead of a pass.
func GuaranteeChecks() []Check {
	return []Check{
		&fieldCheck{
			ruleKey: "guarantee.performance", ruleName: "Guarantee: Performance Bond Bounds",
			severity: domain.SeverityHigh,
			evaluate: func(f *domain.POFields, t domain.Toggles) []domain.DeterministicResult {
				pct := f.Guarantees.PerformancePercent
				expected := fmt.Sprintf("0 < performance_percent <= %.0f", performanceMaxPercent)
				actual := fmt.Sprintf("%.2f", pct)
				if t.PGWaived {
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.performance", true, expected, actual,
						"guarantee.performance: waived for this job",
					)}
				}
				switch {
				case pct <= 0:
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.performance", false, expected, actual,
						"guarantee.performance: no performance guarantee extracted",
					)}
				case pct > performanceMaxPercent:
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.performance", false, expected, actual,
						fmt.Sprintf("guarantee.performance: %.2f%% exceeds the %.0f%% bound", pct, performanceMaxPercent),
					)}
				}
				return []domain.DeterministicResult{guaranteeResult(
					"guarantee.performance", true, expected, actual,
					fmt.Sprintf("guarantee.performance: %.2f%% within bounds", pct),
				)}
			},
		},
		&fieldCheck{
			ruleKey: "guarantee.advance_payment", ruleName: "Guarantee: Advance Payment Bounds",
			severity: domain.SeverityHigh,
			evaluate: func(f *domain.POFields, t domain.Toggles) []domain.DeterministicResult {
				pct := f.Guarantees.AdvancePaymentPercent
				expected := fmt.Sprintf("0 < advance_payment_percent <= %.0f", advancePaymentMaxPercent)
				actual := fmt.Sprintf("%.2f", pct)
				switch {
				case pct <= 0 && t.APGRequired:
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.advance_payment", false, expected, actual,
						"guarantee.advance_payment: required for this job but not extracted",
					)}
				case pct <= 0:
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.advance_payment", true, "no advance payment, or guarantee present", actual,
						"guarantee.advance_payment: not present, not required",
					)}
				case pct > advancePaymentMaxPercent:
					return []domain.DeterministicResult{guaranteeResult(
						"guarantee.advance_payment", false, expected, actual,
						fmt.Sprintf("guarantee.advance_payment: %.2f%% exceeds the %.0f%% bound", pct, advancePaymentMaxPercent),
					)}
				}
				return []domain.DeterministicResult{guaranteeResult(
					"guarantee.advance_payment", true, expected, actual,
					fmt.Sprintf("guarantee.advance_payment: %.2f%% within bounds", pct),
				)}
			},
		},
	}
}
