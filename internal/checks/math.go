package checks

import (
	"fmt"
	"math"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// mathTolerance absorbs rounding differences between line-level and
// total-level figures on scanned orders.
const mathTolerance = 1.00

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= mathTolerance
}

func fmtf(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func mathResult(key string, severity domain.Severity, passed bool, fieldPath, expected, actual string) domain.DeterministicResult {
	msg := fmt.Sprintf("%s: calculation matches", fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: calculation mismatch (expected %s, got %s)", fieldPath, expected, actual)
	}
	return domain.DeterministicResult{
		CheckKey: key,
		Passed:   passed,
		Expected: expected,
		Actual:   actual,
		Message:  msg,
		Severity: severity,
	}
}

// MathChecks returns the arithmetic reconciliation rules.
func MathChecks() []Check {
	return []Check{
		&fieldCheck{
			ruleKey: "math.line_total", ruleName: "Math: Line Total",
			severity: domain.SeverityHigh,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				results := make([]domain.DeterministicResult, 0, len(f.Lines))
				for i := range f.Lines {
					line := &f.Lines[i]
					fp := fmt.Sprintf("lines[%d].line_total", i)
					expected := line.Quantity * line.UnitPrice
					passed := approxEqual(line.LineTotal, expected)
					results = append(results, mathResult("math.line_total", domain.SeverityHigh, passed, fp, fmtf(expected), fmtf(line.LineTotal)))
				}
				return results
			},
		},
		&fieldCheck{
			ruleKey: "math.grand_total", ruleName: "Math: Grand Total",
			severity: domain.SeverityHigh,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				var sum float64
				for i := range f.Lines {
					sum += f.Lines[i].LineTotal
				}
				passed := approxEqual(f.GrandTotal, sum)
				return []domain.DeterministicResult{
					mathResult("math.grand_total", domain.SeverityHigh, passed, "grand_total", fmtf(sum), fmtf(f.GrandTotal)),
				}
			},
		},
	}
}
