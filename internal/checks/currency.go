package checks

import (
	"fmt"
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// CurrencyChecks returns the currency consistency rules.
func CurrencyChecks() []Check {
	return []Check{
		&fieldCheck{
			ruleKey: "currency.consistency", ruleName: "Currency: Line/Header Consistency",
			severity: domain.SeverityHigh,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				header := strings.ToUpper(strings.TrimSpace(f.Currency))
				if header == "" {
					return []domain.DeterministicResult{{
						CheckKey: "currency.consistency",
						Passed:   false,
						Faulted:  true,
						Expected: "a single order currency",
						Actual:   "none extracted",
						Message:  "currency.consistency: order currency missing from extracted fields",
						Severity: domain.SeverityHigh,
					}}
				}
				var odd []string
				for i := range f.Lines {
					cur := strings.ToUpper(strings.TrimSpace(f.Lines[i].Currency))
					if cur != "" && cur != header {
						odd = append(odd, fmt.Sprintf("lines[%d]=%s", i, cur))
					}
				}
				passed := len(odd) == 0
				actual := header
				msg := fmt.Sprintf("currency.consistency: all lines priced in %s", header)
				if !passed {
					actual = fmt.Sprintf("%s with %s", header, strings.Join(odd, ", "))
					msg = fmt.Sprintf("currency.consistency: mixed currencies (%s)", actual)
				}
				return []domain.DeterministicResult{{
					CheckKey: "currency.consistency",
					Passed:   passed,
					Expected: header,
					Actual:   actual,
					Message:  msg,
					Severity: domain.SeverityHigh,
				}}
			},
		},
	}
}
