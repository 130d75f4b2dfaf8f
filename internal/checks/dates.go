package checks

import (
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// toGregorian validates a date in its own calendar and converts it to a
// comparable time.Time. Jalali dates convert through the Persian calendar;
// both calendars reject dates that normalize away (e.g. 31st of a 30-day
// month).
func toGregorian(d domain.DateField) (time.Time, error) {
	switch d.Calendar {
	case domain.CalendarJalali:
		pt := ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 0, 0, 0, 0, ptime.Iran())
		if pt.Year() != d.Year || int(pt.Month()) != d.Month || pt.Day() != d.Day {
			return time.Time{}, fmt.Errorf("%d-%02d-%02d is not a valid Jalali date", d.Year, d.Month, d.Day)
		}
		return pt.Time(), nil
	default:
		t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
		if t.Year() != d.Year || int(t.Month()) != d.Month || t.Day() != d.Day {
			return time.Time{}, fmt.Errorf("%d-%02d-%02d is not a valid Gregorian date", d.Year, d.Month, d.Day)
		}
		return t, nil
	}
}

func dateLabel(d domain.DateField) string {
	return fmt.Sprintf("%d-%02d-%02d (%s)", d.Year, d.Month, d.Day, d.Calendar)
}

// DateChecks returns the calendar validity and ordering rules.
func DateChecks() []Check {
	return []Check{
		&fieldCheck{
			ruleKey: "dates.validity", ruleName: "Dates: Calendar Validity",
			severity: domain.SeverityMedium,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				fields := []struct {
					name string
					date domain.DateField
				}{
					{"order_date", f.OrderDate},
					{"effective_date", f.EffectiveDate},
					{"delivery_date", f.DeliveryDate},
				}
				var results []domain.DeterministicResult
				for _, df := range fields {
					if df.date.IsZero() {
						continue
					}
					res := domain.DeterministicResult{
						CheckKey: "dates.validity",
						Passed:   true,
						Expected: fmt.Sprintf("%s is a valid %s date", df.name, df.date.Calendar),
						Actual:   dateLabel(df.date),
						Message:  fmt.Sprintf("dates.validity: %s %s is valid", df.name, dateLabel(df.date)),
						Severity: domain.SeverityMedium,
					}
					if _, err := toGregorian(df.date); err != nil {
						res.Passed = false
						res.Faulted = true
						res.Message = fmt.Sprintf("dates.validity: %s: %v", df.name, err)
					}
					results = append(results, res)
				}
				return results
			},
		},
		&fieldCheck{
			ruleKey: "dates.ordering", ruleName: "Dates: Order/Effective/Delivery Ordering",
			severity: domain.SeverityMedium,
			evaluate: func(f *domain.POFields, _ domain.Toggles) []domain.DeterministicResult {
				// Compare in Gregorian regardless of source calendar.
				ordered := []struct {
					name string
					date domain.DateField
				}{
					{"order_date", f.OrderDate},
					{"effective_date", f.EffectiveDate},
					{"delivery_date", f.DeliveryDate},
				}
				prevName := ""
				var prev time.Time
				for _, df := range ordered {
					if df.date.IsZero() {
						continue
					}
					t, err := toGregorian(df.date)
					if err != nil {
						return []domain.DeterministicResult{{
							CheckKey: "dates.ordering",
							Passed:   false,
							Faulted:  true,
							Expected: "order_date <= effective_date <= delivery_date",
							Actual:   dateLabel(df.date),
							Message:  fmt.Sprintf("dates.ordering: cannot compare, %s: %v", df.name, err),
							Severity: domain.SeverityMedium,
						}}
					}
					if prevName != "" && t.Before(prev) {
						return []domain.DeterministicResult{{
							CheckKey: "dates.ordering",
							Passed:   false,
							Expected: fmt.Sprintf("%s >= %s", df.name, prevName),
							Actual:   fmt.Sprintf("%s=%s before %s=%s", df.name, t.Format("2006-01-02"), prevName, prev.Format("2006-01-02")),
							Message:  fmt.Sprintf("dates.ordering: %s precedes %s", df.name, prevName),
							Severity: domain.SeverityMedium,
						}}
					}
					prevName, prev = df.name, t
				}
				return []domain.DeterministicResult{{
					CheckKey: "dates.ordering",
					Passed:   true,
					Expected: "order_date <= effective_date <= delivery_date",
					Actual:   "dates in order",
					Message:  "dates.ordering: extracted dates are consistently ordered",
					Severity: domain.SeverityMedium,
				}}
			},
		},
	}
}
