package domain

// VerdictStatus is the reconciled status of a clause after review.
type VerdictStatus string

const (
	VerdictMatch       VerdictStatus = "match"
	VerdictMismatch    VerdictStatus = "mismatch"
	VerdictMissing     VerdictStatus = "missing"
	VerdictNeedsReview VerdictStatus = "needs_review"
)

// Severity ranks how serious a clause deviation is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank returns a comparable ordering for severities. Unknown values rank lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the higher-ranked of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// CandidateSource tags which retrieval path produced a candidate.
type CandidateSource string

const (
	SourceKeyword CandidateSource = "keyword"
	SourceVector  CandidateSource = "vector"
	SourceRegex   CandidateSource = "regex"
)

// RunStatus represents the lifecycle of a review run.
type RunStatus string

const (
	RunStatusReceived  RunStatus = "received"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCanceled  RunStatus = "canceled"
	RunStatusFailed    RunStatus = "failed"
)

// CalendarSystem identifies which calendar a contract date is expressed in.
type CalendarSystem string

const (
	CalendarGregorian CalendarSystem = "gregorian"
	CalendarJalali    CalendarSystem = "jalali"
)
