package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Element is a single partition unit produced by the external partitioner.
// Elements are immutable inputs; the pipeline never modifies them.
type Element struct {
	Doc       string `json:"doc"`
	Page      int    `json:"page"`
	ElementID string `json:"element_id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
}

// ParentChunk is the indexed segmentation unit (~1900 chars).
type ParentChunk struct {
	ID         uuid.UUID `json:"parent_id"`
	Doc        string    `json:"doc"`
	PageStart  int       `json:"page_start"`
	PageEnd    int       `json:"page_end"`
	ElementIDs []string  `json:"element_ids"`
	// DocOffset is the chunk's character offset within the concatenated document.
	DocOffset int    `json:"doc_offset"`
	Text      string `json:"text"`
}

// ChildChunk is the evidence segmentation unit (~600 chars, 15% overlap).
// Offset is relative to the owning parent; DocOffset is absolute within the
// document and is used for deterministic tie-breaking.
type ChildChunk struct {
	ID        uuid.UUID `json:"child_id"`
	ParentID  uuid.UUID `json:"parent_id"`
	Doc       string    `json:"doc"`
	Page      int       `json:"page"`
	Offset    int       `json:"offset"`
	DocOffset int       `json:"doc_offset"`
	Text      string    `json:"text"`
}

// ClauseRequirement is one clause of the requirements template. Loaded once
// per run and treated as immutable.
type ClauseRequirement struct {
	ID              string   `json:"id"`
	TemplateID      string   `json:"template_id"`
	Title           string   `json:"title"`
	ExpectedText    string   `json:"expected_text"`
	RegexLocators   []string `json:"regex_locators"`
	RuleKeys        []string `json:"rule_keys"`
	DefaultSeverity Severity `json:"default_severity"`
}

// Candidate is an ephemeral per-run retrieval hit linking a clause to a child chunk.
type Candidate struct {
	ClauseID  string          `json:"clause_id"`
	ChildID   uuid.UUID       `json:"child_id"`
	Score     float64         `json:"score"`
	Source    CandidateSource `json:"source"`
	DocOffset int             `json:"doc_offset"`
}

// ClassifiedCandidate is a Candidate annotated with the relevance model's output.
type ClassifiedCandidate struct {
	Candidate
	Probability float64 `json:"probability"`
	Retained    bool    `json:"retained"`
}

// DeterministicResult is the outcome of one deterministic rule evaluation.
// ClauseID is empty for document-global checks. Faulted marks rules that could
// not evaluate because the structured fields were malformed; such results count
// as failures but carry the fault reason for audit.
type DeterministicResult struct {
	CheckKey string   `json:"check_key"`
	ClauseID string   `json:"clause_id,omitempty"`
	Passed   bool     `json:"passed"`
	Faulted  bool     `json:"faulted,omitempty"`
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// EvidenceAnchor links a verdict back to source text.
type EvidenceAnchor struct {
	Doc     string    `json:"doc"`
	Page    int       `json:"page"`
	ChildID uuid.UUID `json:"child_id"`
	Offset  int       `json:"offset"`
}

// OracleVerdict is the schema-validated judgment returned for one clause.
type OracleVerdict struct {
	ClauseID   string           `json:"clause_id"`
	Status     VerdictStatus    `json:"status"`
	Expected   string           `json:"expected"`
	Actual     string           `json:"actual"`
	Evidence   []EvidenceAnchor `json:"evidence"`
	Fix        string           `json:"fix"`
	Severity   Severity         `json:"severity"`
	Confidence float64          `json:"confidence"`
}

// FinalVerdict is the terminal, reconciled result for one clause. It is the
// only pipeline entity persisted downstream.
type FinalVerdict struct {
	ClauseID string           `json:"clause_id"`
	Status   VerdictStatus    `json:"status"`
	Severity Severity         `json:"severity"`
	Expected string           `json:"expected"`
	Actual   string           `json:"actual"`
	Fix      string           `json:"fix"`
	Evidence []EvidenceAnchor `json:"evidence"`
	Conflict bool             `json:"conflict"`
	Notes    string           `json:"notes,omitempty"`
}

// DateField is a contract date as extracted, with its calendar system.
type DateField struct {
	Raw      string         `json:"raw"`
	Year     int            `json:"year"`
	Month    int            `json:"month"`
	Day      int            `json:"day"`
	Calendar CalendarSystem `json:"calendar"`
}

// IsZero reports whether the date was not extracted.
func (d DateField) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// POLine is one order line of the purchase order.
type POLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	Currency    string  `json:"currency"`
}

// Guarantees holds the financial guarantee terms as extracted.
type Guarantees struct {
	AdvancePaymentPercent float64 `json:"advance_payment_percent"`
	PerformancePercent    float64 `json:"performance_percent"`
}

// POFields is the structured field set extracted from the purchase order.
// The deterministic checker operates only on these fields, never on retrieval
// output or the oracle.
type POFields struct {
	Lines         []POLine   `json:"lines"`
	GrandTotal    float64    `json:"grand_total"`
	Currency      string     `json:"currency"`
	ContractValue float64    `json:"contract_value"`
	OrderDate     DateField  `json:"order_date"`
	EffectiveDate DateField  `json:"effective_date"`
	DeliveryDate  DateField  `json:"delivery_date"`
	Guarantees    Guarantees `json:"guarantees"`
	Incoterm      string     `json:"incoterm"`
	LDRatePerDay  float64    `json:"ld_rate_per_day"`
	FullText      string     `json:"full_text,omitempty"`
}

// Toggles are per-job review switches carried over from the submitting worker.
type Toggles struct {
	TemplateOverride string `json:"template_override"`
	PGWaived         bool   `json:"pg_waived"`
	APGRequired      bool   `json:"apg_required"`
}

// ReviewRun tracks one verification run over a PO package.
type ReviewRun struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	TemplateID  string          `db:"template_id" json:"template_id"`
	Status      RunStatus       `db:"status" json:"status"`
	Toggles     json.RawMessage `db:"toggles" json:"toggles"`
	Degraded    bool            `db:"degraded" json:"degraded"`
	ClauseCount int             `db:"clause_count" json:"clause_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
