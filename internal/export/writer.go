// Package export renders the issue register the external report/redline
// assembler consumes: CSV, JSON, and XLSX views over a run's FinalVerdicts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Clause",
	"Status",
	"Severity",
	"Conflict",
	"Expected",
	"Actual",
	"Suggested Fix",
	"Evidence Doc",
	"Evidence Page",
	"Evidence Count",
	"Notes",
}

// Writer wraps csv.Writer for exporting the issue register as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteVerdicts converts verdicts to CSV rows and writes them.
func (w *Writer) WriteVerdicts(verdicts []domain.FinalVerdict) error {
	for i := range verdicts {
		if err := w.csv.Write(verdictToRow(&verdicts[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func verdictToRow(v *domain.FinalVerdict) []string {
	row := make([]string, len(columns))
	row[0] = v.ClauseID
	row[1] = string(v.Status)
	row[2] = string(v.Severity)
	row[3] = formatBool(v.Conflict)
	row[4] = v.Expected
	row[5] = v.Actual
	row[6] = v.Fix
	if len(v.Evidence) > 0 {
		row[7] = v.Evidence[0].Doc
		row[8] = fmt.Sprintf("%d", v.Evidence[0].Page)
	}
	row[9] = fmt.Sprintf("%d", len(v.Evidence))
	row[10] = v.Notes
	return row
}

func formatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteCSV renders the full register with BOM and header to w.
func WriteCSV(w io.Writer, verdicts []domain.FinalVerdict) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := NewWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteVerdicts(verdicts); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the register as indented JSON, non-ASCII intact.
func WriteJSON(w io.Writer, verdicts []domain.FinalVerdict) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(verdicts)
}
