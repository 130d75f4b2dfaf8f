package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

const issuesSheet = "Issues"

// WriteXLSX renders the issue register as a single-sheet workbook.
func WriteXLSX(w io.Writer, verdicts []domain.FinalVerdict) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", issuesSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(issuesSheet, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i := range verdicts {
		row := verdictToRow(&verdicts[i])
		for col, val := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(issuesSheet, cell, val); err != nil {
				return fmt.Errorf("writing row %d: %w", i+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
