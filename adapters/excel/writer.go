package excel

import (
	"fmt"
	"io"

	"metasens/domain/tidy"

	"github.com/xuri/excelize/v2"
)

// resultsSheet is the sheet name results tables are written to
const resultsSheet = "Sheet1"

// WriteTable writes a results table as an xlsx workbook to w. Columns come
// out in table order with a header row; nil cells stay empty. The caller
// owns the writer, so nothing here touches the filesystem.
func WriteTable(t *tidy.Table, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			cells[j] = row[col]
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, addr, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
