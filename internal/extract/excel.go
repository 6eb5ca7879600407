package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/xuri/excelize/v2"
)

// partitionExcel emits each sheet name as a title followed by one body element per non-empty row.
func partitionExcel(content []byte) ([]models.RawElement, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var out elementList
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		out.add(models.KindTitle, sheet)
		for _, row := range rows {
			out.add(models.KindBody, strings.Join(row, "\t"))
		}
	}
	return out, nil
}
