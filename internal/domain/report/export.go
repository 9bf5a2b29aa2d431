package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/Avii12105/medlab/internal/domain/catalog"
)

const exportSheet = "Report"

var exportHeaders = []string{"Test", "Result", "Reference Range", "Unit", "Status"}

// referenceRange renders the band an item was judged against, e.g. "4 - 11",
// ">= 4", or the permitted values of a textual test.
func referenceRange(d *ItemDetail) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	switch {
	case d.NormalMin != nil && d.NormalMax != nil:
		return f(*d.NormalMin) + " - " + f(*d.NormalMax)
	case d.NormalMin != nil:
		return ">= " + f(*d.NormalMin)
	case d.NormalMax != nil:
		return "<= " + f(*d.NormalMax)
	case len(d.NormalValues) > 0:
		return strings.Join(d.NormalValues, ", ")
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteXLSX renders a report as a single-sheet workbook: a short header
// block with the patient and date, then one row per item.
func WriteXLSX(w io.Writer, d *Detail) error {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", exportSheet)

	file.SetCellValue(exportSheet, "A1", "Patient")
	file.SetCellValue(exportSheet, "B1", deref(d.PatientName))
	file.SetCellValue(exportSheet, "A2", "Report ID")
	file.SetCellValue(exportSheet, "B2", d.ID.String())
	file.SetCellValue(exportSheet, "A3", "Date")
	file.SetCellValue(exportSheet, "B3", d.CreatedAt.Format("2006-01-02 15:04"))

	const headerRow = 5
	for i, h := range exportHeaders {
		file.SetCellValue(exportSheet, fmt.Sprintf("%c%d", 'A'+i, headerRow), h)
	}

	for i, it := range d.Items {
		row := headerRow + 1 + i
		file.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), deref(it.TestName))
		if it.Value.Kind == catalog.ResultNumeric {
			file.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), it.Value.Number)
		} else {
			file.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), it.Value.Text)
		}
		file.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), referenceRange(it))
		file.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), deref(it.Unit))
		file.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), string(it.Status))
	}

	file.SetColWidth(exportSheet, "A", "A", 28)
	file.SetColWidth(exportSheet, "C", "C", 22)

	return file.Write(w)
}
