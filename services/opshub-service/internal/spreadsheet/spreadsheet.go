// Package spreadsheet reads and writes the tabular files used for imports and exports.
package spreadsheet

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Format names accepted by export endpoints
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Row is one data row with its 1-based line number in the source file
type Row struct {
	Line  int
	Cells []string
}

// Sheet is a named table written to a workbook
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// FormatFromFileName returns the format implied by the file extension, or "" when unsupported
func FormatFromFileName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX
	}
	return ""
}

// WriteCSV writes header and rows. Fields holding a comma, quote or newline are quoted
// with inner quotes doubled.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write csv rows")
	}
	return nil
}

// ReadCSV returns the data rows after the header. Quoted fields may contain commas,
// doubled quotes and newlines. Blank lines are skipped.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []Row
	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		if first {
			first = false
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, Row{Line: line, Cells: trimCells(record)})
	}
	return rows, nil
}

// WriteXLSX writes one worksheet per sheet
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return errors.Wrap(err, "rename sheet")
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return errors.Wrapf(err, "create sheet %s", sheet.Name)
		}

		if err := writeRow(f, sheet.Name, 1, sheet.Header); err != nil {
			return err
		}
		for j, row := range sheet.Rows {
			if err := writeRow(f, sheet.Name, j+2, row); err != nil {
				return err
			}
		}
	}

	return errors.Wrap(f.Write(w), "write workbook")
}

// ReadXLSX returns the data rows after the header of the first worksheet
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "read worksheet")
	}

	var rows []Row
	for i, record := range records {
		if i == 0 || isBlank(record) {
			continue
		}
		rows = append(rows, Row{Line: i + 1, Cells: trimCells(record)})
	}
	return rows, nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &row), "write row %d", rowNum)
}

func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
