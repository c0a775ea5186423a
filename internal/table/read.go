package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadOptions control how a file is turned into a Frame.
type ReadOptions struct {

	// If set, this column is moved out of the data and used as the
	// row labels.
	IndexCol string

	// The worksheet to read from a workbook.  The first sheet is used
	// when empty.
	Sheet string
}

// ReadFile reads a table from an .xlsx workbook or a .csv file.  The
// first row holds the column names.
func ReadFile(path string, opts *ReadOptions) (*Frame, error) {

	if opts == nil {
		opts = &ReadOptions{}
	}

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, opts.Sheet)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("table: unsupported file type '%s'", ext)
	}
	if err != nil {
		return nil, err
	}

	f, err := fromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("table: %s: %w", path, err)
	}

	if opts.IndexCol != "" {
		return f.SetIndex(opts.IndexCol)
	}

	return f, nil
}

func readXLSX(path, sheet string) ([][]string, error) {

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}

	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("table: read sheet '%s' of %s: %w", sheet, path, err)
	}

	return rows, nil
}

func readCSV(path string) ([][]string, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}
	defer fid.Close()

	r := csv.NewReader(fid)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table: read %s: %w", path, err)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return rows, nil
}

// fromRows builds a frame from a header row followed by data rows.
// Short rows are padded with empty cells, and trailing blank rows are
// ignored.
func fromRows(rows [][]string) (*Frame, error) {

	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	names := make([]string, len(rows[0]))
	for j, na := range rows[0] {
		names[j] = strings.TrimSpace(na)
		if names[j] == "" {
			return nil, fmt.Errorf("column %d has no name", j+1)
		}
	}

	body := rows[1:]
	for len(body) > 0 && blank(body[len(body)-1]) {
		body = body[:len(body)-1]
	}

	cols := make([][]string, len(names))
	for j := range cols {
		cols[j] = make([]string, len(body))
	}
	for i, row := range body {
		if len(row) > len(names) && !blank(row[len(names):]) {
			return nil, fmt.Errorf("row %d has %d cells for %d columns", i+2, len(row), len(names))
		}
		for j := range names {
			if j < len(row) {
				cols[j][i] = row[j]
			}
		}
	}

	return NewFrame(names, cols)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteFile writes the frame, with its index column first if it has
// one, to an .xlsx or .csv file.
func WriteFile(path string, f *Frame) error {

	rows := f.rows()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return writeXLSX(path, rows)
	case ".csv":
		return writeCSV(path, rows)
	default:
		return fmt.Errorf("table: unsupported file type '%s'", ext)
	}
}

func (f *Frame) rows() [][]string {

	var header []string
	if f.index != nil {
		header = append(header, f.indexName)
	}
	header = append(header, f.names...)

	rows := [][]string{header}
	for i := 0; i < f.nrow; i++ {
		var row []string
		if f.index != nil {
			row = append(row, f.index[i])
		}
		for _, col := range f.cols {
			row = append(row, col[i])
		}
		rows = append(rows, row)
	}

	return rows
}

func writeXLSX(path string, rows [][]string) error {

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			// Numbers are stored as numeric cells.
			if x, err := strconv.ParseFloat(v, 64); err == nil && i > 0 {
				cells[j] = x
			} else {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("table: write row %d: %w", i+1, err)
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("table: save %s: %w", path, err)
	}

	return nil
}

func writeCSV(path string, rows [][]string) error {

	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("table: create %s: %w", path, err)
	}

	w := csv.NewWriter(fid)
	if err := w.WriteAll(rows); err != nil {
		fid.Close()
		return fmt.Errorf("table: write %s: %w", path, err)
	}

	return fid.Close()
}
