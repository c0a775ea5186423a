// Package report renders the console output of the analysis pipelines:
// section headings, data tables and aligned key/value blocks.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

// Heading writes a title underlined to its display width.  Titles may
// hold wide characters, so the underline is measured in terminal cells
// rather than bytes.
func Heading(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", runewidth.StringWidth(title)))
}

// Float formats a number for a table cell.
func Float(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func cell(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		return Float(x)
	case []float64:
		s := make([]string, len(x))
		for i, u := range x {
			s[i] = Float(u)
		}
		return "[" + strings.Join(s, " ") + "]"
	}
	return v
}

// Table writes the rows under the header as a boxed table.  Every row
// must have one value per header entry.
func Table(w io.Writer, header []string, rows [][]interface{}) error {

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	hr := make(table.Row, len(header))
	for j, h := range header {
		hr[j] = h
	}
	t.AppendHeader(hr)

	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("report: row %d has %d values for %d headers", i, len(row), len(header))
		}
		r := make(table.Row, len(row))
		for j, v := range row {
			r[j] = cell(v)
		}
		t.AppendRow(r)
	}

	t.Render()

	return nil
}

// Columns writes equal length numeric columns as a table, one column
// per header entry.
func Columns(w io.Writer, header []string, cols ...[]float64) error {

	if len(header) != len(cols) {
		return fmt.Errorf("report: %d headers for %d columns", len(header), len(cols))
	}
	var n int
	if len(cols) > 0 {
		n = len(cols[0])
	}
	for j, c := range cols {
		if len(c) != n {
			return fmt.Errorf("report: column '%s' has %d values, expected %d", header[j], len(c), n)
		}
	}

	rows := make([][]interface{}, n)
	for i := range rows {
		rows[i] = make([]interface{}, len(cols))
		for j, c := range cols {
			rows[i][j] = c[i]
		}
	}
	return Table(w, header, rows)
}

// KV writes labelled values, one per line, with the values aligned.
func KV(w io.Writer, pairs ...interface{}) error {

	if len(pairs)%2 != 0 {
		return fmt.Errorf("report: odd number of key/value arguments")
	}

	var width int
	for i := 0; i < len(pairs); i += 2 {
		k := fmt.Sprint(pairs[i])
		if u := runewidth.StringWidth(k); u > width {
			width = u
		}
	}

	for i := 0; i < len(pairs); i += 2 {
		k := fmt.Sprint(pairs[i])
		_, _ = fmt.Fprintf(w, "%s  %v\n", runewidth.FillRight(k, width), cell(pairs[i+1]))
	}

	return nil
}
