// Package table loads rectangular data from spreadsheet and CSV files
// and prepares it for model fitting.  A Frame holds the raw cell text
// of each column; conversion to numbers happens when a Dataset is
// requested, so encoding steps such as Map and OneHot work on labels.
package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dexinGONG/biostat/statmodel"
)

// Frame is an ordered set of named columns of equal length.  Frames are
// never modified in place: every transform returns a new Frame that may
// share columns with its source.
type Frame struct {
	names []string
	cols  [][]string
	nrow  int

	// Optional row labels taken from an index column.
	indexName string
	index     []string
}

// NewFrame returns a frame holding the given columns.
func NewFrame(names []string, cols [][]string) (*Frame, error) {

	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d names for %d columns", len(names), len(cols))
	}

	seen := make(map[string]bool)
	for j, na := range names {
		if seen[na] {
			return nil, fmt.Errorf("table: duplicate column name '%s'", na)
		}
		seen[na] = true
		if len(cols[j]) != len(cols[0]) {
			return nil, fmt.Errorf("table: column '%s' has %d rows, column '%s' has %d",
				na, len(cols[j]), names[0], len(cols[0]))
		}
	}

	f := &Frame{names: names, cols: cols}
	if len(cols) > 0 {
		f.nrow = len(cols[0])
	}

	return f, nil
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	return f.names
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return f.nrow
}

// Index returns the row labels, or nil if the frame has no index.
func (f *Frame) Index() []string {
	return f.index
}

// IndexName returns the name of the index column, if any.
func (f *Frame) IndexName() string {
	return f.indexName
}

func (f *Frame) pos(name string) int {
	for j, na := range f.names {
		if na == name {
			return j
		}
	}
	return -1
}

// Column returns the cells of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	j := f.pos(name)
	if j == -1 {
		return nil, fmt.Errorf("table: column '%s' not found", name)
	}
	return f.cols[j], nil
}

func (f *Frame) with(names []string, cols [][]string) *Frame {
	return &Frame{
		names:     names,
		cols:      cols,
		nrow:      f.nrow,
		indexName: f.indexName,
		index:     f.index,
	}
}

// SetIndex moves the named column out of the data and uses it as the
// row labels.
func (f *Frame) SetIndex(name string) (*Frame, error) {
	j := f.pos(name)
	if j == -1 {
		return nil, fmt.Errorf("table: index column '%s' not found", name)
	}
	g, err := f.Drop(name)
	if err != nil {
		return nil, err
	}
	g.indexName = name
	g.index = f.cols[j]
	return g, nil
}

// Drop returns a frame without the named column.
func (f *Frame) Drop(name string) (*Frame, error) {

	j := f.pos(name)
	if j == -1 {
		return nil, fmt.Errorf("table: cannot drop '%s': column not found", name)
	}

	names := make([]string, 0, len(f.names)-1)
	cols := make([][]string, 0, len(f.cols)-1)
	names = append(append(names, f.names[:j]...), f.names[j+1:]...)
	cols = append(append(cols, f.cols[:j]...), f.cols[j+1:]...)

	return f.with(names, cols), nil
}

// Select returns a frame holding only the named columns, in the given
// order.
func (f *Frame) Select(names ...string) (*Frame, error) {

	cols := make([][]string, len(names))
	for k, na := range names {
		j := f.pos(na)
		if j == -1 {
			return nil, fmt.Errorf("table: cannot select '%s': column not found", na)
		}
		cols[k] = f.cols[j]
	}

	return f.with(append([]string(nil), names...), cols), nil
}

// Map returns a frame in which the cells of the named column are
// replaced through mapping.  A cell with no entry in mapping is an
// error.
func (f *Frame) Map(name string, mapping map[string]string) (*Frame, error) {

	j := f.pos(name)
	if j == -1 {
		return nil, fmt.Errorf("table: cannot map '%s': column not found", name)
	}

	src := f.cols[j]
	dst := make([]string, len(src))
	for i, v := range src {
		u, ok := mapping[strings.TrimSpace(v)]
		if !ok {
			return nil, fmt.Errorf("table: column '%s' row %d: value '%s' has no mapping", name, i+1, v)
		}
		dst[i] = u
	}

	cols := append([][]string(nil), f.cols...)
	cols[j] = dst

	return f.with(append([]string(nil), f.names...), cols), nil
}

// Levels returns the distinct values of the named column, sorted
// numerically if every value is a number and lexically otherwise.
func (f *Frame) Levels(name string) ([]string, error) {

	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var levels []string
	for _, v := range col {
		v = strings.TrimSpace(v)
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}

	vals := make([]float64, len(levels))
	numeric := true
	for i, v := range levels {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		vals[i] = x
	}

	if numeric {
		sort.Sort(byValue{levels: levels, vals: vals})
	} else {
		sort.Strings(levels)
	}

	return levels, nil
}

type byValue struct {
	levels []string
	vals   []float64
}

func (a byValue) Len() int           { return len(a.levels) }
func (a byValue) Less(i, j int) bool { return a.vals[i] < a.vals[j] }
func (a byValue) Swap(i, j int) {
	a.levels[i], a.levels[j] = a.levels[j], a.levels[i]
	a.vals[i], a.vals[j] = a.vals[j], a.vals[i]
}

// OneHot returns a frame with one indicator column per level of the
// named column appended, named prefix_<level> and holding "1" where the
// row has that level and "0" elsewhere.  The source column is kept.
func (f *Frame) OneHot(name, prefix string) (*Frame, error) {

	levels, err := f.Levels(name)
	if err != nil {
		return nil, fmt.Errorf("table: cannot encode '%s': %w", name, err)
	}
	col, _ := f.Column(name)

	names := append([]string(nil), f.names...)
	cols := append([][]string(nil), f.cols...)
	for _, lv := range levels {
		na := prefix + "_" + lv
		if f.pos(na) != -1 {
			return nil, fmt.Errorf("table: indicator column '%s' already exists", na)
		}
		ind := make([]string, len(col))
		for i, v := range col {
			if strings.TrimSpace(v) == lv {
				ind[i] = "1"
			} else {
				ind[i] = "0"
			}
		}
		names = append(names, na)
		cols = append(cols, ind)
	}

	return f.with(names, cols), nil
}

// Float returns the named column converted to numbers.
func (f *Frame) Float(name string) ([]float64, error) {

	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}

	x := make([]float64, len(col))
	for i, v := range col {
		x[i], err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("table: column '%s' row %d: '%s' is not a number", name, i+1, v)
		}
	}

	return x, nil
}

// Dataset converts the named columns, or all columns if no names are
// given, to a numeric dataset.
func (f *Frame) Dataset(names ...string) (statmodel.Dataset, error) {

	if len(names) == 0 {
		names = f.names
	}

	data := make([][]statmodel.Dtype, len(names))
	for j, na := range names {
		x, err := f.Float(na)
		if err != nil {
			return statmodel.Dataset{}, err
		}
		data[j] = x
	}

	return statmodel.NewDataset(data, append([]string(nil), names...)), nil
}
