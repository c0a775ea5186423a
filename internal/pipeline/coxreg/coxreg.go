// Package coxreg relates the survival time of tumour patients to their
// treatment and baseline covariates with a proportional hazards model.
// A first fit uses every covariate in the table; a second uses a fixed
// subset chosen by the analyst.
package coxreg

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/dexinGONG/biostat/duration"
	"github.com/dexinGONG/biostat/internal/report"
	"github.com/dexinGONG/biostat/internal/table"
)

// Options names the input file, its columns and the recoding of the
// treatment group.
type Options struct {
	Path string

	// The identifier column, dropped before fitting.  Optional.
	IDCol string

	// The treatment column and the integer code of each of its labels.
	GroupCol string
	GroupMap map[string]string

	TimeCol  string
	EventCol string

	// Covariates of the second fit.
	Selected []string

	Ties duration.Ties

	Log *zap.Logger
}

// Result holds both fits.
type Result struct {
	Full     *duration.PHResults
	Selected *duration.PHResults

	// Number of records after the identifier column is dropped.
	NumRows int
}

// ParseTies returns the tie handling method named by s.
func ParseTies(s string) (duration.Ties, error) {
	switch strings.ToLower(s) {
	case "", "efron":
		return duration.Efron, nil
	case "breslow":
		return duration.Breslow, nil
	}
	return duration.Efron, fmt.Errorf("coxreg: unknown ties method '%s'", s)
}

// Load reads the patient table.
func Load(opts Options) (*table.Frame, error) {
	if opts.Log != nil {
		opts.Log.Info("reading data", zap.String("path", opts.Path))
	}
	f, err := table.ReadFile(opts.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("coxreg: %w", err)
	}
	return f, nil
}

// Prepare drops the identifier column and recodes the treatment
// column.
func Prepare(f *table.Frame, opts Options) (*table.Frame, error) {

	var err error
	if opts.IDCol != "" {
		f, err = f.Drop(opts.IDCol)
		if err != nil {
			return nil, fmt.Errorf("coxreg: %w", err)
		}
	}

	if opts.GroupCol != "" {
		f, err = f.Map(opts.GroupCol, opts.GroupMap)
		if err != nil {
			return nil, fmt.Errorf("coxreg: %w", err)
		}
	}

	return f, nil
}

// Covariates returns every column of f other than the time and event
// columns.
func Covariates(f *table.Frame, opts Options) []string {
	var x []string
	for _, na := range f.Names() {
		if na != opts.TimeCol && na != opts.EventCol {
			x = append(x, na)
		}
	}
	return x
}

// Fit fits a proportional hazards model of the time and event columns
// on the named covariates.
func Fit(f *table.Frame, covariates []string, opts Options) (*duration.PHResults, error) {

	names := append(append([]string(nil), covariates...), opts.TimeCol, opts.EventCol)
	data, err := f.Dataset(names...)
	if err != nil {
		return nil, fmt.Errorf("coxreg: %w", err)
	}

	config := duration.DefaultPHRegConfig()
	config.Ties = opts.Ties
	config.Log = opts.Log

	model, err := duration.NewPHReg(data, opts.TimeCol, opts.EventCol, covariates, config)
	if err != nil {
		return nil, fmt.Errorf("coxreg: %w", err)
	}

	rslt, err := model.Fit()
	if err != nil {
		return nil, fmt.Errorf("coxreg: %w", err)
	}

	return rslt, nil
}

// Run prepares the table, fits the full and the selected model, and
// writes both summaries to w.
func Run(w io.Writer, f *table.Frame, opts Options) (*Result, error) {

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	g, err := Prepare(f, opts)
	if err != nil {
		return nil, err
	}
	opts.Log.Debug("patient table prepared",
		zap.Int("rows", g.NumRows()), zap.Strings("columns", g.Names()))

	full, err := Fit(g, Covariates(g, opts), opts)
	if err != nil {
		return nil, fmt.Errorf("full model: %w", err)
	}
	report.Heading(w, "(1) Cox Regression Preliminary Analysis Results")
	_, _ = fmt.Fprint(w, full.Summary().String())

	sel, err := Fit(g, opts.Selected, opts)
	if err != nil {
		return nil, fmt.Errorf("selected model: %w", err)
	}
	report.Heading(w, "(2) Final Cox Regression Analysis Results for Factors Influencing Survival Time")
	_, _ = fmt.Fprint(w, sel.Summary().String())

	return &Result{Full: full, Selected: sel, NumRows: g.NumRows()}, nil
}
