// Package statmodel holds the pieces shared by the regression models in
// this module: column-oriented datasets, parameter values, fitted
// results, and the plain text summary table.
package statmodel

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dtype is the storage type of a data column.
type Dtype = float64

// HessType indicates the type of a Hessian matrix for a log-likelihood.
type HessType int

// ObsHess (observed Hessian) and ExpHess (expected Hessian) are the two type of log-likelihood
// Hessian matrices
const (
	ObsHess HessType = iota
	ExpHess
)

// ErrSingular is returned when the Hessian of a fitted model cannot be inverted.
var ErrSingular = errors.New("statmodel: Hessian is singular")

// Dataset is a collection of equal length, named data columns.
type Dataset struct {
	data  [][]Dtype
	names []string
}

// NewDataset returns a dataset holding the given columns.  data[j] is
// the column named names[j].  The columns are not copied.
func NewDataset(data [][]Dtype, names []string) Dataset {

	if len(data) != len(names) {
		msg := fmt.Sprintf("NewDataset: %d columns but %d names", len(data), len(names))
		panic(msg)
	}
	for j := range data {
		if len(data[j]) != len(data[0]) {
			msg := fmt.Sprintf("NewDataset: column '%s' has length %d, expected %d",
				names[j], len(data[j]), len(data[0]))
			panic(msg)
		}
	}

	return Dataset{
		data:  data,
		names: names,
	}
}

// Data returns the data columns.
func (ds Dataset) Data() [][]Dtype {
	return ds.data
}

// Names returns the column names.
func (ds Dataset) Names() []string {
	return ds.names
}

// NumObs returns the number of rows.
func (ds Dataset) NumObs() int {
	if len(ds.data) == 0 {
		return 0
	}
	return len(ds.data[0])
}

// Pos returns the position of the named column, or -1 if it is not present.
func (ds Dataset) Pos(name string) int {
	for j, na := range ds.names {
		if na == name {
			return j
		}
	}
	return -1
}

// Column returns the named column, or nil if it is not present.
func (ds Dataset) Column(name string) []Dtype {
	j := ds.Pos(name)
	if j == -1 {
		return nil
	}
	return ds.data[j]
}

// Positions maps each name to its column position.  An error is
// returned naming the first variable that is not in the dataset.
func (ds Dataset) Positions(names []string) ([]int, error) {
	var pos []int
	for _, na := range names {
		j := ds.Pos(na)
		if j == -1 {
			return nil, fmt.Errorf("variable '%s' not found in dataset", na)
		}
		pos = append(pos, j)
	}
	return pos, nil
}

// Parameter is the parameter of a model.
type Parameter interface {

	// Get the coefficients of the covariates in the linear
	// predictor.  The returned value should be a reference so
	// that changes to it lead to corresponding changes in the
	// parameter itself.
	GetCoeff() []float64

	// Set the coefficients of the covariates in the linear
	// predictor.
	SetCoeff([]float64)

	// Clone creates a deep copy of the Parameter struct.
	Clone() Parameter
}

// RegFitter is a regression model that can be fit to data.
type RegFitter interface {

	// Number of parameters in the model.
	NumParams() int

	// Number of observations in the data set
	NumObs() int

	// Positions of the covariates
	Xpos() []int

	Dataset() [][]Dtype

	// The log-likelihood function
	LogLike(Parameter, bool) float64

	// The score vector
	Score(Parameter, []float64)

	// The Hessian matrix
	Hessian(Parameter, HessType, []float64)
}

// BaseResultser is a fitted model that can produce results (parameter estimates, etc.).
type BaseResultser interface {
	Model() RegFitter
	Names() []string
	LogLike() float64
	Params() []float64
	VCov() []float64
	StdErr() []float64
	ZScores() []float64
	PValues() []float64
}

// BaseResults contains the results after fitting a model to data.
type BaseResults struct {
	model   RegFitter
	loglike float64
	params  []float64
	xnames  []string
	vcov    []float64
	stderr  []float64
	zscores []float64
	pvalues []float64
}

// NewBaseResults returns a BaseResults corresponding to the given fitted model.
func NewBaseResults(model RegFitter, loglike float64, params []float64, xnames []string, vcov []float64) BaseResults {
	return BaseResults{
		model:   model,
		loglike: loglike,
		params:  params,
		xnames:  xnames,
		vcov:    vcov,
	}
}

// Model produces the model value used to produce the results.
func (rslt *BaseResults) Model() RegFitter {
	return rslt.model
}

// FittedValues returns the fitted linear predictor for a regression
// model.  If da is nil, the fitted values are based on the data used
// to fit the model.  Otherwise the provided columns are used, so they
// must be laid out the same way as the training data.
func (rslt *BaseResults) FittedValues(da [][]Dtype) ([]float64, error) {

	xpos := rslt.model.Xpos()

	if da == nil {
		// Use training data to get the fitted values
		da = rslt.model.Dataset()
	}

	if len(da) != len(rslt.model.Dataset()) {
		return nil, fmt.Errorf("data has incorrect number of columns, %d != %d",
			len(da), len(rslt.model.Dataset()))
	}

	var n int
	if len(xpos) > 0 {
		n = len(da[xpos[0]])
	}

	fv := make([]float64, n)
	for k, j := range xpos {
		z := da[j]
		for i := range z {
			fv[i] += rslt.params[k] * float64(z[i])
		}
	}

	return fv, nil
}

// Names returns the covariate names for the variables in the model.
func (rslt *BaseResults) Names() []string {
	return rslt.xnames
}

// Params returns the point estimates for the parameters in the model.
func (rslt *BaseResults) Params() []float64 {
	return rslt.params
}

// VCov returns the sampling variance/covariance model for the parameters in the model.
// The matrix is vetorized to one dimension.
func (rslt *BaseResults) VCov() []float64 {
	return rslt.vcov
}

// LogLike returns the log-likelihood or objective function value for the fitted model.
func (rslt *BaseResults) LogLike() float64 {
	return rslt.loglike
}

// StdErr returns the standard errors for the parameters in the model.
func (rslt *BaseResults) StdErr() []float64 {

	// No vcov, no standard error
	if rslt.vcov == nil {
		return nil
	}

	if rslt.stderr != nil {
		return rslt.stderr
	}

	p := len(rslt.params)
	rslt.stderr = make([]float64, p)
	for i := range rslt.stderr {
		rslt.stderr[i] = math.Sqrt(rslt.vcov[i*p+i])
	}

	return rslt.stderr
}

// ZScores returns the Z-scores (the parameter estimates divided by the standard errors).
func (rslt *BaseResults) ZScores() []float64 {

	// No vcov, no z-scores
	if rslt.vcov == nil {
		return nil
	}

	if rslt.zscores != nil {
		return rslt.zscores
	}

	std := rslt.StdErr()
	rslt.zscores = make([]float64, len(std))
	for i := range std {
		rslt.zscores[i] = rslt.params[i] / std[i]
	}

	return rslt.zscores
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// PValues returns the p-values for the null hypothesis that each parameter's population
// value is equal to zero.
func (rslt *BaseResults) PValues() []float64 {

	// No vcov, no p-values
	if rslt.vcov == nil {
		return nil
	}

	if rslt.pvalues != nil {
		return rslt.pvalues
	}

	zs := rslt.ZScores()
	rslt.pvalues = make([]float64, len(zs))
	for i, z := range zs {
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(z))
	}

	return rslt.pvalues
}

// ConfInt returns lower and upper Wald confidence limits for the
// parameters at the given coverage level, e.g. 0.95.
func (rslt *BaseResults) ConfInt(level float64) ([]float64, []float64) {

	std := rslt.StdErr()
	if std == nil {
		return nil, nil
	}

	q := NormalQuantile(level)
	lcb := make([]float64, len(std))
	ucb := make([]float64, len(std))
	for i, s := range std {
		lcb[i] = rslt.params[i] - q*s
		ucb[i] = rslt.params[i] + q*s
	}

	return lcb, ucb
}

// NormalQuantile returns the two-sided standard normal critical value
// for the given coverage level, e.g. 1.959964 for 0.95.
func NormalQuantile(level float64) float64 {
	return distuv.UnitNormal.Quantile(1 - (1-level)/2)
}

// GetVcov returns the sampling variance/covariance matrix for the parameter estimates.
func GetVcov(model RegFitter, params Parameter) ([]float64, error) {
	nvar := model.NumParams()
	n2 := nvar * nvar
	hess := make([]float64, n2)
	model.Hessian(params, ExpHess, hess)
	hmat := mat.NewDense(nvar, nvar, hess)
	hessi := make([]float64, n2)
	himat := mat.NewDense(nvar, nvar, hessi)
	if err := himat.Inverse(hmat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	himat.Scale(-1, himat)

	return hessi, nil
}

// SummaryTable holds the summary values for a fitted model.
type SummaryTable struct {

	// Title
	Title string

	// Column names
	ColNames []string

	// Formatters for the column values
	ColFmt []Fmter

	// Cols[j] is the j^th column.  It's concrete type should
	// be an array, e.g. of numbers or strings.
	Cols []interface{}

	// Values at the top of the summary
	Top []string

	// Messages displayed below the table
	Msg []string

	// Total width of the table
	tw int
}

// Draw a line constructed of the given character filling the width of
// the table.
func (s *SummaryTable) line(c string) string {
	return strings.Repeat(c, s.tw) + "\n"
}

// cleanTop ensures that all fields in the top part of the table have
// the same width.
func (s *SummaryTable) cleanTop() {

	if len(s.Top) == 0 {
		return
	}

	var w int
	for _, x := range s.Top {
		if runewidth.StringWidth(x) > w {
			w = runewidth.StringWidth(x)
		}
	}

	for i, x := range s.Top {
		s.Top[i] = runewidth.FillRight(x, w)
	}
}

// Construct the upper part of the table, which contains summary
// values for the model.
func (s *SummaryTable) top(gap int) string {

	w := []int{0, 0}

	for j, x := range s.Top {
		if runewidth.StringWidth(x) > w[j%2] {
			w[j%2] = runewidth.StringWidth(x)
		}
	}

	var b bytes.Buffer

	for j, x := range s.Top {
		b.WriteString(runewidth.FillRight(x, w[j%2]))
		if j%2 == 1 {
			b.WriteString("\n")
		} else {
			b.WriteString(strings.Repeat(" ", gap))
		}
	}

	if len(s.Top)%2 == 1 {
		b.WriteString("\n")
	}

	return b.String()
}

// Fmter formats the elements of an array of values.
type Fmter func(interface{}, string) []string

// FmtStrings is a Fmter for []string columns, left aligned to a common width.
func FmtStrings(x interface{}, h string) []string {
	y := x.([]string)
	m := runewidth.StringWidth(h)
	for i := range y {
		if runewidth.StringWidth(y[i]) > m {
			m = runewidth.StringWidth(y[i])
		}
	}
	var z []string
	for i := range y {
		z = append(z, runewidth.FillRight(y[i], m))
	}
	return z
}

// FmtFloats is a Fmter for []float64 columns.
func FmtFloats(x interface{}, h string) []string {
	y := x.([]float64)
	var s []string
	for i := range y {
		s = append(s, fmt.Sprintf("%10.4f", y[i]))
	}
	return s
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	s.cleanTop()

	var tab [][]string
	var wx []int
	for j, c := range s.Cols {
		u := s.ColFmt[j](c, s.ColNames[j])
		tab = append(tab, u)
		w := runewidth.StringWidth(s.ColNames[j])
		for _, v := range u {
			if runewidth.StringWidth(v) > w {
				w = runewidth.StringWidth(v)
			}
		}
		wx = append(wx, w)
	}

	gap := 10

	// Get the total width of the table
	s.tw = 0
	for _, w := range wx {
		s.tw += w
	}
	if s.tw < runewidth.StringWidth(s.Title) {
		s.tw = runewidth.StringWidth(s.Title)
	}
	if len(s.Top) > 0 && s.tw < gap+2*runewidth.StringWidth(s.Top[0]) {
		s.tw = gap + 2*runewidth.StringWidth(s.Top[0])
	}

	var buf bytes.Buffer

	// Center the title
	k := runewidth.StringWidth(s.Title)
	kr := (s.tw - k) / 2
	if kr < 0 {
		kr = 0
	}
	buf.WriteString(strings.Repeat(" ", kr))
	buf.WriteString(s.Title)
	buf.WriteString("\n")

	buf.WriteString(s.line("="))
	if len(s.Top) > 0 {
		buf.WriteString(s.top(gap))
		buf.WriteString(s.line("-"))
	}

	for j, c := range s.ColNames {
		buf.WriteString(runewidth.FillLeft(c, wx[j]))
	}
	buf.WriteString("\n")
	buf.WriteString(s.line("-"))

	if len(tab) > 0 {
		for i := 0; i < len(tab[0]); i++ {
			for j := 0; j < len(tab); j++ {
				buf.WriteString(runewidth.FillLeft(tab[j][i], wx[j]))
			}
			buf.WriteString("\n")
		}
	}
	buf.WriteString(s.line("-"))

	for _, msg := range s.Msg {
		buf.WriteString(msg + "\n")
	}

	return buf.String()
}
