package glm

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/dexinGONG/biostat/statmodel"
)

// ErrNotFitted is returned when a LogisticRegression is used before Fit.
var ErrNotFitted = errors.New("glm: logistic regression has not been fit")

// LogisticConfig holds the settings of a penalized logistic regression
// classifier.  The objective is 0.5*|w|^2 + C*sum(logloss) when Penalty
// is "l2", and sum(logloss) when it is "none".  The intercept is never
// penalized.
type LogisticConfig struct {

	// Either "l2" or "none".
	Penalty string

	// Inverse of the regularization strength, must be positive.
	C float64

	// If true an intercept is added to the model.
	FitIntercept bool

	// Maximum number of optimizer iterations.
	MaxIter int

	// Gradient norm tolerance for stopping.
	Tol float64

	// One of "lbfgs", "bfgs" or "newton-cholesky".  The quasi-Newton
	// solvers work on standardized features and map the solution back
	// to the original scale; newton-cholesky runs penalized IRLS on the
	// features as given.
	Solver string

	// If not nil, fitting progress is logged here.
	Log *zap.Logger
}

// DefaultLogisticConfig returns the default classifier settings.
func DefaultLogisticConfig() *LogisticConfig {
	return &LogisticConfig{
		Penalty:      "l2",
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
		Solver:       "lbfgs",
	}
}

// Param is one named setting of a classifier.
type Param struct {
	Name  string
	Value interface{}
}

// LogisticRegression is a binary classifier fit by penalized maximum
// likelihood.
type LogisticRegression struct {
	config LogisticConfig

	classes      []float64
	featureNames []string
	intercept    float64
	coef         []float64
	iterations   int
	converged    bool
	fitted       bool
}

// The internal names used for the outcome and intercept columns.
const (
	lrOutcome   = "_outcome"
	lrIntercept = "_intercept"
)

// NewLogisticRegression returns an unfitted classifier.  A nil config
// gives the defaults.
func NewLogisticRegression(config *LogisticConfig) (*LogisticRegression, error) {

	if config == nil {
		config = DefaultLogisticConfig()
	}
	c := *config

	switch c.Penalty {
	case "l2", "none":
	default:
		return nil, fmt.Errorf("penalty '%s' not supported, use l2 or none", c.Penalty)
	}
	switch c.Solver {
	case "lbfgs", "bfgs", "newton-cholesky":
	default:
		return nil, fmt.Errorf("solver '%s' not supported, use lbfgs, bfgs or newton-cholesky", c.Solver)
	}
	if c.Penalty == "l2" && !(c.C > 0) {
		return nil, fmt.Errorf("C must be positive, got %v", c.C)
	}
	if c.MaxIter <= 0 {
		c.MaxIter = 100
	}
	if c.Tol <= 0 {
		c.Tol = 1e-4
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}

	return &LogisticRegression{config: c}, nil
}

// Params returns the classifier settings in a fixed order.
func (lr *LogisticRegression) Params() []Param {
	return []Param{
		{"C", lr.config.C},
		{"fit_intercept", lr.config.FitIntercept},
		{"max_iter", lr.config.MaxIter},
		{"penalty", lr.config.Penalty},
		{"solver", lr.config.Solver},
		{"tol", lr.config.Tol},
	}
}

// Fit estimates the classifier from the features in X and the labels
// in y.  y must contain exactly two distinct values; the larger one is
// the positive class.
func (lr *LogisticRegression) Fit(X statmodel.Dataset, y []float64) error {

	n := X.NumObs()
	if len(y) != n {
		return fmt.Errorf("X has %d rows but y has %d values", n, len(y))
	}
	if len(X.Names()) == 0 {
		return errors.New("X has no features")
	}
	for _, na := range X.Names() {
		if na == lrOutcome || na == lrIntercept {
			return fmt.Errorf("feature name '%s' is reserved", na)
		}
	}

	classes := distinct(y)
	if len(classes) != 2 {
		return fmt.Errorf("logistic regression needs exactly 2 classes, got %d", len(classes))
	}

	yb := make([]float64, n)
	for i, v := range y {
		if v == classes[1] {
			yb[i] = 1
		}
	}

	feat := X.Data()
	var sc *scaling
	if lr.config.Solver != "newton-cholesky" {
		sc = standardize(feat, lr.config.FitIntercept)
		feat = sc.data
	}

	cols := [][]statmodel.Dtype{yb}
	names := []string{lrOutcome}
	var xnames []string
	if lr.config.FitIntercept {
		icept := make([]float64, n)
		for i := range icept {
			icept[i] = 1
		}
		cols = append(cols, icept)
		names = append(names, lrIntercept)
		xnames = append(xnames, lrIntercept)
	}
	cols = append(cols, feat...)
	names = append(names, X.Names()...)
	xnames = append(xnames, X.Names()...)

	config := &Config{
		Family:   NewFamily(BinomialFamily),
		Link:     NewLink(LogitLink),
		SkipNull: true,
		Log:      lr.config.Log,
	}

	switch lr.config.Solver {
	case "newton-cholesky":
		config.FitMethod = "IRLS"
		config.MaxIter = lr.config.MaxIter
		config.DevTol = lr.config.Tol * lr.config.Tol
	default:
		var method optimize.Method = &optimize.LBFGS{}
		if lr.config.Solver == "bfgs" {
			method = &optimize.BFGS{}
		}
		config.FitMethod = "gradient"
		config.OptMethod = method
		config.OptSettings = &optimize.Settings{
			GradientThreshold: lr.config.Tol,
			MajorIterations:   lr.config.MaxIter,
		}
	}

	if lr.config.Penalty == "l2" {
		// nobs * v * w^2 / 2 = w^2 / (2C).  A standardized feature
		// x/s has coefficient s*w, so its weight is divided by s^2.
		config.L2Penalty = make(map[string]float64)
		for j, na := range X.Names() {
			v := 1 / (lr.config.C * float64(n))
			if sc != nil {
				v /= sc.scale[j] * sc.scale[j]
			}
			config.L2Penalty[na] = v
		}
	}

	model, err := NewGLM(statmodel.NewDataset(cols, names), lrOutcome, xnames, config)
	if err != nil {
		return err
	}

	rslt, err := model.Fit()
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}

	params := append([]float64(nil), rslt.Params()...)
	lr.intercept = 0
	if lr.config.FitIntercept {
		lr.intercept = params[0]
		params = params[1:]
	}
	if sc != nil {
		lr.intercept = sc.unscale(lr.intercept, params)
	}
	lr.coef = params
	lr.classes = classes
	lr.featureNames = append([]string(nil), X.Names()...)
	lr.iterations = rslt.Iterations()
	lr.converged = rslt.Converged()
	lr.fitted = true

	lr.config.Log.Debug("logistic regression fit",
		zap.Int("iterations", lr.iterations), zap.Bool("converged", lr.converged))

	return nil
}

// scaling holds features transformed to (x - center) / scale.
type scaling struct {
	data   [][]float64
	center []float64
	scale  []float64
}

// standardize returns the standardized columns of feat.  Columns are
// centered only when an intercept absorbs the shift.  Constant columns
// keep scale 1.
func standardize(feat [][]float64, center bool) *scaling {

	sc := &scaling{
		data:   make([][]float64, len(feat)),
		center: make([]float64, len(feat)),
		scale:  make([]float64, len(feat)),
	}

	for j, x := range feat {
		mn, sd := stat.MeanStdDev(x, nil)
		if !center {
			mn = 0
		}
		if !(sd > 0) || math.IsNaN(sd) {
			sd = 1
			if center {
				mn = 0
			}
		}
		z := make([]float64, len(x))
		for i, v := range x {
			z[i] = (v - mn) / sd
		}
		sc.data[j] = z
		sc.center[j] = mn
		sc.scale[j] = sd
	}

	return sc
}

// unscale converts coef in place from the standardized to the original
// feature scale and returns the matching intercept.
func (sc *scaling) unscale(icept float64, coef []float64) float64 {
	for j := range coef {
		coef[j] /= sc.scale[j]
		icept -= coef[j] * sc.center[j]
	}
	return icept
}

func distinct(y []float64) []float64 {
	seen := make(map[float64]bool)
	var u []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			u = append(u, v)
		}
	}
	sort.Float64s(u)
	return u
}

// Classes returns the sorted class labels.
func (lr *LogisticRegression) Classes() []float64 {
	return lr.classes
}

// NumFeatures returns the number of features seen during Fit.
func (lr *LogisticRegression) NumFeatures() int {
	return len(lr.featureNames)
}

// FeatureNames returns the names of the features seen during Fit.
func (lr *LogisticRegression) FeatureNames() []string {
	return lr.featureNames
}

// Intercept returns the fitted intercept, 0 if no intercept is fit.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept
}

// Coef returns the fitted feature coefficients.
func (lr *LogisticRegression) Coef() []float64 {
	return lr.coef
}

// Converged returns true if the optimizer converged.
func (lr *LogisticRegression) Converged() bool {
	return lr.converged
}

// decision returns the linear predictor for the rows of X.
func (lr *LogisticRegression) decision(X statmodel.Dataset) ([]float64, error) {

	if !lr.fitted {
		return nil, ErrNotFitted
	}

	pos, err := X.Positions(lr.featureNames)
	if err != nil {
		return nil, err
	}

	data := X.Data()
	lp := make([]float64, X.NumObs())
	for i := range lp {
		lp[i] = lr.intercept
	}
	for k, j := range pos {
		for i, x := range data[j] {
			lp[i] += lr.coef[k] * x
		}
	}

	return lp, nil
}

// PredictProba returns the class probabilities for each row of X, as
// pairs [P(class 0), P(class 1)].
func (lr *LogisticRegression) PredictProba(X statmodel.Dataset) ([][2]float64, error) {

	lp, err := lr.decision(X)
	if err != nil {
		return nil, err
	}

	pr := make([][2]float64, len(lp))
	for i, v := range lp {
		p := 1 / (1 + math.Exp(-v))
		pr[i] = [2]float64{1 - p, p}
	}

	return pr, nil
}

// Predict returns the predicted class label for each row of X.
func (lr *LogisticRegression) Predict(X statmodel.Dataset) ([]float64, error) {

	pr, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}

	yhat := make([]float64, len(pr))
	for i, p := range pr {
		yhat[i] = lr.classes[0]
		if p[1] > 0.5 {
			yhat[i] = lr.classes[1]
		}
	}

	return yhat, nil
}

// Score returns the fraction of rows of X whose label is predicted correctly.
func (lr *LogisticRegression) Score(X statmodel.Dataset, y []float64) (float64, error) {

	yhat, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(yhat) {
		return 0, fmt.Errorf("X has %d rows but y has %d values", len(yhat), len(y))
	}

	var c int
	for i := range y {
		if y[i] == yhat[i] {
			c++
		}
	}

	return float64(c) / float64(len(y)), nil
}
