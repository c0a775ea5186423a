// Package logistic relates the physical fitness class of surveyed
// adults to their sex, height and weight.  The same binary outcome is
// fit twice: by a binomial GLM with an explicit constant column, and by
// a penalized logistic classifier that adds its own intercept.
package logistic

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dexinGONG/biostat/glm"
	"github.com/dexinGONG/biostat/internal/report"
	"github.com/dexinGONG/biostat/internal/table"
	"github.com/dexinGONG/biostat/statmodel"
)

// Options names the input file and its columns.
type Options struct {
	Path     string
	IndexCol string

	// The binary outcome.
	Outcome string

	// The categorical sex column, expanded into <SexCol>_<level>
	// indicators before the covariates are selected.
	SexCol string

	Covariates []string

	Log *zap.Logger
}

// Result holds both fitted models.
type Result struct {
	GLM        *glm.GLMResults
	Classifier *glm.LogisticRegression

	// Training accuracy of the classifier.
	Accuracy float64
}

// Load reads the input table.
func Load(opts Options) (*table.Frame, error) {
	if opts.Log != nil {
		opts.Log.Info("reading data", zap.String("path", opts.Path))
	}
	f, err := table.ReadFile(opts.Path, &table.ReadOptions{IndexCol: opts.IndexCol})
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	return f, nil
}

// Prepare encodes the sex column and returns the covariates and the
// outcome.
func Prepare(f *table.Frame, opts Options) (statmodel.Dataset, []float64, error) {

	enc, err := f.OneHot(opts.SexCol, opts.SexCol)
	if err != nil {
		return statmodel.Dataset{}, nil, fmt.Errorf("logistic: %w", err)
	}

	X, err := enc.Dataset(opts.Covariates...)
	if err != nil {
		return statmodel.Dataset{}, nil, fmt.Errorf("logistic: %w", err)
	}

	y, err := enc.Float(opts.Outcome)
	if err != nil {
		return statmodel.Dataset{}, nil, fmt.Errorf("logistic: %w", err)
	}

	return X, y, nil
}

// FitGLM fits the binomial GLM with a constant column named "const".
func FitGLM(X statmodel.Dataset, y []float64, name string, log *zap.Logger) (*glm.GLMResults, error) {

	data := glm.AddConstant(X, "const")
	cols := append([][]statmodel.Dtype{y}, data.Data()...)
	names := append([]string{name}, data.Names()...)

	config := glm.DefaultConfig()
	config.Family = glm.NewFamily(glm.BinomialFamily)
	config.Log = log

	model, err := glm.NewGLM(statmodel.NewDataset(cols, names), name, data.Names(), config)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	rslt, err := model.Fit()
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	return rslt, nil
}

// FitClassifier fits the l2 penalized classifier with its default
// settings.
func FitClassifier(X statmodel.Dataset, y []float64, log *zap.Logger) (*glm.LogisticRegression, error) {

	config := glm.DefaultLogisticConfig()
	config.Log = log

	lr, err := glm.NewLogisticRegression(config)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	if err := lr.Fit(X, y); err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	return lr, nil
}

func head(n int, x []float64) []float64 {
	if len(x) < n {
		return x
	}
	return x[:n]
}

// Run fits both models to the frame and writes their reports to w.
func Run(w io.Writer, f *table.Frame, opts Options) (*Result, error) {

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	X, y, err := Prepare(f, opts)
	if err != nil {
		return nil, err
	}

	rslt, err := FitGLM(X, y, opts.Outcome, opts.Log)
	if err != nil {
		return nil, err
	}
	if !rslt.Converged() {
		opts.Log.Warn("binomial GLM did not converge", zap.Int("iterations", rslt.Iterations()))
	}

	report.Heading(w, "1-1 Logit model fit")
	_, _ = fmt.Fprint(w, rslt.Summary().String())

	pr, err := rslt.Predict(nil)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	report.Heading(w, "1-2 Logit model predictions (first 5)")
	lab := f.IndexName()
	if lab == "" {
		lab = "row"
	}
	var rows [][]interface{}
	for i, p := range head(5, pr) {
		key := fmt.Sprint(i)
		if idx := f.Index(); idx != nil {
			key = idx[i]
		}
		rows = append(rows, []interface{}{key, p})
	}
	if err := report.Table(w, []string{lab, "prediction"}, rows); err != nil {
		return nil, err
	}

	lr, err := FitClassifier(X, y, opts.Log)
	if err != nil {
		return nil, err
	}
	if !lr.Converged() {
		opts.Log.Warn("logistic classifier did not converge")
	}

	report.Heading(w, "2-1 Classifier parameters")
	rows = nil
	for _, p := range lr.Params() {
		rows = append(rows, []interface{}{p.Name, p.Value})
	}
	if err := report.Table(w, []string{"parameter", "value"}, rows); err != nil {
		return nil, err
	}

	acc, err := lr.Score(X, y)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("logistic: %w", err)
	}

	report.Heading(w, "2-2 .. 2-8 Classifier fit")
	if err := report.KV(w,
		"2-2 classes", lr.Classes(),
		"2-3 number of features", lr.NumFeatures(),
		"2-4 feature names", lr.FeatureNames(),
		"2-5 intercept", lr.Intercept(),
		"2-6 coefficients", lr.Coef(),
		"2-7 accuracy", acc,
		"2-8 predictions (first 6)", head(6, pred)); err != nil {
		return nil, err
	}

	report.Heading(w, "2-9 Predicted probabilities (first 6)")
	rows = nil
	for i := 0; i < len(proba) && i < 6; i++ {
		rows = append(rows, []interface{}{proba[i][0], proba[i][1]})
	}
	cl := lr.Classes()
	if err := report.Table(w, []string{fmt.Sprintf("P(%s=%g)", opts.Outcome, cl[0]),
		fmt.Sprintf("P(%s=%g)", opts.Outcome, cl[1])}, rows); err != nil {
		return nil, err
	}

	return &Result{GLM: rslt, Classifier: lr, Accuracy: acc}, nil
}
