package glm

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dexinGONG/biostat/statmodel"
)

// ErrNoConvergence is returned when the gradient optimizer stops
// without reaching a solution.
var ErrNoConvergence = errors.New("glm: optimization did not converge")

// Config holds the optional settings of a GLM.  A nil *Config passed to
// NewGLM is the same as DefaultConfig().
type Config struct {

	// The GLM family.  Defaults to Gaussian.
	Family *Family

	// The link function, if nil the canonical link of the family is used.
	Link *Link

	// The variance function, if nil the variance that goes with the
	// family is used.
	VarFunc *Variance

	// Name of the case weight variable, optional.
	WeightVar string

	// Name of the offset variable, optional.
	OffsetVar string

	// L2 (ridge) penalty weights by covariate name, optional.  The
	// penalized log-likelihood is loglike - nobs * sum(w_j * b_j^2) / 2,
	// and either fitting method maximizes it.
	L2Penalty map[string]float64

	// Either "IRLS" (the default) or "gradient".
	FitMethod string

	// Starting values, optional.
	Start []float64

	// Optimization method for gradient fitting, defaults to BFGS.
	OptMethod optimize.Method

	// Optimization settings for gradient fitting.
	OptSettings *optimize.Settings

	// Maximum number of IRLS iterations.
	MaxIter int

	// IRLS stops when the change in deviance is smaller than this.
	DevTol float64

	// Use concurrent calculations in IRLS if the sample size is at
	// least this large.
	ConcurrentIRLS int

	// If true the intercept-only model is not fit, and NullLogLike,
	// PseudoR2 and LLRPValue of the results are NaN.
	SkipNull bool

	// If not nil, fitting progress is logged here.
	Log *zap.Logger
}

// DefaultConfig returns the default configuration of a GLM.
func DefaultConfig() *Config {
	return &Config{
		Family:         NewFamily(GaussianFamily),
		FitMethod:      "IRLS",
		MaxIter:        20,
		DevTol:         1e-8,
		ConcurrentIRLS: 1000,
	}
}

// GLM represents a generalized linear model.
type GLM struct {
	data [][]statmodel.Dtype

	varnames []string

	// Positions of the covariates
	xpos []int

	// Name and position of the outcome variable
	yname string
	ypos  int

	// Name and position of the offset variable, if present.
	offsetname string
	offsetpos  int

	// Name and position of the weight variable, if present.
	weightname string
	weightpos  int

	// The GLM family
	fam *Family

	// The GLM link function
	link *Link

	// The GLM variance function
	vari *Variance

	// Either IRLS or gradient.
	fitMethod string

	// Starting values, optional
	start []float64

	// L2 (ridge) penalty weights, optional.  Must fit using
	// Gradient method if present.
	l2wgt []float64

	// Optimization settings
	settings *optimize.Settings

	// Optimization method
	method optimize.Method

	maxiter int
	dtol    float64

	log *zap.Logger

	// Use concurrent calculations in IRLS if the chunk size is at least
	// as large as this value.
	concurrentIRLS int

	// Scratch slices of length NumObs.
	slicePool sync.Pool

	// Do not fit the intercept-only model.
	skipNull bool
}

// GLMParams represents the model parameters for a GLM.
type GLMParams struct {
	coeff []float64
	scale float64
}

// NewGLMParams returns a parameter value with the given coefficients and scale.
func NewGLMParams(coeff []float64, scale float64) *GLMParams {
	return &GLMParams{
		coeff: coeff,
		scale: scale,
	}
}

// GetCoeff returns the coefficients (slopes for individual
// covariates) from the parameter.
func (p *GLMParams) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the coefficients (slopes for individual covariates)
// for the parameter.
func (p *GLMParams) SetCoeff(coeff []float64) {
	p.coeff = coeff
}

// Clone produces a deep copy of the parameter value.
func (p *GLMParams) Clone() statmodel.Parameter {
	coeff := make([]float64, len(p.coeff))
	copy(coeff, p.coeff)
	return &GLMParams{
		coeff: coeff,
		scale: p.scale,
	}
}

// NewGLM creates a GLM for the given dataset.  The outcome is the
// variable named yname.  If xnames is empty, every variable other than
// the outcome, weight and offset is a covariate.
func NewGLM(data statmodel.Dataset, yname string, xnames []string, config *Config) (*GLM, error) {

	if config == nil {
		config = DefaultConfig()
	}

	fam := config.Family
	if fam == nil {
		fam = NewFamily(GaussianFamily)
	}

	glm := &GLM{
		data:           data.Data(),
		varnames:       data.Names(),
		yname:          yname,
		offsetname:     config.OffsetVar,
		weightname:     config.WeightVar,
		fam:            fam,
		link:           config.Link,
		vari:           config.VarFunc,
		fitMethod:      strings.ToLower(config.FitMethod),
		settings:       config.OptSettings,
		method:         config.OptMethod,
		maxiter:        config.MaxIter,
		dtol:           config.DevTol,
		log:            config.Log,
		concurrentIRLS: config.ConcurrentIRLS,
		skipNull:       config.SkipNull,
	}

	if glm.fitMethod == "" {
		glm.fitMethod = "irls"
	}
	if glm.fitMethod != "irls" && glm.fitMethod != "gradient" {
		return nil, fmt.Errorf("GLM fitting method '%s' not allowed", config.FitMethod)
	}
	if glm.maxiter <= 0 {
		glm.maxiter = 20
	}
	if glm.dtol <= 0 {
		glm.dtol = 1e-8
	}
	if glm.concurrentIRLS <= 0 {
		glm.concurrentIRLS = 1000
	}
	if glm.log == nil {
		glm.log = zap.NewNop()
	}

	if err := glm.findvars(data, xnames); err != nil {
		return nil, err
	}

	if err := glm.setup(); err != nil {
		return nil, err
	}

	if config.L2Penalty != nil {
		glm.l2wgt = make([]float64, len(glm.xpos))
		for na, v := range config.L2Penalty {
			j := -1
			for k, p := range glm.xpos {
				if glm.varnames[p] == na {
					j = k
				}
			}
			if j == -1 {
				return nil, fmt.Errorf("L2 penalty given for '%s', which is not a covariate", na)
			}
			glm.l2wgt[j] = v
		}
	}

	if len(config.Start) > 0 {
		if len(config.Start) != len(glm.xpos) {
			return nil, fmt.Errorf("starting values have length %d, but the model has %d covariates",
				len(config.Start), len(glm.xpos))
		}
		glm.start = config.Start
	}

	if err := glm.fam.checkResponse(glm.data[glm.ypos]); err != nil {
		return nil, err
	}

	return glm, nil
}

// NumParams returns the number of covariates in the model.
func (glm *GLM) NumParams() int {
	return len(glm.xpos)
}

// NumObs returns the number of observations used to fit the model.
func (glm *GLM) NumObs() int {
	return len(glm.data[glm.ypos])
}

// Xpos returns the positions of the covariates in the model's dataset.
func (glm *GLM) Xpos() []int {
	return glm.xpos
}

// Dataset returns the data columns that are used to fit the model.
func (glm *GLM) Dataset() [][]statmodel.Dtype {
	return glm.data
}

// Family returns the family of the model.
func (glm *GLM) Family() *Family {
	return glm.fam
}

// Link returns the link function of the model.
func (glm *GLM) Link() *Link {
	return glm.link
}

// Xnames returns the names of the covariates.
func (glm *GLM) Xnames() []string {
	var xna []string
	for _, j := range glm.xpos {
		xna = append(xna, glm.varnames[j])
	}
	return xna
}

func (glm *GLM) findvars(data statmodel.Dataset, xnames []string) error {

	glm.ypos = data.Pos(glm.yname)
	if glm.ypos == -1 {
		return fmt.Errorf("outcome variable '%s' not found", glm.yname)
	}

	glm.weightpos = -1
	if glm.weightname != "" {
		glm.weightpos = data.Pos(glm.weightname)
		if glm.weightpos == -1 {
			return fmt.Errorf("weight variable '%s' not found", glm.weightname)
		}
	}

	glm.offsetpos = -1
	if glm.offsetname != "" {
		glm.offsetpos = data.Pos(glm.offsetname)
		if glm.offsetpos == -1 {
			return fmt.Errorf("offset variable '%s' not found", glm.offsetname)
		}
	}

	if len(xnames) == 0 {
		for k, na := range glm.varnames {
			switch na {
			case glm.yname, glm.weightname, glm.offsetname:
			default:
				glm.xpos = append(glm.xpos, k)
			}
		}
	} else {
		var err error
		glm.xpos, err = data.Positions(xnames)
		if err != nil {
			return err
		}
	}

	if len(glm.xpos) == 0 {
		return errors.New("GLM has no covariates")
	}

	return nil
}

func (glm *GLM) setup() error {

	if glm.link == nil {
		glm.link = glm.fam.CanonicalLink()
	} else if !glm.fam.IsValidLink(glm.link) {
		return fmt.Errorf("link %s is not valid for family %s", glm.link.Name, glm.fam.Name)
	}

	if glm.vari == nil {
		glm.vari = NewVariance(glm.fam.varType)
	}

	return nil
}

// getNslice returns a scratch slice of length NumObs.
func (glm *GLM) getNslice() []float64 {
	if x, ok := glm.slicePool.Get().(*[]float64); ok {
		return *x
	}
	return make([]float64, glm.NumObs())
}

func (glm *GLM) putNslice(x []float64) {
	glm.slicePool.Put(&x)
}

// scaleDiv is the factor by which the scale parameter divides the
// derivatives of the log-likelihood.
func (glm *GLM) scaleDiv(scale float64) float64 {
	if glm.fam.TypeCode == QuasiPoissonFamily || scale == 0 {
		return 1
	}
	return scale
}

// linpred computes the linear predictor, including the offset.
func (glm *GLM) linpred(coeff, linpred []float64) {
	zero(linpred)
	for j, k := range glm.xpos {
		floats.AddScaled(linpred, coeff[j], glm.data[k])
	}
	if glm.offsetpos != -1 {
		floats.Add(linpred, glm.data[glm.offsetpos])
	}
}

func (glm *GLM) weights() []statmodel.Dtype {
	if glm.weightpos == -1 {
		return nil
	}
	return glm.data[glm.weightpos]
}

// LogLike returns the log-likelihood value for the generalized linear
// model at the given parameter values.  If exact is false, terms that
// do not depend on the mean may be omitted.
func (glm *GLM) LogLike(params statmodel.Parameter, exact bool) float64 {

	gpar := params.(*GLMParams)
	coeff := gpar.coeff
	scale := gpar.scale

	linpred := glm.getNslice()
	mn := glm.getNslice()
	defer glm.putNslice(linpred)
	defer glm.putNslice(mn)

	glm.linpred(coeff, linpred)
	glm.link.InvLink(linpred, mn)
	loglike := glm.fam.LogLike(glm.data[glm.ypos], mn, glm.weights(), scale, exact)

	// Account for the L2 penalty
	if glm.l2wgt != nil {
		nobs := float64(glm.NumObs())
		for j, v := range glm.l2wgt {
			loglike -= nobs * v * coeff[j] * coeff[j] / 2
		}
	}

	return loglike
}

func scoreFactor(yda, mn, deriv, va, sfac []float64) {
	for i, y := range yda {
		sfac[i] = (y - mn[i]) / (deriv[i] * va[i])
	}
}

// Score returns the score vector for the generalized linear model at
// the given parameter values.
func (glm *GLM) Score(params statmodel.Parameter, score []float64) {

	gpar := params.(*GLMParams)
	coeff := gpar.coeff

	linpred := glm.getNslice()
	mn := glm.getNslice()
	deriv := glm.getNslice()
	va := glm.getNslice()
	fac := glm.getNslice()
	defer func() {
		for _, x := range [][]float64{linpred, mn, deriv, va, fac} {
			glm.putNslice(x)
		}
	}()

	zero(score)

	glm.linpred(coeff, linpred)
	glm.link.InvLink(linpred, mn)
	glm.link.Deriv(mn, deriv)
	glm.vari.Var(mn, va)

	scoreFactor(glm.data[glm.ypos], mn, deriv, va, fac)

	if wgts := glm.weights(); wgts != nil {
		floats.Mul(fac, wgts)
	}
	sd := glm.scaleDiv(gpar.scale)

	for j, k := range glm.xpos {
		score[j] = floats.Dot(fac, glm.data[k]) / sd
	}

	// Account for the L2 penalty
	if glm.l2wgt != nil {
		nobs := float64(glm.NumObs())
		for j, v := range glm.l2wgt {
			score[j] -= nobs * v * coeff[j]
		}
	}
}

// Hessian returns the Hessian matrix for the model.  The Hessian is
// returned as a one-dimensional array, which is the vectorized form
// of the Hessian matrix.  Either the observed or expected Hessian can
// be calculated.
func (glm *GLM) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	gpar := param.(*GLMParams)
	coeff := gpar.coeff

	linpred := glm.getNslice()
	mn := glm.getNslice()
	lderiv := glm.getNslice()
	va := glm.getNslice()
	fac := glm.getNslice()
	defer func() {
		for _, x := range [][]float64{linpred, mn, lderiv, va, fac} {
			glm.putNslice(x)
		}
	}()

	nvar := glm.NumParams()
	zero(hess)

	glm.linpred(coeff, linpred)

	// The mean response
	glm.link.InvLink(linpred, mn)

	glm.link.Deriv(mn, lderiv)
	glm.vari.Var(mn, va)

	// Factor for the expected Hessian
	for i := range lderiv {
		fac[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
	}

	// Adjust the factor for the observed Hessian
	if ht == statmodel.ObsHess {
		vad := glm.getNslice()
		lderiv2 := glm.getNslice()
		sfac := glm.getNslice()
		glm.link.Deriv2(mn, lderiv2)
		glm.vari.Deriv(mn, vad)
		scoreFactor(glm.data[glm.ypos], mn, lderiv, va, sfac)

		for i := range fac {
			h := va[i]*lderiv2[i] + lderiv[i]*vad[i]
			fac[i] *= 1 + h*sfac[i]
		}
		glm.putNslice(vad)
		glm.putNslice(lderiv2)
		glm.putNslice(sfac)
	}

	if wgts := glm.weights(); wgts != nil {
		floats.Mul(fac, wgts)
	}
	floats.Scale(1/glm.scaleDiv(gpar.scale), fac)

	// Update the Hessian matrix
	glm.hessXprod(fac, hess)

	// Fill in the upper triangle
	for j1 := range glm.xpos {
		for j2 := 0; j2 < j1; j2++ {
			hess[j2*nvar+j1] = hess[j1*nvar+j2]
		}
	}

	// Account for the L2 penalty
	if glm.l2wgt != nil {
		nobs := float64(glm.NumObs())
		for j, v := range glm.l2wgt {
			hess[j*nvar+j] -= nobs * v
		}
	}
}

func (glm *GLM) hessXprod(fac, hess []float64) {

	nvar := len(glm.xpos)

	var wg sync.WaitGroup

	for j1, k1 := range glm.xpos {
		for j2, k2 := range glm.xpos[0 : j1+1] {
			wg.Add(1)
			go func(j1, j2 int, x1, x2 []float64) {
				defer wg.Done()
				var u float64
				for i := range x1 {
					u += fac[i] * x1[i] * x2[i]
				}
				hess[j1*nvar+j2] = -u
			}(j1, j2, glm.data[k1], glm.data[k2])
		}
	}

	wg.Wait()
}

// Fit estimates the parameters of the GLM and returns a results
// object.
func (glm *GLM) Fit() (*GLMResults, error) {

	nvar := glm.NumParams()

	start := make([]float64, nvar)
	if glm.start != nil {
		copy(start, glm.start)
	}

	var params []float64
	var fi fitInfo
	var err error

	if glm.fitMethod == "gradient" {
		glm.log.Debug("fitting GLM using gradient optimization",
			zap.String("family", glm.fam.Name), zap.String("link", glm.link.Name))
		params, fi, err = glm.fitGradient(start)
	} else {
		glm.log.Debug("fitting GLM using IRLS",
			zap.String("family", glm.fam.Name), zap.String("link", glm.link.Name))
		params, fi, err = glm.fitIRLS(start)
	}
	if err != nil {
		return nil, err
	}

	scale := glm.EstimateScale(params)

	var vcov []float64
	if glm.l2wgt == nil {
		vcov, err = statmodel.GetVcov(glm, &GLMParams{params, 1})
		if err != nil {
			return nil, fmt.Errorf("GLM covariance: %w", err)
		}
		floats.Scale(scale, vcov)
	}

	ll := glm.LogLike(&GLMParams{params, scale}, true)

	results := &GLMResults{
		BaseResults: statmodel.NewBaseResults(glm, ll, params, glm.Xnames(), vcov),
		scale:       scale,
		fitInfo:     fi,
		nullLL:      math.NaN(),
		hasConst:    glm.hasConst(),
	}

	if !glm.skipNull {
		results.nullLL, err = glm.nullLogLike()
		if err != nil {
			return nil, fmt.Errorf("GLM null model: %w", err)
		}
	}

	return results, nil
}

// fitInfo records how the optimizer ended.
type fitInfo struct {
	method     string
	iterations int
	converged  bool
}

// fitGradient uses gradient-based optimization to obtain the fitted
// GLM parameters.
func (glm *GLM) fitGradient(start []float64) ([]float64, fitInfo, error) {

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -glm.LogLike(&GLMParams{x, 1}, false)
		},
		Grad: func(grad, x []float64) {
			glm.Score(&GLMParams{x, 1}, grad)
			floats.Scale(-1, grad)
		},
	}

	settings := glm.settings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-6,
		}
	}

	method := glm.method
	if method == nil {
		method = &optimize.BFGS{}
	}

	f0 := p.Func(start)
	optrslt, err := optimize.Minimize(p, start, settings, method)
	if err == nil && optrslt.Status != optimize.IterationLimit {
		err = optrslt.Status.Err()
	}
	if err != nil && !improved(optrslt, f0) {
		glm.failMessage(optrslt)
		return nil, fitInfo{}, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}
	fi := fitInfo{
		method:     "gradient",
		iterations: optrslt.Stats.MajorIterations,
		converged:  true,
	}

	switch {
	case optrslt.Status == optimize.IterationLimit:
		// The current point is still usable.
		fi.converged = false
		glm.log.Warn("optimization reached the iteration limit",
			zap.Int("iterations", optrslt.Stats.MajorIterations))
	case err != nil:
		// A line search that fails after the objective has decreased
		// leaves the best point found, which is kept.
		fi.converged = false
		glm.log.Warn("optimization stopped early, keeping the best point",
			zap.Error(err),
			zap.Int("iterations", optrslt.Stats.MajorIterations),
			zap.Float64("loglike", -optrslt.F))
	}

	glm.log.Debug("optimization finished",
		zap.String("status", optrslt.Status.String()),
		zap.Int("iterations", optrslt.Stats.MajorIterations),
		zap.Float64("loglike", -optrslt.F))

	return optrslt.X, fi, nil
}

// improved returns true if the optimizer found a point with a finite
// objective value below f0.
func improved(optrslt *optimize.Result, f0 float64) bool {
	if optrslt == nil || len(optrslt.X) == 0 {
		return false
	}
	f := optrslt.F
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f < f0
}

// failMessage logs information that can help diagnose optimization failures.
func (glm *GLM) failMessage(optrslt *optimize.Result) {

	if optrslt == nil {
		return
	}

	for j, x := range optrslt.X {
		xda := glm.data[glm.xpos[j]]
		mn, sd := stat.MeanStdDev(xda, glm.weights())
		var g float64
		if j < len(optrslt.Gradient) {
			g = optrslt.Gradient[j]
		}
		glm.log.Warn("optimization failed",
			zap.String("variable", glm.varnames[glm.xpos[j]]),
			zap.Float64("point", x),
			zap.Float64("gradient", g),
			zap.Float64("mean", mn),
			zap.Float64("sd", sd))
	}
}

// EstimateScale returns an estimate of the GLM scale parameter at the
// given parameter values.
func (glm *GLM) EstimateScale(params []float64) float64 {

	if !glm.fam.freeScale {
		return 1
	}

	nvar := glm.NumParams()

	linpred := glm.getNslice()
	mn := glm.getNslice()
	va := glm.getNslice()
	defer func() {
		for _, x := range [][]float64{linpred, mn, va} {
			glm.putNslice(x)
		}
	}()

	glm.linpred(params, linpred)

	// The mean response and variance
	glm.link.InvLink(linpred, mn)
	glm.vari.Var(mn, va)

	wgt := glm.weights()
	var scale, ws float64
	for i, y := range glm.data[glm.ypos] {
		r := y - mn[i]
		if wgt == nil {
			scale += r * r / va[i]
			ws++
		} else {
			scale += wgt[i] * r * r / va[i]
			ws += wgt[i]
		}
	}

	return scale / (ws - float64(nvar))
}

// hasConst returns true if one of the covariates is constant and non-zero.
func (glm *GLM) hasConst() bool {
	for _, k := range glm.xpos {
		x := glm.data[k]
		if len(x) > 0 && x[0] != 0 && floats.Min(x) == floats.Max(x) {
			return true
		}
	}
	return false
}

// nullLogLike fits the model that contains only an intercept, keeping
// the family, link, weights and offset, and returns its log-likelihood.
func (glm *GLM) nullLogLike() (float64, error) {

	n := glm.NumObs()
	icept := make([]float64, n)
	floats.AddConst(1, icept)

	data := [][]statmodel.Dtype{glm.data[glm.ypos], icept}
	names := []string{"y", "const"}
	config := &Config{
		Family:   glm.fam,
		Link:     glm.link,
		VarFunc:  glm.vari,
		MaxIter:  glm.maxiter,
		DevTol:   glm.dtol,
		SkipNull: true,
		Log:      glm.log,
	}
	if glm.weightpos != -1 {
		data = append(data, glm.data[glm.weightpos])
		names = append(names, "w")
		config.WeightVar = "w"
	}
	if glm.offsetpos != -1 {
		data = append(data, glm.data[glm.offsetpos])
		names = append(names, "off")
		config.OffsetVar = "off"
	}

	null, err := NewGLM(statmodel.NewDataset(data, names), "y", []string{"const"}, config)
	if err != nil {
		return 0, err
	}

	rslt, err := null.Fit()
	if err != nil {
		return 0, err
	}

	return rslt.LogLike(), nil
}

// zero sets all elements of the slice to 0
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// one sets all elements of the slice to 1
func one(x []float64) {
	for i := range x {
		x[i] = 1
	}
}

// GLMResults describes the results of a fitted generalized linear model.
type GLMResults struct {
	statmodel.BaseResults

	scale float64

	fitInfo fitInfo

	nullLL float64

	hasConst bool
}

// Scale returns the estimated scale parameter.
func (rslt *GLMResults) Scale() float64 {
	return rslt.scale
}

// Converged returns true if the fitting algorithm converged.
func (rslt *GLMResults) Converged() bool {
	return rslt.fitInfo.converged
}

// Iterations returns the number of iterations used by the fitting algorithm.
func (rslt *GLMResults) Iterations() int {
	return rslt.fitInfo.iterations
}

// NullLogLike returns the log-likelihood of the intercept-only model.
func (rslt *GLMResults) NullLogLike() float64 {
	return rslt.nullLL
}

// DFModel returns the model degrees of freedom, which do not count the
// intercept.
func (rslt *GLMResults) DFModel() int {
	df := len(rslt.Params())
	if rslt.hasConst {
		df--
	}
	return df
}

// DFResid returns the residual degrees of freedom.
func (rslt *GLMResults) DFResid() int {
	return rslt.Model().NumObs() - len(rslt.Params())
}

// PseudoR2 returns McFadden's pseudo R-squared, 1 - ll / ll0.
func (rslt *GLMResults) PseudoR2() float64 {
	return 1 - rslt.LogLike()/rslt.nullLL
}

// LLRPValue returns the p-value of the likelihood ratio test of the
// fitted model against the intercept-only model.
func (rslt *GLMResults) LLRPValue() float64 {
	df := rslt.DFModel()
	if df <= 0 || math.IsNaN(rslt.nullLL) {
		return math.NaN()
	}
	llr := 2 * (rslt.LogLike() - rslt.nullLL)
	return distuv.ChiSquared{K: float64(df)}.Survival(llr)
}

// Predict returns the fitted mean response.  If da is nil the
// training data are used, otherwise da must be laid out the same way
// as the training data.
func (rslt *GLMResults) Predict(da [][]statmodel.Dtype) ([]float64, error) {

	glm := rslt.Model().(*GLM)

	lp, err := rslt.FittedValues(da)
	if err != nil {
		return nil, err
	}
	if da == nil {
		da = glm.data
	}
	if glm.offsetpos != -1 {
		floats.Add(lp, da[glm.offsetpos])
	}

	mn := make([]float64, len(lp))
	glm.link.InvLink(lp, mn)

	return mn, nil
}

// GLMSummary summarizes a fitted generalized linear model.
type GLMSummary struct {

	// The GLM
	glm *GLM

	// The results structure
	results *GLMResults

	// Transform the parameters with this function.  If nil,
	// no transformation is applied.  If paramXform is provided,
	// the standard error and Z-score are not shown.
	paramXform func(float64) float64

	// Messages that are appended to the table
	messages []string
}

// SetScale sets the scale on which the parameter results are
// displayed in the summary.  'xf' is a function that maps
// parameters and confidence limits from the linear scale to
// the desired scale.  'msg' is a message that is appended
// to the summary table.
func (gs *GLMSummary) SetScale(xf func(float64) float64, msg string) *GLMSummary {
	gs.paramXform = xf
	gs.messages = append(gs.messages, msg)
	return gs
}

// String returns a string representation of a summary table for the model.
func (gs *GLMSummary) String() string {

	xf := func(x float64) float64 {
		return x
	}

	if gs.paramXform != nil {
		xf = gs.paramXform
	}

	rslt := gs.results

	sum := &statmodel.SummaryTable{
		Msg: gs.messages,
	}

	sum.Title = "Generalized Linear Model Regression Results"

	method := "IRLS"
	if rslt.fitInfo.method == "gradient" {
		method = "gradient"
	}

	sum.Top = []string{
		fmt.Sprintf("Dep. Variable:    %s", gs.glm.yname),
		fmt.Sprintf("No. Observations: %d", gs.glm.NumObs()),
		fmt.Sprintf("Model Family:     %s", gs.glm.fam.Name),
		fmt.Sprintf("Df Residuals:     %d", rslt.DFResid()),
		fmt.Sprintf("Link Function:    %s", gs.glm.link.Name),
		fmt.Sprintf("Df Model:         %d", rslt.DFModel()),
		fmt.Sprintf("Method:           %s", method),
		fmt.Sprintf("Scale:            %.4f", rslt.scale),
		fmt.Sprintf("Log-Likelihood:   %.4f", rslt.LogLike()),
		fmt.Sprintf("LL-Null:          %.4f", rslt.nullLL),
		fmt.Sprintf("Pseudo R-squ.:    %.4f", rslt.PseudoR2()),
		fmt.Sprintf("LLR p-value:      %.4g", rslt.LLRPValue()),
		fmt.Sprintf("No. Iterations:   %d", rslt.Iterations()),
		fmt.Sprintf("Converged:        %t", rslt.Converged()),
	}

	if rslt.VCov() == nil {
		sum.ColNames = []string{"Variable   ", "coef"}
		sum.ColFmt = []statmodel.Fmter{statmodel.FmtStrings, statmodel.FmtFloats}
		var par []float64
		for _, x := range rslt.Params() {
			par = append(par, xf(x))
		}
		sum.Cols = []interface{}{rslt.Names(), par}
		return sum.String()
	}

	// Create estimate and CI for the parameters
	var par, lcb, ucb []float64
	lo, hi := rslt.ConfInt(0.95)
	for j, x := range rslt.Params() {
		par = append(par, xf(x))
		lcb = append(lcb, xf(lo[j]))
		ucb = append(ucb, xf(hi[j]))
	}

	fs, fn := statmodel.FmtStrings, statmodel.FmtFloats

	if gs.paramXform == nil {
		sum.ColNames = []string{"Variable   ", "coef", "std err", "z", "P>|z|", "[0.025", "0.975]"}
		sum.ColFmt = []statmodel.Fmter{fs, fn, fn, fn, fn, fn, fn}
		sum.Cols = []interface{}{
			rslt.Names(),
			par,
			rslt.StdErr(),
			rslt.ZScores(),
			rslt.PValues(),
			lcb,
			ucb,
		}
	} else {
		sum.ColNames = []string{"Variable   ", "coef", "P>|z|", "[0.025", "0.975]"}
		sum.ColFmt = []statmodel.Fmter{fs, fn, fn, fn, fn}
		sum.Cols = []interface{}{
			rslt.Names(),
			par,
			rslt.PValues(),
			lcb,
			ucb,
		}
	}

	return sum.String()
}

// Summary displays a summary table of the model results.
func (rslt *GLMResults) Summary() *GLMSummary {

	glm := rslt.Model().(*GLM)

	return &GLMSummary{
		glm:     glm,
		results: rslt,
	}
}

// AddConstant returns a copy of the dataset with a constant-one column
// named name placed first.
func AddConstant(data statmodel.Dataset, name string) statmodel.Dataset {

	icept := make([]statmodel.Dtype, data.NumObs())
	floats.AddConst(1, icept)

	cols := append([][]statmodel.Dtype{icept}, data.Data()...)
	names := append([]string{name}, data.Names()...)

	return statmodel.NewDataset(cols, names)
}
