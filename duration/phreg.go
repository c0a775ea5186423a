// Package duration supports various methods for statistical analysis
// of duration data (survival analysis).
package duration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dexinGONG/biostat/statmodel"
)

// ErrNoConvergence is returned when the optimizer fails to find the
// maximum of the partial likelihood.
var ErrNoConvergence = errors.New("duration: PHReg fit did not converge")

// Ties selects the approximation of the partial likelihood used when
// several events occur at the same time.
type Ties int

// Efron is the default. Breslow is cheaper and coincides with Efron
// when there are no tied event times.
const (
	Efron Ties = iota
	Breslow
)

func (t Ties) String() string {
	switch t {
	case Efron:
		return "Efron"
	case Breslow:
		return "Breslow"
	}
	return fmt.Sprintf("Ties(%d)", int(t))
}

// PHParameter contains a parameter value for a proportional hazards
// regression model.
type PHParameter struct {
	coeff []float64
}

// GetCoeff returns the array of model coefficients from a parameter value.
func (p *PHParameter) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the array of model coefficients for a parameter value.
func (p *PHParameter) SetCoeff(x []float64) {
	p.coeff = x
}

// Clone returns a deep copy of the parameter value.
func (p *PHParameter) Clone() statmodel.Parameter {
	q := make([]float64, len(p.coeff))
	copy(q, p.coeff)
	return &PHParameter{q}
}

// PHReg describes a proportional hazards regression model for right
// censored data.
type PHReg struct {

	// The names of the variables.  The order agrees with the order of 'data'.
	varnames []string

	// The data to which the model is fit
	data [][]statmodel.Dtype

	// Starting values, optional
	start []float64

	// Position of the event variable
	statuspos int

	// Position of the time variable
	timepos int

	// Position of the entry time variable
	entrypos int

	// Position of an offset variable
	offsetpos int

	// Position of a case weight variable
	weightpos int

	// Position of a stratum variable
	stratapos int

	// Start and end position of the strata
	stratumix [][2]int

	// The sorted times at which events occur in each stratum
	etimes [][]float64

	// enter[i][j] are the row indices that enter the risk set at
	// the jth distinct time in stratum i
	enter [][][]int

	// event[i][j] are the row indices that have an event at
	// the jth distinct time in stratum i
	event [][][]int

	// exit[i][j] are the row indices that exit the risk set at
	// the jth distinct time in stratum i
	exit [][][]int

	// The sum of covariates with events in each stratum
	sumx [][]float64

	// L2 (ridge) weights for each variable
	l2wgt []float64

	// The positions of the covariates in data
	xpos []int

	// If skip[i] is true, case i is skipped since it is censored
	// before the first event or is never at risk at an event time.
	skip []bool

	// The number of cases that are skipped because they are censored before the first event
	skipEarlyCensor int

	ties Ties

	// Optimization settings
	optsettings *optimize.Settings

	// Optimization method
	optmethod optimize.Method

	log *zap.Logger
}

// NumObs returns the number of observations in the data set.
func (ph *PHReg) NumObs() int {
	return len(ph.data[0])
}

// NumParams returns the number of model parameters (regression coefficients).
func (ph *PHReg) NumParams() int {
	return len(ph.xpos)
}

// Dataset returns the data columns that are used to fit the model.
func (ph *PHReg) Dataset() [][]statmodel.Dtype {
	return ph.data
}

// Xpos return the positions of the covariates in the model's data.
func (ph *PHReg) Xpos() []int {
	return ph.xpos
}

// Xnames returns the names of the covariates.
func (ph *PHReg) Xnames() []string {
	var xna []string
	for _, k := range ph.xpos {
		xna = append(xna, ph.varnames[k])
	}
	return xna
}

// Ties returns the method used to handle tied event times.
func (ph *PHReg) Ties() Ties {
	return ph.ties
}

// PHRegConfig defines configuration parameters for a proportional hazards regression.
type PHRegConfig struct {

	// A logger to which logging information is written, nil for none
	Log *zap.Logger

	// Ties selects the handling of tied event times, Efron by default.
	Ties Ties

	// Start contains starting values for the regression parameter estimates
	Start []float64

	// WeightVar is the name of the variable for frequency-weighting the cases, if an empty
	// string, all weights are equal to 1.
	WeightVar string

	// OffsetVar is the name of a variable that defines an offset.
	OffsetVar string

	// StrataVar is the name of a variable that defines strata.
	StrataVar string

	// EntryVar is the name of a variable that defines entry (left truncation) times.
	EntryVar string

	// L2Penalty maps covariate names to ridge weights.  The
	// log-likelihood is reduced by w*b^2 for each coefficient b.
	L2Penalty map[string]float64

	// OptMethod is the Gonum optimization used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultPHRegConfig returns a default configuration struct for a proportional hazards regression.
func DefaultPHRegConfig() *PHRegConfig {

	return &PHRegConfig{
		Ties: Efron,
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
	}
}

// NewPHReg returns a PHReg value that can be used to fit a
// proportional hazards regression model.
func NewPHReg(data statmodel.Dataset, time, status string, predictors []string, config *PHRegConfig) (*PHReg, error) {

	if config == nil {
		config = DefaultPHRegConfig()
	}

	timepos := data.Pos(time)
	if timepos == -1 {
		return nil, fmt.Errorf("PHReg: time variable '%s' not found in dataset", time)
	}

	statuspos := data.Pos(status)
	if statuspos == -1 {
		return nil, fmt.Errorf("PHReg: status variable '%s' not found in dataset", status)
	}

	if len(predictors) == 0 {
		return nil, errors.New("PHReg: at least one predictor is needed")
	}
	xpos, err := data.Positions(predictors)
	if err != nil {
		return nil, fmt.Errorf("PHReg: %w", err)
	}

	getpos := func(vn string) (int, error) {
		if vn == "" {
			return -1, nil
		}
		loc := data.Pos(vn)
		if loc == -1 {
			return -1, fmt.Errorf("PHReg: '%s' not found in dataset", vn)
		}
		return loc, nil
	}

	var pos [4]int
	for j, vn := range []string{config.WeightVar, config.StrataVar, config.OffsetVar, config.EntryVar} {
		if pos[j], err = getpos(vn); err != nil {
			return nil, err
		}
	}

	varnames := data.Names()

	var l2wgt []float64
	if len(config.L2Penalty) > 0 {
		l2wgt = make([]float64, len(xpos))
		for j, k := range xpos {
			l2wgt[j] = config.L2Penalty[varnames[k]]
		}
	}

	optmethod := config.OptMethod
	if optmethod == nil {
		optmethod = DefaultPHRegConfig().OptMethod
	}

	lg := config.Log
	if lg == nil {
		lg = zap.NewNop()
	}

	ph := &PHReg{
		// A shallow copy, so that sorting by stratum leaves the caller's
		// columns alone.
		data:        append([][]statmodel.Dtype(nil), data.Data()...),
		varnames:    varnames,
		timepos:     timepos,
		statuspos:   statuspos,
		xpos:        xpos,
		weightpos:   pos[0],
		stratapos:   pos[1],
		offsetpos:   pos[2],
		entrypos:    pos[3],
		start:       config.Start,
		l2wgt:       l2wgt,
		ties:        config.Ties,
		log:         lg,
		optsettings: config.OptSettings,
		optmethod:   optmethod,
	}

	if ph.start != nil && len(ph.start) != len(xpos) {
		return nil, fmt.Errorf("PHReg: %d starting values for %d predictors", len(ph.start), len(xpos))
	}

	if err := ph.init(); err != nil {
		return nil, err
	}

	return ph, nil
}

func (ph *PHReg) init() error {
	ph.sortByStratum()
	if err := ph.setupTimes(); err != nil {
		return err
	}
	ph.setupCovs()
	return nil
}

func (a argsort) Len() int {
	return len(a.s)
}

func (a argsort) Swap(i, j int) {
	a.s[i], a.s[j] = a.s[j], a.s[i]
	a.inds[i], a.inds[j] = a.inds[j], a.inds[i]
}

func (a argsort) Less(i, j int) bool {
	return a.s[i] < a.s[j]
}

type argsort struct {
	s    []statmodel.Dtype
	inds []int
}

func (ph *PHReg) sortByStratum() {

	time := ph.data[ph.timepos]
	nobs := len(time)

	if ph.stratapos == -1 {
		ph.stratumix = [][2]int{{0, nobs}}
		return
	}

	strata := make([]statmodel.Dtype, nobs)
	copy(strata, ph.data[ph.stratapos])

	inds := make([]int, nobs)
	for i := range inds {
		inds[i] = i
	}
	a := argsort{s: strata, inds: inds}
	sort.Stable(a)

	re := func(pos int) {
		if pos == -1 {
			return
		}
		x := ph.data[pos]
		y := make([]statmodel.Dtype, nobs)
		for i, j := range inds {
			y[i] = x[j]
		}
		ph.data[pos] = y
	}

	done := make(map[int]bool)
	for _, k := range append([]int{ph.timepos, ph.statuspos, ph.offsetpos, ph.weightpos,
		ph.entrypos, ph.stratapos}, ph.xpos...) {
		if !done[k] {
			re(k)
			done[k] = true
		}
	}

	var i0 int
	for i := 0; i <= len(strata); i++ {
		if i == len(strata) || (i > 0 && strata[i-1] != strata[i]) {
			ph.stratumix = append(ph.stratumix, [2]int{i0, i})
			i0 = i
		}
	}
}

func (ph *PHReg) setupTimes() error {

	ph.skipEarlyCensor = 0

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]
	nobs := len(time)

	var entry []statmodel.Dtype
	if ph.entrypos != -1 {
		entry = ph.data[ph.entrypos]
	}

	// Track cases that are omitted since they are
	// censored before the first event in their stratum.
	ph.skip = make([]bool, nobs)

	for i := range time {
		if math.IsNaN(time[i]) || time[i] < 0 {
			return fmt.Errorf("PHReg: times cannot be negative, got %v at row %d", time[i], i)
		}
		if status[i] != 0 && status[i] != 1 {
			return fmt.Errorf("PHReg: status variable '%s' has values other than 0 and 1",
				ph.varnames[ph.statuspos])
		}
		if entry != nil {
			if entry[i] > time[i] {
				return errors.New("PHReg: entry times may not occur after event or censoring times")
			}
			if entry[i] < 0 {
				return errors.New("PHReg: entry times may not be negative")
			}
		}
	}

	// Get the sorted distinct times where events occur
	for _, ix := range ph.stratumix {

		var et []float64
		for i := ix[0]; i < ix[1]; i++ {
			if status[i] == 1 {
				et = append(et, time[i])
			}
		}

		if len(et) > 0 {
			sort.Float64s(et)

			// Deduplicate
			j := 0
			for i := 1; i < len(et); i++ {
				if et[i] != et[j] {
					j++
					et[j] = et[i]
				}
			}
			et = et[0 : j+1]
		}
		ph.etimes = append(ph.etimes, et)

		// Indices of cases that enter or exit the risk set,
		// or have an event at each time point.
		enter := make([][]int, len(et))
		exit := make([][]int, len(et))
		event := make([][]int, len(et))
		ph.enter = append(ph.enter, enter)
		ph.exit = append(ph.exit, exit)
		ph.event = append(ph.event, event)

		// No events in this stratum
		if len(et) == 0 {
			continue
		}

		for i := ix[0]; i < ix[1]; i++ {

			// The last event time at which case i is at risk
			last := len(et) - 1
			ii := sort.SearchFloat64s(et, time[i])
			if ii < len(et) && et[ii] == time[i] {
				// Event or censored at an event time
				last = ii
			} else if ii == 0 {
				// Censored before first event, never enters
				ph.skip[i] = true
				ph.skipEarlyCensor++
				continue
			} else if ii < len(et) {
				// Censored between event times
				last = ii - 1
			}

			// The first event time at which case i is at risk
			first := 0
			if entry != nil {
				first = sort.SearchFloat64s(et, entry[i])
			}
			if first > last {
				// Enters and leaves between two event times
				ph.skip[i] = true
				continue
			}

			enter[first] = append(enter[first], i)
			if ii < len(et) {
				exit[last] = append(exit[last], i)
			}
			if status[i] == 1 {
				event[last] = append(event[last], i)
			}
		}
	}

	return nil
}

func (ph *PHReg) setupCovs() {

	ph.sumx = ph.sumx[0:0]
	status := ph.data[ph.statuspos]
	wgt := ph.weights()

	// Get the sum of covariates in each stratum,
	// including only covariates for cases with the event
	for _, ix := range ph.stratumix {
		sumx := make([]float64, len(ph.xpos))
		for j, k := range ph.xpos {
			x := ph.data[k]
			for i := ix[0]; i < ix[1]; i++ {
				if !ph.skip[i] && status[i] == 1 {
					if wgt == nil {
						sumx[j] += x[i]
					} else {
						sumx[j] += wgt[i] * x[i]
					}
				}
			}
		}
		ph.sumx = append(ph.sumx, sumx)
	}
}

func (ph *PHReg) weights() []statmodel.Dtype {
	if ph.weightpos == -1 {
		return nil
	}
	return ph.data[ph.weightpos]
}

// linpred computes the linear predictor, including the offset if
// present, into lp.
func (ph *PHReg) linpred(params, lp []float64) {

	zero(lp)
	for j, k := range ph.xpos {
		x := ph.data[k]
		for i := range x {
			lp[i] += x[i] * params[j]
		}
	}

	if ph.offsetpos != -1 {
		off := ph.data[ph.offsetpos]
		for i := range off {
			lp[i] += off[i]
		}
	}
}

// LogLike returns the log partial likelihood at the given parameter
// value, less the L2 penalty if present.  The 'exact' parameter is
// ignored here.
func (ph *PHReg) LogLike(param statmodel.Parameter, exact bool) float64 {

	coeff := param.GetCoeff()

	var ll float64
	switch ph.ties {
	case Breslow:
		ll = ph.breslowLogLike(coeff)
	default:
		ll = ph.efronLogLike(coeff)
	}

	// Account for L2 weights if present.
	if len(ph.l2wgt) > 0 {
		for j, x := range coeff {
			ll -= ph.l2wgt[j] * x * x
		}
	}

	return ll
}

// breslowLogLike returns the log-likelihood value for the
// proportional hazards regression model at the given parameter
// values, using the Breslow method to resolve ties.
func (ph *PHReg) breslowLogLike(params []float64) float64 {

	wgt := ph.weights()

	nobs := ph.NumObs()
	lp := make([]float64, nobs)
	elp := make([]float64, nobs)
	ph.linpred(params, lp)

	ql := float64(0)
	for s, ix := range ph.stratumix {

		// We can add any constant here due to invariance in
		// the partial likelihood.
		mx := floats.Max(lp[ix[0]:ix[1]])
		for i := ix[0]; i < ix[1]; i++ {
			lp[i] -= mx
			elp[i] = math.Exp(lp[i])
		}
		if wgt != nil {
			for i := ix[0]; i < ix[1]; i++ {
				lp[i] *= wgt[i]
				elp[i] *= wgt[i]
			}
		}

		rlp := float64(0)
		for k := 0; k < len(ph.etimes[s]); k++ {

			// Update for new entries
			for _, i := range ph.enter[s][k] {
				rlp += elp[i]
			}

			for _, i := range ph.event[s][k] {
				ql += lp[i]
			}

			if wgt != nil {
				var n float64
				for _, i := range ph.event[s][k] {
					n += wgt[i]
				}
				ql -= n * math.Log(rlp)
			} else {
				ql -= float64(len(ph.event[s][k])) * math.Log(rlp)
			}

			// Update for new exits
			for _, i := range ph.exit[s][k] {
				rlp -= elp[i]
			}
		}
	}

	return ql
}

// BaselineCumHaz returns the Breslow estimator of the baseline
// cumulative hazard function for the given stratum.  The returned
// values are the event times of the stratum and the cumulative hazard
// accumulated before each of them.
func (ph *PHReg) BaselineCumHaz(stratum int, params []float64) ([]float64, []float64) {

	h0 := make([]float64, len(ph.event[stratum]))

	wgt := ph.weights()

	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	elp := 0.0
	for k := range ph.etimes[stratum] {

		// Update for new entries
		for _, i := range ph.enter[stratum][k] {
			if wgt != nil {
				elp += wgt[i] * math.Exp(lp[i])
			} else {
				elp += math.Exp(lp[i])
			}
		}

		d := float64(len(ph.event[stratum][k]))
		if wgt != nil {
			d = 0
			for _, i := range ph.event[stratum][k] {
				d += wgt[i]
			}
		}
		h0[k] = d / elp

		// Update for new exits
		for _, i := range ph.exit[stratum][k] {
			if wgt != nil {
				elp -= wgt[i] * math.Exp(lp[i])
			} else {
				elp -= math.Exp(lp[i])
			}
		}
	}
	h1 := make([]float64, len(h0))
	for i := 1; i < len(h0); i++ {
		h1[i] = h1[i-1] + h0[i-1]
	}

	return ph.etimes[stratum], h1
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// Score computes the score vector for the proportional hazards
// regression model at the given parameter setting.
func (ph *PHReg) Score(params statmodel.Parameter, score []float64) {

	coeff := params.GetCoeff()
	switch ph.ties {
	case Breslow:
		ph.breslowScore(coeff, score)
	default:
		ph.efronScore(coeff, score)
	}

	// Account for L2 weights if present.
	if len(ph.l2wgt) > 0 {
		for j, x := range coeff {
			score[j] -= 2 * ph.l2wgt[j] * x
		}
	}
}

// breslowScore calculates the score vector for the proportional
// hazards regression model at the given parameter values, using the
// Breslow approach to resolving ties.
func (ph *PHReg) breslowScore(params, score []float64) {

	zero(score)

	wgt := ph.weights()
	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	for s, ix := range ph.stratumix {

		for j := 0; j < len(ph.xpos); j++ {
			score[j] += ph.sumx[s][j]
		}

		// We can add any constant here due to invariance in
		// the partial likelihood.
		mx := floats.Max(lp[ix[0]:ix[1]])
		for i := ix[0]; i < ix[1]; i++ {
			lp[i] = math.Exp(lp[i] - mx)
		}
		if wgt != nil {
			for i := ix[0]; i < ix[1]; i++ {
				lp[i] *= wgt[i]
			}
		}

		rlp := float64(0)
		rlpv := make([]float64, len(ph.xpos))
		for q := range ph.etimes[s] {

			// Update for new entries
			for _, i := range ph.enter[s][q] {
				rlp += lp[i]
				for j, k := range ph.xpos {
					rlpv[j] += lp[i] * ph.data[k][i]
				}
			}

			d := float64(len(ph.event[s][q]))
			if wgt != nil {
				d = 0
				for _, i := range ph.event[s][q] {
					d += wgt[i]
				}
			}
			floats.AddScaledTo(score, score, -d/rlp, rlpv)

			// Update for new exits
			for _, i := range ph.exit[s][q] {
				rlp -= lp[i]
				for j, k := range ph.xpos {
					rlpv[j] -= lp[i] * ph.data[k][i]
				}
			}
		}
	}
}

// Hessian computes the Hessian matrix for the model evaluated at the
// given parameter setting.  The Hessian type parameter is not used
// here.
func (ph *PHReg) Hessian(params statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	coeff := params.GetCoeff()
	switch ph.ties {
	case Breslow:
		ph.breslowHess(coeff, hess)
	default:
		ph.efronHess(coeff, hess)
	}

	// Account for L2 weights if present.
	p := len(coeff)
	if len(ph.l2wgt) > 0 {
		for j := 0; j < len(coeff); j++ {
			k := j*p + j
			hess[k] -= 2 * ph.l2wgt[j]
		}
	}
}

// riskMoments accumulates the zeroth, first and second moments of the
// covariates over a set of cases, weighted by elp.  sign is +1 to add
// the cases and -1 to remove them.
func (ph *PHReg) riskMoments(ii []int, elp []float64, sign float64, d0 *float64, d1s, d2s []float64) {

	p := len(ph.xpos)
	for _, i := range ii {
		u0 := sign * elp[i]
		*d0 += u0
		for j1, k1 := range ph.xpos {
			x1 := ph.data[k1]
			d1s[j1] += u0 * x1[i]
			for j2 := 0; j2 <= j1; j2++ {
				x2 := ph.data[ph.xpos[j2]]
				u := u0 * x1[i] * x2[i]
				d2s[j1*p+j2] += u
				if j2 != j1 {
					d2s[j2*p+j1] += u
				}
			}
		}
	}
}

// breslowHess calculates the Hessian matrix for the proportional
// hazards regression model at the given parameter values.
func (ph *PHReg) breslowHess(params []float64, hess []float64) {

	zero(hess)

	wgt := ph.weights()
	lp := make([]float64, ph.NumObs())
	ph.linpred(params, lp)

	p := len(ph.xpos)
	d1s := make([]float64, p)
	d2s := make([]float64, p*p)

	for s, ix := range ph.stratumix {

		// We can add any constant here due to invariance in
		// the partial likelihood.
		mx := floats.Max(lp[ix[0]:ix[1]])
		for i := ix[0]; i < ix[1]; i++ {
			lp[i] = math.Exp(lp[i] - mx)
		}
		if wgt != nil {
			for i := ix[0]; i < ix[1]; i++ {
				lp[i] *= wgt[i]
			}
		}

		rlp := float64(0)

		zero(d1s)
		zero(d2s)

		for k := 0; k < len(ph.etimes[s]); k++ {

			// Update for new entries
			ph.riskMoments(ph.enter[s][k], lp, 1, &rlp, d1s, d2s)

			d := float64(len(ph.event[s][k]))
			if wgt != nil {
				d = 0
				for _, i := range ph.event[s][k] {
					d += wgt[i]
				}
			}

			jj := 0
			for j1 := 0; j1 < p; j1++ {
				for j2 := 0; j2 < p; j2++ {
					hess[jj] -= d * d2s[j1*p+j2] / rlp
					hess[jj] += d * d1s[j1] * d1s[j2] / (rlp * rlp)
					jj++
				}
			}

			// Update for new exits
			ph.riskMoments(ph.exit[s][k], lp, -1, &rlp, d1s, d2s)
		}
	}
}

func negative(x []float64) {
	for i := 0; i < len(x); i++ {
		x[i] *= -1
	}
}

// failMessage logs information that can help diagnose optimization failures.
func (ph *PHReg) failMessage(optrslt *optimize.Result) {

	xna := ph.Xnames()
	for j, x := range optrslt.X {
		ph.log.Warn("current point",
			zap.String("variable", xna[j]), zap.Float64("value", x),
			zap.Float64("gradient", optrslt.Gradient[j]))
	}

	for j, k := range ph.xpos {
		mn, sd := stat.MeanStdDev(ph.data[k], ph.weights())
		ph.log.Warn("covariate", zap.String("variable", xna[j]),
			zap.Float64("mean", mn), zap.Float64("sd", sd))
	}

	time := ph.data[ph.timepos]
	status := ph.data[ph.statuspos]
	for s, ix := range ph.stratumix {
		n := ix[1] - ix[0]
		var e float64
		for i := ix[0]; i < ix[1]; i++ {
			e += status[i]
		}
		fields := []zap.Field{
			zap.Int("stratum", s+1), zap.Int("size", n), zap.Float64("events", e),
			zap.Float64("event_rate", e/float64(n)),
			zap.Float64("mean_time", stat.Mean(time[ix[0]:ix[1]], nil)),
		}
		if ph.entrypos != -1 {
			fields = append(fields,
				zap.Float64("mean_entry", stat.Mean(ph.data[ph.entrypos][ix[0]:ix[1]], nil)))
		}
		ph.log.Warn("stratum", fields...)
	}
}

// Fit fits the model to the data.
func (ph *PHReg) Fit() (*PHResults, error) {

	nvar := len(ph.xpos)

	start := ph.start
	if start == nil {
		start = make([]float64, nvar)
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -ph.LogLike(&PHParameter{x}, false)
		},
		Grad: func(grad, x []float64) {
			ph.Score(&PHParameter{x}, grad)
			negative(grad)
		},
	}

	settings := ph.optsettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-5,
		}
	}

	xna := ph.Xnames()

	optrslt, err := optimize.Minimize(p, start, settings, ph.optmethod)
	if err != nil {
		if optrslt == nil {
			return nil, fmt.Errorf("PHReg: %w", err)
		}
		ph.failMessage(optrslt)
		return nil, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}
	if err = optrslt.Status.Err(); err != nil {
		ph.failMessage(optrslt)
		return nil, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}

	ph.log.Debug("PHReg fit",
		zap.String("ties", ph.ties.String()),
		zap.String("status", optrslt.Status.String()),
		zap.Int("iterations", optrslt.Stats.MajorIterations),
		zap.Float64("loglike", -optrslt.F))

	param := make([]float64, len(optrslt.X))
	copy(param, optrslt.X)

	ll := -optrslt.F
	vcov, err := statmodel.GetVcov(ph, &PHParameter{param})
	if err != nil {
		return nil, fmt.Errorf("PHReg: %w", err)
	}

	results := &PHResults{
		BaseResults: statmodel.NewBaseResults(ph, ll, param, xna, vcov),
		nullLL:      ph.LogLike(&PHParameter{make([]float64, nvar)}, false),
	}

	return results, nil
}

// PHResults describes the results of a proportional hazards model.
type PHResults struct {
	statmodel.BaseResults

	// The log partial likelihood with all coefficients equal to zero
	nullLL float64
}

// NullLogLike returns the log partial likelihood of the model with
// all coefficients equal to zero.
func (rslt *PHResults) NullLogLike() float64 {
	return rslt.nullLL
}

// HazardRatios returns exp(coef) for each covariate.
func (rslt *PHResults) HazardRatios() []float64 {
	var hr []float64
	for _, b := range rslt.Params() {
		hr = append(hr, math.Exp(b))
	}
	return hr
}

// HazardRatioConfInt returns confidence limits for the hazard ratios.
func (rslt *PHResults) HazardRatioConfInt(level float64) ([]float64, []float64) {
	lcb, ucb := rslt.ConfInt(level)
	for i := range lcb {
		lcb[i] = math.Exp(lcb[i])
		ucb[i] = math.Exp(ucb[i])
	}
	return lcb, ucb
}

// NegLog2P returns -log2 of the p-values, the bits of evidence
// against each coefficient being zero.
func (rslt *PHResults) NegLog2P() []float64 {
	var b []float64
	for _, p := range rslt.PValues() {
		b = append(b, -math.Log2(p))
	}
	return b
}

// LLRTest returns the likelihood ratio statistic comparing the fitted
// model to the null model, its degrees of freedom and the p-value.
func (rslt *PHResults) LLRTest() (float64, int, float64) {
	lr := 2 * (rslt.LogLike() - rslt.nullLL)
	df := len(rslt.Params())
	return lr, df, distuv.ChiSquared{K: float64(df)}.Survival(lr)
}

// PartialAIC returns -2 times the log partial likelihood plus twice
// the number of coefficients.
func (rslt *PHResults) PartialAIC() float64 {
	return -2*rslt.LogLike() + 2*float64(len(rslt.Params()))
}

// Concordance returns Harrell's concordance index of the fitted linear
// predictor with the observed times.
func (rslt *PHResults) Concordance() float64 {
	ph := rslt.Model().(*PHReg)
	score, _ := rslt.FittedValues(nil)
	c, _ := HarrellC(ph.data[ph.timepos], ph.data[ph.statuspos], score)
	return c
}

func (rslt *PHResults) summaryStats() (int, float64, int, int) {

	ph := rslt.Model().(*PHReg)
	data := ph.Dataset()

	status := data[ph.statuspos]
	wgt := ph.weights()

	var entry []statmodel.Dtype
	if ph.entrypos != -1 {
		entry = data[ph.entrypos]
	}

	var n, pe, ns int
	var e float64
	for _, ix := range ph.stratumix {
		n += ix[1] - ix[0]
		for i := ix[0]; i < ix[1]; i++ {
			if wgt != nil {
				e += wgt[i] * status[i]
			} else {
				e += status[i]
			}
		}
		if entry != nil {
			for i := ix[0]; i < ix[1]; i++ {
				if entry[i] > 0 {
					pe++
				}
			}
		}
		ns++
	}

	return n, e, pe, ns
}

// PHSummary summarizes a fitted proportional hazards regression model.
type PHSummary struct {

	// The model
	ph *PHReg

	// The results structure
	results *PHResults

	// Names of the time and status columns
	timeVar, statusVar string

	// Messages that are appended to the table
	messages []string
}

// Summary displays a summary table of the model results.
func (rslt *PHResults) Summary() *PHSummary {

	ph := rslt.Model().(*PHReg)

	return &PHSummary{
		ph:        ph,
		results:   rslt,
		timeVar:   ph.varnames[ph.timepos],
		statusVar: ph.varnames[ph.statuspos],
	}
}

// AddMessage appends a line of text below the table.
func (phs *PHSummary) AddMessage(msg string) *PHSummary {
	phs.messages = append(phs.messages, msg)
	return phs
}

// String returns a string representation of a summary table for the model.
func (phs *PHSummary) String() string {

	n, e, pe, ns := phs.results.summaryStats()

	ph := phs.ph
	rslt := phs.results
	sum := &statmodel.SummaryTable{
		Msg: append([]string(nil), phs.messages...),
	}

	sum.Title = "Proportional hazards regression analysis"

	sum.Top = append(sum.Top, fmt.Sprintf("duration col: %s", phs.timeVar))
	sum.Top = append(sum.Top, fmt.Sprintf("event col: %s", phs.statusVar))
	sum.Top = append(sum.Top, fmt.Sprintf("number of observations: %d", n))
	sum.Top = append(sum.Top, fmt.Sprintf("number of events observed: %.0f", e))
	sum.Top = append(sum.Top, fmt.Sprintf("partial log-likelihood: %.2f", rslt.LogLike()))
	sum.Top = append(sum.Top, fmt.Sprintf("ties: %s", ph.ties))
	if ns > 1 {
		sum.Top = append(sum.Top, fmt.Sprintf("strata: %d", ns))
	}

	fs := statmodel.FmtStrings
	fn := func(x interface{}, h string) []string {
		y := x.([]float64)
		var s []string
		for i := range y {
			s = append(s, fmt.Sprintf("%10.2f", y[i]))
		}
		return s
	}
	fp := func(x interface{}, h string) []string {
		y := x.([]float64)
		var s []string
		for i := range y {
			switch {
			case y[i] < 0.005:
				s = append(s, fmt.Sprintf("%10s", "<0.005"))
			default:
				s = append(s, fmt.Sprintf("%10.2f", y[i]))
			}
		}
		return s
	}

	lcb, ucb := rslt.ConfInt(0.95)
	hlcb, hucb := rslt.HazardRatioConfInt(0.95)
	cmp := make([]float64, len(rslt.Params()))

	sum.ColNames = []string{"covariate", "coef", "exp(coef)", "se(coef)", "coef lower 95%",
		"coef upper 95%", "exp(coef) lower 95%", "exp(coef) upper 95%", "cmp to", "z", "p",
		"-log2(p)"}
	sum.ColFmt = []statmodel.Fmter{fs, fn, fn, fn, fn, fn, fn, fn, fn, fn, fp, fn}
	sum.Cols = []interface{}{rslt.Names(), rslt.Params(), rslt.HazardRatios(), rslt.StdErr(),
		lcb, ucb, hlcb, hucb, cmp, rslt.ZScores(), rslt.PValues(), rslt.NegLog2P()}

	lr, df, lrp := rslt.LLRTest()
	sum.Msg = append(sum.Msg,
		fmt.Sprintf("Concordance = %.2f", rslt.Concordance()),
		fmt.Sprintf("Partial AIC = %.2f", rslt.PartialAIC()),
		fmt.Sprintf("log-likelihood ratio test = %.2f on %d df", lr, df),
		fmt.Sprintf("-log2(p) of ll-ratio test = %.2f", -math.Log2(lrp)),
	)

	if pe > 0 {
		msg := fmt.Sprintf("%d observations have positive entry times", pe)
		sum.Msg = append(sum.Msg, msg)
	}

	if ph.skipEarlyCensor > 0 {
		msg := fmt.Sprintf("%d observations dropped for being censored before the first event", ph.skipEarlyCensor)
		sum.Msg = append(sum.Msg, msg)
	}

	return sum.String()
}
