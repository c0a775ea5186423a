package duration

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/dexinGONG/biostat/statmodel"
)

func data1() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 1, 2, 3, 3, 4},
		{1, 1, 0, 0, 1, 0},
		{4, 2, 5, 6, 6, 5},
	}

	varnames := []string{"Time", "Status", "X"}

	return statmodel.NewDataset(da, varnames)
}

func data2() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{0, 1, 0, 1, 3, 2, 1, 2, 1, 3, 5},
		{1, 2, 4, 5, 4, 5, 6, 4, 6, 4, 8},
		{1, 1, 0, 1, 1, 0, 1, 1, 1, 0, 1},
		{4, 2, 3, 5, 1, 3, 5, 4, 2, 6, 6},
		{5, 2, 3, 1, 4, 2, 2, 5, 1, 8, 4},
		{1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2},
	}

	varnames := []string{"Entry", "Time", "Status", "X1", "X2", "Stratum"}

	return statmodel.NewDataset(da, varnames)
}

func data3() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{1, 1, 2, 3, 3, 4, 5, 5, 6, 7},
		{1, 1, 0, 0, 1, 0, 0, 1, 1, 1},
		{4, 2, 5, 6, 6, 5, 4, 3, 3, 5},
		{3, 2, 2, 0, 5, 4, 5, 6, 5, 4},
	}

	varnames := []string{"Time", "Status", "X1", "X2"}

	return statmodel.NewDataset(da, varnames)
}

// data5 has 100 cases in 10 strata, with many ties.
func data5() statmodel.Dataset {

	var time, status, stratum, x1, x2 []statmodel.Dtype

	for i := 0; i < 100; i++ {
		x1 = append(x1, statmodel.Dtype(i%3))
		x2 = append(x2, statmodel.Dtype(i%7)-3)
		stratum = append(stratum, statmodel.Dtype(i%10))
		if i%5 == 0 {
			status = append(status, 0)
		} else {
			status = append(status, 1)
		}
		time = append(time, 10/statmodel.Dtype(4+i%3+i%7-3)+0.5*(statmodel.Dtype(i%6)-2))
	}

	da := [][]statmodel.Dtype{time, status, x1, x2, stratum}
	varnames := []string{"time", "status", "x1", "x2", "stratum"}

	return statmodel.NewDataset(da, varnames)
}

// trialData is a small two arm trial with a few baseline covariates.
func trialData() statmodel.Dataset {

	time := append(append([]float64(nil), timeA...), timeB...)
	status := append(append([]float64(nil), statA...), statB...)
	n := len(time)

	cols := make([][]statmodel.Dtype, 6)
	for j := range cols {
		cols[j] = make([]statmodel.Dtype, n)
	}
	for i := 0; i < n; i++ {
		cols[0][i] = float64(1 + (i*7)%3%2)
		cols[1][i] = float64(40 + (i*13)%31)
		cols[2][i] = float64(50 + (i*17)%23)
		cols[3][i] = 1
		if i >= len(timeA) {
			cols[3][i] = 2
		}
		cols[4][i] = float64(1 + (i*5)%3)
		cols[5][i] = float64((i * 11) % 4 / 2)
	}

	da := append(cols, time, status)
	varnames := []string{"sex", "age", "weight", "group", "grade", "meta", "time", "status"}

	return statmodel.NewDataset(da, varnames)
}

func breslowConfig() *PHRegConfig {
	c := DefaultPHRegConfig()
	c.Ties = Breslow
	return c
}

// Basic check, no strata, weights, or entry times.
func TestSimple(t *testing.T) {

	da := data1()
	ph, err := NewPHReg(da, "Time", "Status", []string{"X"}, breslowConfig())
	require.NoError(t, err)

	// Create an equivalent model that has L2 penalty weights all set to zero.
	config := breslowConfig()
	config.L2Penalty = map[string]float64{"X": 0}
	phr, err := NewPHReg(da, "Time", "Status", []string{"X"}, config)
	require.NoError(t, err)

	for _, pq := range []*PHReg{ph, phr} {
		if fmt.Sprintf("%v", pq.stratumix) != "[[0 6]]" {
			t.Fail()
		}
		if fmt.Sprintf("%v", pq.etimes) != "[[1 3]]" {
			t.Fail()
		}
		if fmt.Sprintf("%v", pq.enter) != "[[[0 1 2 3 4 5] []]]" {
			t.Fail()
		}
		if fmt.Sprintf("%v", pq.exit) != "[[[0 1 2] [3 4]]]" {
			t.Fail()
		}
		if fmt.Sprintf("%v", pq.event) != "[[[0 1] [4]]]" {
			t.Fail()
		}
	}

	ll := -14.415134793348063
	for _, pq := range []*PHReg{ph, phr} {
		if math.Abs(pq.LogLike(&PHParameter{[]float64{2}}, false)-ll) > 1e-5 {
			t.Fail()
		}
	}

	ll = -8.9840993267811093
	for _, pq := range []*PHReg{ph, phr} {
		if math.Abs(pq.breslowLogLike([]float64{1})-ll) > 1e-5 {
			t.Fail()
		}
	}

	score := make([]float64, 1)
	sc := -5.66698338
	for _, pq := range []*PHReg{ph, phr} {
		pq.Score(&PHParameter{[]float64{2}}, score)
		if math.Abs(score[0]-sc) > 1e-5 {
			t.Fail()
		}
	}

	sc = -5.09729328
	for _, pq := range []*PHReg{ph, phr} {
		pq.breslowScore([]float64{1}, score)
		if math.Abs(score[0]-sc) > 1e-5 {
			t.Fail()
		}
	}

	hv := -0.93879427
	hess := make([]float64, 1)
	for _, pq := range []*PHReg{ph, phr} {
		pq.Hessian(&PHParameter{[]float64{1}}, statmodel.ObsHess, hess)
		if math.Abs(hess[0]-hv) > 1e-5 {
			t.Fail()
		}
	}
}

func TestSimpleEfron(t *testing.T) {

	ph, err := NewPHReg(data1(), "Time", "Status", []string{"X"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Efron, ph.Ties())

	score := make([]float64, 1)
	hess := make([]float64, 1)
	for _, r := range []struct {
		b, ll, score, hess float64
	}{
		{0, -4.499809670330265, -3.333333333333334, -3.5111111111111057},
		{1, -8.957150821266985, -5.148228290129931, -0.8407774408158204},
		{2, -14.411052974510067, -5.6747594028160675, -0.31358303093632145},
	} {
		par := &PHParameter{[]float64{r.b}}
		ph.Score(par, score)
		ph.Hessian(par, statmodel.ObsHess, hess)
		assert.InDelta(t, r.ll, ph.LogLike(par, false), 1e-10)
		assert.InDelta(t, r.score, score[0], 1e-10)
		assert.InDelta(t, r.hess, hess[0], 1e-10)
	}
}

func TestStratified1(t *testing.T) {

	config := breslowConfig()
	config.EntryVar = "Entry"
	config.StrataVar = "Stratum"

	da := data2()
	ph, err := NewPHReg(da, "Time", "Status", []string{"X1", "X2"}, config)
	if err != nil {
		t.Fatal(err)
	}

	expected := "[[1 2 4 5] [4 6 8]]"
	if fmt.Sprintf("%v", ph.etimes) != expected {
		t.Logf("etimes do not match\n")
		t.Logf("Got      %v\n", ph.etimes)
		t.Logf("Expected %v\n", expected)
		t.Fail()
	}

	expected = "[[0 5] [5 11]]"
	if fmt.Sprintf("%v", ph.stratumix) != expected {
		t.Logf("Stratum boundaries do not match\n")
		t.Logf("Got      %v\n", ph.stratumix)
		t.Logf("Expected %v\n", expected)
		t.Fail()
	}

	expected = "[[[0 1 2 3] [] [4] []] [[5 6 7 8 9] [10] []]]"
	if fmt.Sprintf("%v", ph.enter) != expected {
		t.Logf("Entry times do not match\n")
		t.Logf("Got      %v\n", ph.enter)
		t.Logf("Expected %v\n", expected)
		t.Fail()
	}

	expected = "[[[0] [1] [2 4] [3]] [[5 7 9] [6 8] [10]]]"
	if fmt.Sprintf("%v", ph.exit) != expected {
		t.Logf("Exit times do not match\n")
		t.Logf("Got      %v\n", ph.exit)
		t.Logf("Expected %v\n", expected)
		t.Fail()
	}

	expected = "[[[0] [1] [4] [3]] [[7] [6 8] [10]]]"
	if fmt.Sprintf("%v", ph.event) != expected {
		t.Logf("Event times do not match\n")
		t.Logf("Got      %v\n", ph.event)
		t.Logf("Expected %v\n", expected)
		t.Fail()
	}

	ll := -26.950282147164277
	bl := ph.breslowLogLike([]float64{1, 2})
	if math.Abs(bl-ll) > 1e-5 {
		t.Logf("Breslow log-likelihood does not match\n")
		t.Logf("Got      %v\n", bl)
		t.Logf("Expected %v\n", ll)
		t.Fail()
	}

	ll = -32.44699788270529
	bl = ph.breslowLogLike([]float64{2, 1})
	if math.Abs(bl-ll) > 1e-5 {
		t.Logf("Breslow log-likelihood does not match\n")
		t.Logf("Got      %v\n", bl)
		t.Logf("Expected %v\n", ll)
		t.Fail()
	}

	score := make([]float64, 2)
	sc := []float64{-9.35565184, -8.0251037}
	ph.breslowScore([]float64{1, 2}, score)
	if !floats.EqualApprox(score, sc, 1e-5) {
		t.Logf("Breslow score does not match\n")
		t.Logf("Got      %v\n", score)
		t.Logf("Expected %v\n", sc)
		t.Fail()
	}

	sc = []float64{-13.5461984, -3.9178062}
	ph.breslowScore([]float64{2, 1}, score)
	if !floats.EqualApprox(score, sc, 1e-5) {
		t.Logf("Breslow score does not match\n")
		t.Logf("Got      %v\n", score)
		t.Logf("Expected %v\n", sc)
		t.Fail()
	}

	hess := make([]float64, 4)
	ph.breslowHess([]float64{1, 2}, hess)
	hs := []float64{-1.95989147, 1.23657039, 1.23657039, -1.13182375}
	if !floats.EqualApprox(hess, hs, 1e-5) {
		t.Logf("Breslow Hessian does not match\n")
		t.Logf("Got      %v\n", hess)
		t.Logf("Expected %v\n", hs)
		t.Fail()
	}

	ph.breslowHess([]float64{2, 1}, hess)
	hs = []float64{-1.12887225, 1.21185482, 1.21185482, -2.73825289}
	if !floats.EqualApprox(hess, hs, 1e-5) {
		t.Logf("Breslow Hessian does not match\n")
		t.Logf("Got      %v\n", hess)
		t.Logf("Expected %v\n", hs)
		t.Fail()
	}
}

func TestStratified2(t *testing.T) {

	c := breslowConfig()
	c.StrataVar = "stratum"
	c.Log = zaptest.NewLogger(t)

	ph, err := NewPHReg(data5(), "time", "status", []string{"x1", "x2"}, c)
	require.NoError(t, err)
	result, err := ph.Fit()
	require.NoError(t, err)

	// Smoke test
	_ = result.Summary().String()

	par := result.Params()
	epar := []float64{0.1096391, 0.61394886}
	if !floats.EqualApprox(par, epar, 1e-5) {
		t.Logf("Parameter estimates differ:\n")
		t.Logf("Got      %v\n", par)
		t.Logf("Expected %v\n", epar)
		t.Fail()
	}

	se := result.StdErr()
	ese := []float64{0.17171136, 0.09304276}
	if !floats.EqualApprox(se, ese, 1e-5) {
		t.Logf("Standard errors differ:\n")
		t.Logf("Got      %v\n", se)
		t.Logf("Expected %v\n", ese)
		t.Fail()
	}
}

func TestPhregOptMethods(t *testing.T) {

	data := data5()

	var par [][]float64
	var std [][]float64
	for _, m := range []optimize.Method{
		new(optimize.BFGS),
		new(optimize.LBFGS),
		new(optimize.CG),
	} {
		c := DefaultPHRegConfig()
		c.OptMethod = m
		c.StrataVar = "stratum"
		ph, err := NewPHReg(data, "time", "status", []string{"x1", "x2"}, c)
		require.NoError(t, err)
		result, err := ph.Fit()
		require.NoError(t, err)
		par = append(par, result.Params())
		std = append(std, result.StdErr())
	}

	// Compare each method to the first method
	for i := 1; i < len(par); i++ {
		if !floats.EqualApprox(par[0], par[i], 1e-5) {
			t.Logf("Parameter estimates differ:\n")
			t.Logf("Got       %v\n", par[i])
			t.Logf("Expected %v\n", par[0])
			t.Fail()
		}
		if !floats.EqualApprox(std[0], std[i], 1e-5) {
			t.Logf("Standard errors differ:\n")
			t.Logf("Got       %v\n", std[i])
			t.Logf("Expected %v\n", std[0])
			t.Fail()
		}
	}
}

func TestPhregL2(t *testing.T) {

	da := data3()
	xn := []string{"X1", "X2"}

	ph0, err := NewPHReg(da, "Time", "Status", xn, nil)
	require.NoError(t, err)
	rslt0, err := ph0.Fit()
	require.NoError(t, err)

	// Heavier penalties shrink the coefficients towards zero.
	prev := floats.Norm(rslt0.Params(), 2)
	for _, wt := range []float64{0.1, 1, 10} {
		c := DefaultPHRegConfig()
		c.L2Penalty = map[string]float64{"X1": wt, "X2": wt}
		ph, err := NewPHReg(da, "Time", "Status", xn, c)
		require.NoError(t, err)
		rslt, err := ph.Fit()
		require.NoError(t, err)

		nrm := floats.Norm(rslt.Params(), 2)
		assert.Less(t, nrm, prev)
		prev = nrm

		// The penalized score vanishes at the estimate.
		score := make([]float64, 2)
		ph.Score(&PHParameter{rslt.Params()}, score)
		assert.InDeltaSlice(t, []float64{0, 0}, score, 1e-4)
	}
}

func TestWeights(t *testing.T) {

	// data1 and data2 are equivalent after taking the weights into account
	da1 := [][]statmodel.Dtype{
		{1, 1, 2, 3, 3, 4},
		{1, 1, 0, 0, 1, 0},
		{4, 2, 5, 6, 6, 5},
		{1, 2, 1, 2, 1, 2},
	}
	varnames := []string{"Time", "Status", "X", "W"}
	data1 := statmodel.NewDataset(da1, varnames)

	// "Unrolled" version of data1.
	da2 := [][]statmodel.Dtype{
		{1, 1, 1, 2, 3, 3, 3, 4, 4},
		{1, 1, 1, 0, 0, 0, 1, 0, 0},
		{4, 2, 2, 5, 6, 6, 6, 5, 5},
		{1, 1, 1, 1, 1, 1, 1, 1, 1},
	}
	data2 := statmodel.NewDataset(da2, varnames)

	data3 := statmodel.NewDataset(da2[0:3], varnames[0:3])

	c := breslowConfig()
	c.WeightVar = "W"

	ph1, err := NewPHReg(data1, "Time", "Status", []string{"X"}, c)
	require.NoError(t, err)
	ph2, err := NewPHReg(data2, "Time", "Status", []string{"X"}, c)
	require.NoError(t, err)
	ph3, err := NewPHReg(data3, "Time", "Status", []string{"X"}, breslowConfig())
	require.NoError(t, err)

	rslt1, err := ph1.Fit()
	require.NoError(t, err)
	rslt2, err := ph2.Fit()
	require.NoError(t, err)
	rslt3, err := ph3.Fit()
	require.NoError(t, err)

	if !floats.EqualApprox(rslt1.Params(), rslt2.Params(), 1e-5) {
		t.Fail()
	}

	if !floats.EqualApprox(rslt1.StdErr(), rslt2.StdErr(), 1e-5) {
		t.Fail()
	}

	if !floats.EqualApprox(rslt2.Params(), rslt3.Params(), 1e-5) {
		t.Fail()
	}

	if !floats.EqualApprox(rslt2.StdErr(), rslt3.StdErr(), 1e-5) {
		t.Fail()
	}
}

func TestBaselineHaz(t *testing.T) {

	n := 10000
	rng := rand.New(rand.NewSource(3909))

	time := make([]statmodel.Dtype, n)
	status := make([]statmodel.Dtype, n)
	x := make([]statmodel.Dtype, n)

	// kw is the Weibull shape parameter.  The cumulative baseline hazard function
	// evaluated at time t is t^kw.
	for _, kw := range []float64{1, 2} {

		// Create a covariate, but there is no covariate effect in this test.
		for i := range x {
			x[i] = statmodel.Dtype(0.2 * rng.NormFloat64())
		}

		for i := range time {
			time[i] = statmodel.Dtype(math.Pow(-math.Log(rng.Float64()), 1/kw))
			t := statmodel.Dtype(math.Pow(-math.Log(rng.Float64()), 1/kw))
			if time[i] > t {
				time[i] = t
				status[i] = 0
			} else {
				status[i] = 1
			}
		}

		da := [][]statmodel.Dtype{time, status, x}

		varnames := []string{"time", "status", "x"}
		data := statmodel.NewDataset(da, varnames)

		model, err := NewPHReg(data, "time", "status", []string{"x"}, breslowConfig())
		require.NoError(t, err)
		result, err := model.Fit()
		require.NoError(t, err)

		ti, bch := model.BaselineCumHaz(0, result.Params())

		// The ratios below should cluster around kw.
		var ra, rd float64
		for i := 1; i < len(bch); i++ {
			r := math.Log(bch[i]) / math.Log(ti[i])
			ra += r
			rd += math.Abs(r - kw)
		}
		ra /= float64(len(bch))
		rd /= float64(len(bch))

		if math.Abs(ra-kw) > 0.07 {
			t.Logf("Got      %v\n", ra)
			t.Logf("Expected %v\n", kw)
			t.Fail()
		}
		if rd > 0.6 {
			t.Logf("Got      %v\n", rd)
			t.Logf("Expected < 0.6\n")
			t.Fail()
		}
	}
}

func TestTrialEfron(t *testing.T) {

	da := trialData()

	c := DefaultPHRegConfig()
	c.Log = zaptest.NewLogger(t)
	ph, err := NewPHReg(da, "time", "status", []string{"group", "meta", "weight", "grade"}, c)
	require.NoError(t, err)

	rslt, err := ph.Fit()
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.5763969863014861, 0.8844352259839033,
		0.03708727672687137, 0.11698820159601628}, rslt.Params(), 1e-4)
	assert.InDeltaSlice(t, []float64{0.35495528584595654, 0.4048957088767062,
		0.03191680558977031, 0.21763719284928107}, rslt.StdErr(), 1e-4)
	assert.InDelta(t, -104.7140405878684, rslt.LogLike(), 1e-6)
	assert.InDeltaSlice(t, []float64{1.7796148888218326, 2.4216163392163823,
		1.0377835912407998, 1.1241061669536192}, rslt.HazardRatios(), 1e-4)

	// The null log likelihood does not depend on the covariates.
	null := ph.LogLike(&PHParameter{make([]float64, 4)}, false)
	assert.Equal(t, null, rslt.NullLogLike())
	lr, df, p := rslt.LLRTest()
	assert.InDelta(t, 2*(rslt.LogLike()-null), lr, 1e-12)
	assert.Equal(t, 4, df)
	assert.True(t, p > 0 && p < 1)

	assert.InDelta(t, 2*104.7140405878684+8, rslt.PartialAIC(), 1e-5)

	lo, hi := rslt.HazardRatioConfInt(0.95)
	for j, hr := range rslt.HazardRatios() {
		assert.Less(t, lo[j], hr)
		assert.Greater(t, hi[j], hr)
	}

	cc := rslt.Concordance()
	assert.True(t, cc > 0.5 && cc < 1)

	s := rslt.Summary().AddMessage("selected by stepwise search").String()
	for _, w := range []string{"duration col: time", "event col: status",
		"number of observations: 47", "number of events observed: 37",
		"ties: Efron", "exp(coef)", "Concordance", "Partial AIC",
		"selected by stepwise search"} {
		assert.Contains(t, s, w)
	}

	// The full model.
	ph, err = NewPHReg(da, "time", "status",
		[]string{"sex", "age", "weight", "group", "grade", "meta"}, nil)
	require.NoError(t, err)
	rslt, err = ph.Fit()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.8750689068096829, 0.006769234210022163,
		0.0323368282918283, 0.5953092351592758, -0.30547120178199366,
		0.8407343939695606}, rslt.Params(), 1e-4)
	assert.InDelta(t, -104.01163915041957, rslt.LogLike(), 1e-6)
}

func TestTrialBreslow(t *testing.T) {

	ph, err := NewPHReg(trialData(), "time", "status",
		[]string{"group", "meta", "weight", "grade"}, breslowConfig())
	require.NoError(t, err)

	rslt, err := ph.Fit()
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.559216055051967, 0.8708456631545868,
		0.036930518217416664, 0.11632082920413998}, rslt.Params(), 1e-4)
	assert.InDelta(t, -105.3503074189036, rslt.LogLike(), 1e-6)
	assert.Contains(t, rslt.Summary().String(), "ties: Breslow")
}

func TestStrataUnsorted(t *testing.T) {

	// Strata interleaved, the caller's columns stay as given.
	time := []float64{2, 3, 1, 5, 4, 6, 2, 7}
	status := []float64{1, 1, 0, 1, 1, 0, 1, 1}
	x := []float64{1, 0, 2, 1, 0, 3, 2, 1}
	strata := []float64{2, 1, 2, 1, 2, 1, 2, 1}
	da := statmodel.NewDataset([][]statmodel.Dtype{time, status, x, strata},
		[]string{"time", "status", "x", "s"})

	c := DefaultPHRegConfig()
	c.StrataVar = "s"
	ph, err := NewPHReg(da, "time", "status", []string{"x"}, c)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 3, 1, 5, 4, 6, 2, 7}, time)
	assert.Equal(t, []float64{2, 1, 2, 1, 2, 1, 2, 1}, strata)
	assert.Equal(t, "[[0 4] [4 8]]", fmt.Sprintf("%v", ph.stratumix))
	assert.Equal(t, []float64{3, 5, 6, 7, 2, 1, 4, 2}, ph.data[0])
}

func TestSkipLateEntry(t *testing.T) {

	// The last case enters and leaves between the event times 2 and 4,
	// so it never contributes.
	da1 := statmodel.NewDataset([][]statmodel.Dtype{
		{0, 0, 0, 0, 0, 2.5},
		{1, 2, 4, 5, 6, 3},
		{1, 1, 1, 0, 1, 0},
		{1, 3, 2, 0, 1, 5},
	}, []string{"entry", "time", "status", "x"})
	da2 := statmodel.NewDataset([][]statmodel.Dtype{
		{0, 0, 0, 0, 0},
		{1, 2, 4, 5, 6},
		{1, 1, 1, 0, 1},
		{1, 3, 2, 0, 1},
	}, []string{"entry", "time", "status", "x"})

	c := DefaultPHRegConfig()
	c.EntryVar = "entry"
	ph1, err := NewPHReg(da1, "time", "status", []string{"x"}, c)
	require.NoError(t, err)
	ph2, err := NewPHReg(da2, "time", "status", []string{"x"}, c)
	require.NoError(t, err)

	assert.True(t, ph1.skip[5])
	for _, b := range []float64{-1, 0, 0.5} {
		par := &PHParameter{[]float64{b}}
		assert.InDelta(t, ph2.LogLike(par, false), ph1.LogLike(par, false), 1e-12)
	}

	// A case censored before the first event is dropped and reported.
	da3 := statmodel.NewDataset([][]statmodel.Dtype{
		{0.5, 1, 2, 4, 5, 6},
		{0, 1, 1, 1, 0, 1},
		{4, 1, 3, 2, 0, 1},
	}, []string{"time", "status", "x"})
	ph3, err := NewPHReg(da3, "time", "status", []string{"x"}, nil)
	require.NoError(t, err)
	rslt, err := ph3.Fit()
	require.NoError(t, err)
	assert.True(t, strings.Contains(rslt.Summary().String(), "1 observations dropped"))
}

func TestNewPHRegErrors(t *testing.T) {

	da := data1()

	_, err := NewPHReg(da, "T", "Status", []string{"X"}, nil)
	assert.ErrorContains(t, err, "'T' not found")

	_, err = NewPHReg(da, "Time", "Status", nil, nil)
	assert.Error(t, err)

	_, err = NewPHReg(da, "Time", "Status", []string{"Z"}, nil)
	assert.ErrorContains(t, err, "not found")

	c := DefaultPHRegConfig()
	c.StrataVar = "S"
	_, err = NewPHReg(da, "Time", "Status", []string{"X"}, c)
	assert.ErrorContains(t, err, "'S' not found")

	c = DefaultPHRegConfig()
	c.Start = []float64{1, 2}
	_, err = NewPHReg(da, "Time", "Status", []string{"X"}, c)
	assert.Error(t, err)

	bad := statmodel.NewDataset([][]statmodel.Dtype{
		{1, 2, 3},
		{1, 2, 0},
		{1, 2, 3},
	}, []string{"Time", "Status", "X"})
	_, err = NewPHReg(bad, "Time", "Status", []string{"X"}, nil)
	assert.ErrorContains(t, err, "values other than 0 and 1")

	late := statmodel.NewDataset([][]statmodel.Dtype{
		{1, 2, 3},
		{1, 1, 0},
		{1, 2, 3},
		{0, 3, 1},
	}, []string{"Time", "Status", "X", "Entry"})
	c = DefaultPHRegConfig()
	c.EntryVar = "Entry"
	_, err = NewPHReg(late, "Time", "Status", []string{"X"}, c)
	assert.ErrorContains(t, err, "entry times")
}
