package duration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LogRankResult holds the outcome of a log-rank test.
type LogRankResult struct {

	// The chi-square test statistic.
	Statistic float64

	// Degrees of freedom, the number of groups minus one.
	DF int

	// The p-value of the test.
	PValue float64

	// -log2(PValue), the number of bits of evidence against the null.
	NegLog2P float64

	// Observed and expected number of events in each group.
	Observed []float64
	Expected []float64

	// The confidence level the test was requested at.
	Level float64
}

// LogRank compares the survival distributions of two or more groups.
// time[g] and status[g] are the event or censoring times and the
// event indicators of group g;  status[g] may be nil if every case in
// the group has an event.  level is carried into the result for
// display.
func LogRank(time, status [][]float64, level float64) (*LogRankResult, error) {

	ng := len(time)
	if ng < 2 {
		return nil, errors.New("LogRank: at least two groups are needed")
	}
	if status != nil && len(status) != ng {
		return nil, fmt.Errorf("LogRank: %d time groups but %d status groups", ng, len(status))
	}

	// Pool the per-group event and removal counts by time.
	events := make([]map[float64]float64, ng)
	total := make([]map[float64]float64, ng)
	tm := make(map[float64]bool)
	for g := range time {
		var st []float64
		if status != nil {
			st = status[g]
		}
		if err := checkInput(time[g], st, nil, nil); err != nil {
			return nil, fmt.Errorf("LogRank: group %d: %w", g, err)
		}
		events[g] = make(map[float64]float64)
		total[g] = make(map[float64]float64)
		for i, t := range time[g] {
			if st == nil || st[i] == 1 {
				events[g][t]++
				tm[t] = true
			}
			total[g][t]++
		}
	}

	var etimes []float64
	for t := range tm {
		etimes = append(etimes, t)
	}
	sort.Float64s(etimes)

	// Risk set sizes per group, at each event time.
	nrisk := make([][]float64, ng)
	for g := range time {
		nrisk[g] = make([]float64, len(etimes))
		for i, t := range etimes {
			for _, u := range time[g] {
				if u >= t {
					nrisk[g][i]++
				}
			}
		}
	}

	rslt := &LogRankResult{
		DF:       ng - 1,
		Observed: make([]float64, ng),
		Expected: make([]float64, ng),
		Level:    level,
	}

	vc := make([]float64, ng*ng)
	for i, t := range etimes {
		var n, d float64
		for g := range time {
			n += nrisk[g][i]
			d += events[g][t]
		}
		for g := range time {
			rslt.Observed[g] += events[g][t]
			rslt.Expected[g] += d * nrisk[g][i] / n
		}
		if n <= 1 {
			continue
		}
		f := d * (n - d) / (n - 1)
		for g1 := 0; g1 < ng; g1++ {
			p1 := nrisk[g1][i] / n
			for g2 := 0; g2 < ng; g2++ {
				p2 := nrisk[g2][i] / n
				if g1 == g2 {
					vc[g1*ng+g2] += f * p1 * (1 - p1)
				} else {
					vc[g1*ng+g2] -= f * p1 * p2
				}
			}
		}
	}

	// The covariance of O - E is singular, so drop the last group.
	q := ng - 1
	u := make([]float64, q)
	vm := mat.NewSymDense(q, nil)
	for g1 := 0; g1 < q; g1++ {
		u[g1] = rslt.Observed[g1] - rslt.Expected[g1]
		for g2 := g1; g2 < q; g2++ {
			vm.SetSym(g1, g2, vc[g1*ng+g2])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(vm); !ok {
		return nil, errors.New("LogRank: the variance of observed minus expected is singular")
	}
	uv := mat.NewVecDense(q, u)
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, uv); err != nil {
		return nil, fmt.Errorf("LogRank: %v", err)
	}

	rslt.Statistic = mat.Dot(uv, &x)
	rslt.PValue = distuv.ChiSquared{K: float64(q)}.Survival(rslt.Statistic)
	rslt.NegLog2P = -math.Log2(rslt.PValue)

	return rslt, nil
}
