package duration

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Efron's approximation to the partial likelihood.  At an event time
// with d tied events of total weight W, the risk set total R is
// replaced by R - (l/d)T for l = 0, ..., d-1, where T is the total
// over the tied cases, and each of the d terms enters with weight W/d.
// With no ties this is the Breslow likelihood.

// expLinpred sets elp to the weighted exponentiated linear predictor,
// centered within each stratum, and leaves the centered linear
// predictor in lp.
func (ph *PHReg) expLinpred(params, lp, elp []float64) {

	wgt := ph.weights()
	ph.linpred(params, lp)

	for _, ix := range ph.stratumix {
		if ix[1] == ix[0] {
			continue
		}
		mx := floats.Max(lp[ix[0]:ix[1]])
		for i := ix[0]; i < ix[1]; i++ {
			lp[i] -= mx
			elp[i] = math.Exp(lp[i])
			if wgt != nil {
				elp[i] *= wgt[i]
			}
		}
	}
}

// eventWeight returns the total case weight of the given rows.
func (ph *PHReg) eventWeight(ii []int) float64 {
	wgt := ph.weights()
	if wgt == nil {
		return float64(len(ii))
	}
	var w float64
	for _, i := range ii {
		w += wgt[i]
	}
	return w
}

// efronLogLike returns the log partial likelihood using Efron's
// method to resolve ties.
func (ph *PHReg) efronLogLike(params []float64) float64 {

	wgt := ph.weights()
	nobs := ph.NumObs()
	lp := make([]float64, nobs)
	elp := make([]float64, nobs)
	ph.expLinpred(params, lp, elp)

	var ql float64
	for s := range ph.stratumix {

		var rlp float64
		for k := range ph.etimes[s] {

			// Update for new entries
			for _, i := range ph.enter[s][k] {
				rlp += elp[i]
			}

			ev := ph.event[s][k]
			if len(ev) == 0 {
				continue
			}

			var tlp float64
			for _, i := range ev {
				if wgt != nil {
					ql += wgt[i] * lp[i]
				} else {
					ql += lp[i]
				}
				tlp += elp[i]
			}

			d := float64(len(ev))
			wd := ph.eventWeight(ev) / d
			for l := 0; l < len(ev); l++ {
				ql -= wd * math.Log(rlp-float64(l)/d*tlp)
			}

			// Update for new exits
			for _, i := range ph.exit[s][k] {
				rlp -= elp[i]
			}
		}
	}

	return ql
}

// efronScore calculates the score vector using Efron's method to
// resolve ties.
func (ph *PHReg) efronScore(params, score []float64) {

	zero(score)

	nobs := ph.NumObs()
	lp := make([]float64, nobs)
	elp := make([]float64, nobs)
	ph.expLinpred(params, lp, elp)

	p := len(ph.xpos)
	rlpv := make([]float64, p)
	tlpv := make([]float64, p)
	v := make([]float64, p)

	for s := range ph.stratumix {

		floats.Add(score, ph.sumx[s])

		var rlp float64
		zero(rlpv)
		for k := range ph.etimes[s] {

			// Update for new entries
			for _, i := range ph.enter[s][k] {
				rlp += elp[i]
				for j, c := range ph.xpos {
					rlpv[j] += elp[i] * ph.data[c][i]
				}
			}

			ev := ph.event[s][k]
			if len(ev) > 0 {
				var tlp float64
				zero(tlpv)
				for _, i := range ev {
					tlp += elp[i]
					for j, c := range ph.xpos {
						tlpv[j] += elp[i] * ph.data[c][i]
					}
				}

				d := float64(len(ev))
				wd := ph.eventWeight(ev) / d
				for l := 0; l < len(ev); l++ {
					f := float64(l) / d
					floats.AddScaledTo(v, rlpv, -f, tlpv)
					floats.AddScaled(score, -wd/(rlp-f*tlp), v)
				}
			}

			// Update for new exits
			for _, i := range ph.exit[s][k] {
				rlp -= elp[i]
				for j, c := range ph.xpos {
					rlpv[j] -= elp[i] * ph.data[c][i]
				}
			}
		}
	}
}

// efronHess calculates the Hessian matrix using Efron's method to
// resolve ties.
func (ph *PHReg) efronHess(params, hess []float64) {

	zero(hess)

	nobs := ph.NumObs()
	lp := make([]float64, nobs)
	elp := make([]float64, nobs)
	ph.expLinpred(params, lp, elp)

	p := len(ph.xpos)
	d1s := make([]float64, p)
	d2s := make([]float64, p*p)
	t1s := make([]float64, p)
	t2s := make([]float64, p*p)
	a := make([]float64, p)

	for s := range ph.stratumix {

		var rlp float64
		zero(d1s)
		zero(d2s)

		for k := range ph.etimes[s] {

			// Update for new entries
			ph.riskMoments(ph.enter[s][k], elp, 1, &rlp, d1s, d2s)

			ev := ph.event[s][k]
			if len(ev) > 0 {
				var tlp float64
				zero(t1s)
				zero(t2s)
				ph.riskMoments(ev, elp, 1, &tlp, t1s, t2s)

				d := float64(len(ev))
				wd := ph.eventWeight(ev) / d
				for l := 0; l < len(ev); l++ {
					f := float64(l) / d
					den := rlp - f*tlp
					for j := range a {
						a[j] = (d1s[j] - f*t1s[j]) / den
					}
					jj := 0
					for j1 := 0; j1 < p; j1++ {
						for j2 := 0; j2 < p; j2++ {
							hess[jj] -= wd * ((d2s[jj]-f*t2s[jj])/den - a[j1]*a[j2])
							jj++
						}
					}
				}
			}

			// Update for new exits
			ph.riskMoments(ph.exit[s][k], elp, -1, &rlp, d1s, d2s)
		}
	}
}
