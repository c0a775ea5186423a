package glm

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/dexinGONG/biostat/statmodel"
)

func (glm *GLM) fitIRLS(start []float64) ([]float64, fitInfo, error) {

	linpred := glm.getNslice()
	mn := glm.getNslice()
	va := glm.getNslice()
	lderiv := glm.getNslice()
	irlsw := glm.getNslice()
	adjy := glm.getNslice()
	defer func() {
		for _, x := range [][]float64{linpred, mn, va, lderiv, irlsw, adjy} {
			glm.putNslice(x)
		}
	}()

	var nparam mat.VecDense

	nvar := glm.NumParams()

	xty := make([]float64, nvar)
	xtx := make([]float64, nvar*nvar)

	params := start

	var dev []float64

	xdat := make([][]statmodel.Dtype, len(glm.xpos))
	for j, k := range glm.xpos {
		xdat[j] = glm.data[k]
	}

	yda := glm.data[glm.ypos]
	wgt := glm.weights()
	var off []statmodel.Dtype
	if glm.offsetpos != -1 {
		off = glm.data[glm.offsetpos]
	}

	fi := fitInfo{method: "irls"}

	// IRLS iterations
	for iter := 0; iter < glm.maxiter; iter++ {

		zero(xtx)
		zero(xty)

		glm.linpred(params, linpred)

		if iter == 0 && glm.start == nil {
			glm.startingMu(yda, mn)
			glm.link.Link(mn, linpred)
			if off != nil {
				for i := range linpred {
					linpred[i] += off[i]
				}
			}
		} else {
			glm.link.InvLink(linpred, mn)
		}

		glm.link.Deriv(mn, lderiv)
		glm.vari.Var(mn, va)

		devi := glm.fam.Deviance(yda, mn, wgt, 1) + glm.penalty(params)

		// Create weights for WLS
		for i := range yda {
			irlsw[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
			if wgt != nil {
				irlsw[i] *= wgt[i]
			}
		}

		// Create an adjusted response for WLS
		for i := range yda {
			adjy[i] = linpred[i] + lderiv[i]*(yda[i]-mn[i])
			if off != nil {
				adjy[i] -= off[i]
			}
		}

		// Update the weighted moment matrices.  For large data sets, this is by far the
		// most expensive step.
		glm.irlsXprod(xdat, adjy, irlsw, xty, xtx)

		// Fill in the unfilled triangle of xtx
		for j1 := range glm.xpos {
			for j2 := j1 + 1; j2 < nvar; j2++ {
				xtx[j1*nvar+j2] = xtx[j2*nvar+j1]
			}
		}

		// With a ridge penalty the update is (X'WX + P)^-1 X'Wz, a
		// Newton step for the penalized log-likelihood.
		if glm.l2wgt != nil {
			nobs := float64(glm.NumObs())
			for j, v := range glm.l2wgt {
				xtx[j*nvar+j] += nobs * v
			}
		}

		// Update the parameters
		xtxm := mat.NewDense(nvar, nvar, xtx)
		xtyv := mat.NewVecDense(nvar, xty)
		if err := nparam.SolveVec(xtxm, xtyv); err != nil {
			return nil, fi, fmt.Errorf("IRLS iteration %d: %w: %v", iter+1, statmodel.ErrSingular, err)
		}
		params = append([]float64(nil), nparam.RawVector().Data...)
		fi.iterations = iter + 1

		glm.log.Debug("IRLS iteration", zap.Int("iteration", iter+1), zap.Float64("deviance", devi))

		// Check convergence
		dev = append(dev, devi)
		if len(dev) > 3 && math.Abs(dev[len(dev)-1]-dev[len(dev)-2]) < glm.dtol {
			fi.converged = true
			break
		}
	}

	if fi.converged {
		glm.log.Debug("IRLS converged", zap.Int("iterations", fi.iterations))
	} else {
		glm.log.Warn("IRLS did not converge", zap.Int("iterations", fi.iterations))
	}

	return params, fi, nil
}

// penalty returns the ridge penalty on the deviance scale, twice the
// amount subtracted from the log-likelihood.
func (glm *GLM) penalty(params []float64) float64 {
	if glm.l2wgt == nil {
		return 0
	}
	nobs := float64(glm.NumObs())
	var p float64
	for j, v := range glm.l2wgt {
		p += nobs * v * params[j] * params[j]
	}
	return p
}

func (glm *GLM) irlsXprod(xdat [][]statmodel.Dtype, adjy, irlsw, xty, xtx []float64) {

	if len(adjy) >= glm.concurrentIRLS {
		glm.irlsXprodConcurrent(xdat, adjy, irlsw, xty, xtx)
		return
	}

	nvar := len(xdat)

	for j1 := range glm.xpos {

		// Update x' w^-1 yadj
		xda := xdat[j1]
		var u float64
		for i := range adjy {
			u += adjy[i] * xda[i] * irlsw[i]
		}
		xty[j1] += u

		// Update x' w^-1 x
		for j2 := 0; j2 <= j1; j2++ {
			xdb := xdat[j2]
			var u float64
			for i := range xda {
				u += xda[i] * xdb[i] * irlsw[i]
			}
			xtx[j1*nvar+j2] += u
		}
	}
}

// irlsXprodConcurrent is a concurrent version of irlsXprod
func (glm *GLM) irlsXprodConcurrent(xdat [][]statmodel.Dtype, adjy, irlsw, xty, xtx []float64) {

	nvar := len(xdat)

	var wg sync.WaitGroup

	for j1 := range glm.xpos {

		// Update x' w^-1 yadj
		xda := xdat[j1]
		wg.Add(1)
		go func(j1 int) {
			defer wg.Done()
			var u float64
			for i := range adjy {
				u += adjy[i] * xda[i] * irlsw[i]
			}
			xty[j1] += u
		}(j1)

		// Update x' w^-1 x
		for j2 := 0; j2 <= j1; j2++ {
			xdb := xdat[j2]
			wg.Add(1)
			go func(j1, j2 int) {
				defer wg.Done()
				var u float64
				for i := range xda {
					u += xda[i] * xdb[i] * irlsw[i]
				}
				xtx[j1*nvar+j2] += u
			}(j1, j2)
		}
	}

	wg.Wait()
}

func (glm *GLM) startingMu(y []statmodel.Dtype, mn []float64) {

	switch glm.fam.TypeCode {
	case BinomialFamily:
		for i := range mn {
			mn[i] = (y[i] + 0.5) / 2
		}
	default:
		var q float64
		for i := range y {
			q += y[i]
		}
		q /= float64(len(y))
		for i := range mn {
			mn[i] = (y[i] + q) / 2
			if mn[i] < 0.1 {
				mn[i] = 0.1
			}
		}
	}
}
