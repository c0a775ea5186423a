package glm

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func atPoint(f VecFunc) func(float64) float64 {
	return func(x float64) float64 {
		y := []float64{0}
		f([]float64{x}, y)
		return y[0]
	}
}

func TestLinks(t *testing.T) {

	mn := []float64{0.2, 0.35, 0.5, 0.65, 0.8}
	n := len(mn)

	for _, lt := range []LinkType{LogLink, IdentityLink, LogitLink, CloglogLink, RecipLink, RecipSquaredLink, ProbitLink} {
		link := NewLink(lt)
		if link == nil {
			t.Fatalf("link %d not defined", lt)
		}

		lp := make([]float64, n)
		back := make([]float64, n)
		link.Link(mn, lp)
		link.InvLink(lp, back)
		if !floats.EqualApprox(back, mn, 1e-10) {
			t.Errorf("%s: inverse link: %v != %v", link.Name, back, mn)
		}

		d1 := make([]float64, n)
		d2 := make([]float64, n)
		link.Deriv(mn, d1)
		link.Deriv2(mn, d2)
		for i, m := range mn {
			nd1 := fd.Derivative(atPoint(link.Link), m, &fd.Settings{Formula: fd.Central})
			nd2 := fd.Derivative(atPoint(link.Deriv), m, &fd.Settings{Formula: fd.Central})
			if !scalar.EqualWithinRel(d1[i], nd1, 1e-5) {
				t.Errorf("%s: derivative at %v: %v != %v", link.Name, m, d1[i], nd1)
			}
			if !scalar.EqualWithinAbsOrRel(d2[i], nd2, 1e-5, 1e-5) {
				t.Errorf("%s: second derivative at %v: %v != %v", link.Name, m, d2[i], nd2)
			}
		}
	}

	if NewLink(LinkType(99)) != nil {
		t.Errorf("unknown link type should be nil")
	}
}

func TestVariances(t *testing.T) {

	mn := []float64{0.2, 0.5, 0.8, 1.5}

	for _, vt := range []VarianceType{BinomialVar, IdentityVar, ConstantVar, SquaredVar, CubedVar} {
		vf := NewVariance(vt)
		t.Run(fmt.Sprint(vf.Name), func(t *testing.T) {
			dv := make([]float64, len(mn))
			vf.Deriv(mn, dv)
			for i, m := range mn {
				nd := fd.Derivative(atPoint(vf.Var), m, &fd.Settings{Formula: fd.Central})
				if !scalar.EqualWithinAbsOrRel(dv[i], nd, 1e-6, 1e-6) {
					t.Errorf("derivative at %v: %v != %v", m, dv[i], nd)
				}
			}
		})
	}
}
