package glm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// VecFunc is a function with two float64 array arguments.  The first
// argument is read and the result is written to the second.
type VecFunc func([]float64, []float64)

// Link specifies a GLM link function, mapping the mean value to the
// linear predictor.
type Link struct {
	Name string

	TypeCode LinkType

	// Link maps means to linear predictors and InvLink maps back.
	Link    VecFunc
	InvLink VecFunc

	// First and second derivatives of Link with respect to the mean.
	Deriv  VecFunc
	Deriv2 VecFunc
}

// LinkType is used to specify a GLM link function.
type LinkType uint8

// LogLink, etc. indicate the different link functions.
const (
	LogLink LinkType = iota
	IdentityLink
	LogitLink
	CloglogLink
	RecipLink
	RecipSquaredLink
	ProbitLink
)

// NewLink returns the link function object for the given link type,
// or nil if the type is unknown.
func NewLink(link LinkType) *Link {
	return links[link]
}

// elementwise lifts a scalar function to a VecFunc.
func elementwise(f func(float64) float64) VecFunc {
	return func(x, y []float64) {
		for i, v := range x {
			y[i] = f(v)
		}
	}
}

// power returns the VecFunc x -> s * x^p.
func power(p, s float64) VecFunc {
	return elementwise(func(v float64) float64 { return s * math.Pow(v, p) })
}

func expit(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func newLink(name string, tc LinkType, link, inv, d1, d2 VecFunc) *Link {
	return &Link{Name: name, TypeCode: tc, Link: link, InvLink: inv, Deriv: d1, Deriv2: d2}
}

var links = map[LinkType]*Link{

	LogLink: newLink("Log", LogLink,
		elementwise(math.Log),
		elementwise(math.Exp),
		power(-1, 1),
		power(-2, -1)),

	IdentityLink: newLink("Identity", IdentityLink,
		func(x, y []float64) { copy(y, x) },
		func(x, y []float64) { copy(y, x) },
		func(_, y []float64) { one(y) },
		func(_, y []float64) { zero(y) }),

	LogitLink: newLink("Logit", LogitLink,
		elementwise(func(p float64) float64 { return math.Log(p / (1 - p)) }),
		elementwise(expit),
		elementwise(func(p float64) float64 { return 1 / (p * (1 - p)) }),
		elementwise(func(p float64) float64 {
			v := p * (1 - p)
			return (2*p - 1) / (v * v)
		})),

	CloglogLink: newLink("CLogLog", CloglogLink,
		elementwise(func(p float64) float64 { return math.Log(-math.Log(1 - p)) }),
		elementwise(func(e float64) float64 { return 1 - math.Exp(-math.Exp(e)) }),
		elementwise(func(p float64) float64 { return 1 / ((p - 1) * math.Log(1-p)) }),
		elementwise(func(p float64) float64 {
			f := math.Log(1 - p)
			return -(1 + 1/f) / ((1 - p) * (1 - p) * f)
		})),

	RecipLink: newLink("Recip", RecipLink,
		power(-1, 1),
		power(-1, 1),
		power(-2, -1),
		power(-3, 2)),

	RecipSquaredLink: newLink("RecipSquared", RecipSquaredLink,
		power(-2, 1),
		power(-0.5, 1),
		power(-3, -2),
		power(-4, 6)),

	// With q = Phi^{-1}(p), the derivative is 1/phi(q) and the second
	// derivative is q/phi(q)^2.
	ProbitLink: newLink("Probit", ProbitLink,
		elementwise(distuv.UnitNormal.Quantile),
		elementwise(distuv.UnitNormal.CDF),
		elementwise(func(p float64) float64 {
			return 1 / distuv.UnitNormal.Prob(distuv.UnitNormal.Quantile(p))
		}),
		elementwise(func(p float64) float64 {
			q := distuv.UnitNormal.Quantile(p)
			d := distuv.UnitNormal.Prob(q)
			return q / (d * d)
		})),
}
