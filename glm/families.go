package glm

import (
	"fmt"
	"math"

	"github.com/dexinGONG/biostat/statmodel"
)

// FamilyType is the type of GLM family used in a model.
type FamilyType uint8

// BinomialFamily, ... are families for a GLM.
const (
	BinomialFamily FamilyType = iota
	PoissonFamily
	QuasiPoissonFamily
	GaussianFamily
	GammaFamily
	InvGaussianFamily
)

// LogLikeFunc evaluates and returns the log-likelihood for a GLM.  The arguments
// are the data, the mean values, the weights, the scale parameter, and the 'exact flag'.
// If the exact flag is false, multiplicative factors that are constant with respect to
// the mean may be omitted.  The weights may be nil in which case all weights are taken to be 1.
type LogLikeFunc func([]statmodel.Dtype, []float64, []statmodel.Dtype, float64, bool) float64

// DevianceFunc evaluates and returns the deviance for a GLM.  The arguments
// are the data, the mean values, the weights, and the scale parameter.  The weights
// may be nil in which case all weights are taken to be 1.
type DevianceFunc func([]statmodel.Dtype, []float64, []statmodel.Dtype, float64) float64

// Family represents a generalized linear model family.
type Family struct {

	// The name of the family
	Name string

	// The numeric code for the family
	TypeCode FamilyType

	// The log-likelihood function for the family
	LogLike LogLikeFunc

	// The deviance function for the family
	Deviance DevianceFunc

	// True if the scale parameter is estimated from the data,
	// false if it is fixed at 1.
	freeScale bool

	// The names of valid links for this family.  The first listed
	// link should be the canonical link.
	validLinks []LinkType

	// The variance function that goes with the family.
	varType VarianceType

	// Reports whether a response value is in the support of the family.
	inDomain func(float64) bool

	// Describes the support, used in error messages.
	domain string
}

// NewFamily returns the family object for the given family type.
func NewFamily(fam FamilyType) *Family {

	switch fam {
	case PoissonFamily:
		return &poisson
	case QuasiPoissonFamily:
		return &quasiPoisson
	case BinomialFamily:
		return &binomial
	case GaussianFamily:
		return &gaussian
	case GammaFamily:
		return &gamma
	case InvGaussianFamily:
		return &invGaussian
	default:
		msg := fmt.Sprintf("Unknown family: %v\n", fam)
		panic(msg)
	}
}

var poisson = Family{
	Name:       "Poisson",
	TypeCode:   PoissonFamily,
	LogLike:    poissonLogLike,
	Deviance:   poissonDeviance,
	validLinks: []LinkType{LogLink, IdentityLink},
	varType:    IdentityVar,
	inDomain:   nonNegative,
	domain:     "non-negative",
}

// QuasiPoisson is the same as Poisson, except that the scale parameter is estimated.
var quasiPoisson = Family{
	Name:       "QuasiPoisson",
	TypeCode:   QuasiPoissonFamily,
	LogLike:    poissonLogLike,
	Deviance:   poissonDeviance,
	validLinks: []LinkType{LogLink, IdentityLink},
	varType:    IdentityVar,
	freeScale:  true,
	inDomain:   nonNegative,
	domain:     "non-negative",
}

var binomial = Family{
	Name:       "Binomial",
	TypeCode:   BinomialFamily,
	LogLike:    binomialLogLike,
	Deviance:   binomialDeviance,
	validLinks: []LinkType{LogitLink, ProbitLink, CloglogLink, LogLink, IdentityLink},
	varType:    BinomialVar,
	inDomain:   unitInterval,
	domain:     "in [0, 1]",
}

var gaussian = Family{
	Name:       "Gaussian",
	TypeCode:   GaussianFamily,
	LogLike:    gaussianLogLike,
	Deviance:   gaussianDeviance,
	validLinks: []LinkType{IdentityLink, LogLink, RecipLink},
	varType:    ConstantVar,
	freeScale:  true,
	inDomain:   func(float64) bool { return true },
	domain:     "real",
}

var gamma = Family{
	Name:       "Gamma",
	TypeCode:   GammaFamily,
	LogLike:    gammaLogLike,
	Deviance:   gammaDeviance,
	validLinks: []LinkType{RecipLink, LogLink, IdentityLink},
	varType:    SquaredVar,
	freeScale:  true,
	inDomain:   positive,
	domain:     "positive",
}

var invGaussian = Family{
	Name:       "InvGaussian",
	TypeCode:   InvGaussianFamily,
	LogLike:    invGaussLogLike,
	Deviance:   invGaussianDeviance,
	validLinks: []LinkType{RecipSquaredLink, RecipLink, LogLink, IdentityLink},
	varType:    CubedVar,
	freeScale:  true,
	inDomain:   positive,
	domain:     "positive",
}

// CanonicalLink returns the canonical link of the family.
func (fam *Family) CanonicalLink() *Link {
	return NewLink(fam.validLinks[0])
}

// checkResponse returns an error if any response value is outside
// the support of the family.
func (fam *Family) checkResponse(y []statmodel.Dtype) error {
	for i, v := range y {
		if math.IsNaN(v) || !fam.inDomain(v) {
			return fmt.Errorf("%s response must be %s, got %v at row %d",
				fam.Name, fam.domain, v, i)
		}
	}
	return nil
}

func nonNegative(y float64) bool { return y >= 0 }

func positive(y float64) bool { return y > 0 }

func unitInterval(y float64) bool { return y >= 0 && y <= 1 }

// IsValidLink returns true or false based on whether the link is
// valid for the family.
func (fam *Family) IsValidLink(link *Link) bool {

	if link == nil {
		return false
	}

	for _, q := range fam.validLinks {
		if link.TypeCode == q {
			return true
		}
	}

	return false
}

func poissonLogLike(y []statmodel.Dtype, mn []float64, wt []statmodel.Dtype, scale float64, exact bool) float64 {

	var ll float64
	var w float64 = 1
	for i := range y {
		if wt != nil {
			w = float64(wt[i])
		}
		ll += w * (float64(y[i])*math.Log(mn[i]) - mn[i])
	}

	if exact {
		for i := range y {
			if wt != nil {
				w = float64(wt[i])
			}
			g, _ := math.Lgamma(float64(y[i]) + 1)
			ll -= w * g
		}
	}

	return ll
}

func binomialLogLike(y []statmodel.Dtype, mn []float64, wt []statmodel.Dtype, scale float64, exact bool) float64 {
	var ll float64
	var w float64 = 1
	for i := range y {
		if wt != nil {
			w = float64(wt[i])
		}
		r := mn[i]/(1-mn[i]) + 1e-200
		ll += w * (float64(y[i])*math.Log(r) + math.Log(1-mn[i]))
	}
	return ll
}

func gaussianLogLike(y []statmodel.Dtype, mn []float64, wt []statmodel.Dtype, scale float64, exact bool) float64 {
	var ll float64
	var w float64 = 1
	var ws float64
	for i := range y {
		if wt != nil {
			w = float64(wt[i])
		}
		r := float64(y[i]) - mn[i]
		ll -= w * r * r / (2 * scale)
		ws += w
	}
	ll -= ws * math.Log(2*math.Pi*scale) / 2
	return ll
}

func gammaLogLike(y []statmodel.Dtype, mn []float64, wt []statmodel.Dtype, scale float64, exact bool) float64 {

	var ll float64
	var w float64 = 1
	for i := range y {
		if wt != nil {
			w = float64(wt[i])
		}

		v := float64(y[i])/mn[i] + math.Log(mn[i])
		ll -= w * v / scale
	}

	if exact {
		for i := range y {
			if wt != nil {
				w = float64(wt[i])
			}

			v := (scale - 1) * math.Log(float64(y[i]))
			g, _ := math.Lgamma(1 / scale)
			v += math.Log(scale) + scale*g
			ll -= w * v / scale
		}
	}

	return ll
}

func invGaussLogLike(y []statmodel.Dtype, mn []float64, wt []statmodel.Dtype, scale float64, exact bool) float64 {

	var ll float64
	var w float64 = 1
	var ws float64
	for i := range y {
		if wt != nil {
			w = float64(wt[i])
		}

		r := float64(y[i]) - mn[i]
		v := r * r / (float64(y[i]) * mn[i] * mn[i] * scale)

		ll -= 0.5 * w * v
		ws += w
	}
	ll -= 0.5 * ws * math.Log(2*math.Pi)

	if exact {
		for i := range y {
			if wt != nil {
				w = float64(wt[i])
			}
			ll -= 0.5 * w * math.Log(scale*float64(y[i]*y[i]*y[i]))
		}
	}

	return ll
}

func poissonDeviance(y []statmodel.Dtype, mn []float64, wgt []statmodel.Dtype, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = float64(wgt[i])
		}

		if y[i] > 0 {
			dev += 2 * w * float64(y[i]) * math.Log(float64(y[i])/mn[i])
		}
	}
	dev /= scale

	return dev
}

func binomialDeviance(y []statmodel.Dtype, mn []float64, wgt []statmodel.Dtype, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = float64(wgt[i])
		}

		dev -= 2 * w * (float64(y[i])*math.Log(mn[i]) + (1-float64(y[i]))*math.Log(1-mn[i]))
	}

	return dev
}

func gammaDeviance(y []statmodel.Dtype, mn []float64, wgt []statmodel.Dtype, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = float64(wgt[i])
		}

		dev += 2 * w * ((float64(y[i])-mn[i])/mn[i] - math.Log(float64(y[i])/mn[i]))
	}

	return dev
}

func invGaussianDeviance(y []statmodel.Dtype, mn []float64, wgt []statmodel.Dtype, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = float64(wgt[i])
		}

		r := float64(y[i]) - mn[i]
		dev += w * (r * r / (float64(y[i]) * mn[i] * mn[i]))
	}
	dev /= scale

	return dev
}

func gaussianDeviance(y []statmodel.Dtype, mn []float64, wgt []statmodel.Dtype, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = float64(wgt[i])
		}

		r := float64(y[i]) - mn[i]
		dev += w * r * r
	}
	dev /= scale

	return dev
}
