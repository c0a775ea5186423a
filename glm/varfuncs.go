package glm

// VarianceType is used to specify a GLM variance function.
type VarianceType uint8

// BinomialVar, ... are the supported variance functions.
const (
	BinomialVar VarianceType = iota
	IdentityVar
	ConstantVar
	SquaredVar
	CubedVar
)

// Variance represents a GLM variance function of the mean and its
// derivative.
type Variance struct {
	Name  string
	Var   VecFunc
	Deriv VecFunc
}

// NewVariance returns the variance function object for the given type,
// or nil if the type is unknown.
func NewVariance(vartype VarianceType) *Variance {
	return variances[vartype]
}

var variances = map[VarianceType]*Variance{
	BinomialVar: {
		Name:  "Binomial",
		Var:   elementwise(func(p float64) float64 { return p * (1 - p) }),
		Deriv: elementwise(func(p float64) float64 { return 1 - 2*p }),
	},
	IdentityVar: {
		Name:  "Identity",
		Var:   func(mn, v []float64) { copy(v, mn) },
		Deriv: func(_, v []float64) { one(v) },
	},
	ConstantVar: {
		Name:  "Constant",
		Var:   func(_, v []float64) { one(v) },
		Deriv: func(_, v []float64) { zero(v) },
	},
	SquaredVar: {
		Name:  "Squared",
		Var:   power(2, 1),
		Deriv: power(1, 2),
	},
	CubedVar: {
		Name:  "Cubed",
		Var:   power(3, 1),
		Deriv: power(2, 3),
	},
}
