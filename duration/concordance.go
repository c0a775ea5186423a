package duration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// HarrellC returns Harrell's concordance index: among all comparable
// pairs, the fraction in which the case with the shorter event time
// has the higher risk score.  A pair is comparable when the shorter
// time is an event, or when the times are equal and only the first
// case has an event.  Tied scores count one half.
func HarrellC(time, status, score []float64) (float64, error) {

	n := len(time)
	if len(status) != n || len(score) != n {
		return 0, fmt.Errorf("HarrellC: lengths differ, time %d, status %d, score %d",
			n, len(status), len(score))
	}

	var numer, denom float64
	for i := 0; i < n; i++ {
		if status[i] != 1 {
			continue
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if time[i] < time[j] || (time[i] == time[j] && status[j] == 0) {
				denom++
				switch {
				case score[i] > score[j]:
					numer++
				case score[i] == score[j]:
					numer += 0.5
				}
			}
		}
	}

	if denom == 0 {
		return 0, errors.New("HarrellC: no comparable pairs")
	}

	return numer / denom, nil
}

// Concordance calculates the survival concordance of Uno et al.
// (https://www.ncbi.nlm.nih.gov/pmc/articles/PMC3079915).
type Concordance struct {

	// The risk scores that are being assessed
	score []float64

	// Event or censoring time
	time []float64

	// Event status
	status []float64

	// Number of pairs to check, if using random sampling to
	// estimate the concordance
	npair int

	seed uint64

	// The survival function for the censoring distribution
	sf *SurvfuncRight
}

// NewConcordance creates a new Concordance value with the given parameters.
func NewConcordance(time, status, score []float64) *Concordance {

	c := &Concordance{
		time:   time,
		status: status,
		score:  score,
		npair:  10000,
		seed:   1,
	}

	return c
}

// NumPair sets the number of pairs of observations sampled at random
// to estimate the concordance.
func (c *Concordance) NumPair(npair int) *Concordance {
	c.npair = npair
	return c
}

// Seed sets the seed of the generator used to sample pairs.
func (c *Concordance) Seed(seed uint64) *Concordance {
	c.seed = seed
	return c
}

// Done signals that the Concordance value has been built and now can be fit.
func (c *Concordance) Done() (*Concordance, error) {

	n := len(c.time)
	if len(c.status) != n || len(c.score) != n {
		return nil, fmt.Errorf("Concordance: lengths differ, time %d, status %d, score %d",
			n, len(c.status), len(c.score))
	}

	// Sort everything by time
	ii := make([]int, n)
	time1 := make([]float64, n)
	statusr := make([]float64, n)
	status1 := make([]float64, n)
	score1 := make([]float64, n)
	copy(time1, c.time)
	floats.Argsort(time1, ii)
	ncens := 0.0
	for i, j := range ii {
		// We want the survival function for censoring
		statusr[i] = 1 - c.status[j]
		status1[i] = c.status[j]
		ncens += statusr[i]
	}
	for i, j := range ii {
		score1[i] = c.score[j]
	}

	// Get the survival function for censoring
	sf, err := NewSurvfuncRight(time1, statusr).Done()
	if err != nil {
		return nil, fmt.Errorf("Concordance: %w", err)
	}
	c.sf = sf
	if ncens == 0 {
		// No censoring, create a censoring survival function
		// with P(T>t) = 1 for all t.
		c.sf.times = []float64{0, math.Inf(1)}
		c.sf.survProb = []float64{1, 1}
	}

	c.time = time1
	c.status = status1
	c.score = score1

	return c, nil
}

// Concordance returns the concordance statistic, using the given
// truncation time.
func (c *Concordance) Concordance(trunc float64) (float64, error) {

	n := len(c.time)

	jt := sort.SearchFloat64s(c.time, trunc)
	if jt <= 0 {
		return 0, errors.New("Concordance: not enough data below truncation point")
	}

	time := c.time
	status := c.status
	score := c.score

	// Make sure that at least one usable pair exists.
	var ok bool
	for j := 0; j < jt && !ok; j++ {
		ok = status[j] == 1 && time[j] < time[n-1]
	}
	if !ok {
		return 0, errors.New("Concordance: no comparable pairs below truncation point")
	}

	st := c.sf.Time()
	sp := c.sf.SurvProb()

	rng := rand.New(rand.NewSource(c.seed))

	var numer, denom float64
	for i := 0; i < c.npair; i++ {

		// Find a pair to compare
		var j1, j2 int
		for {
			j1 = rng.Intn(n)
			if j1 >= jt {
				continue
			}
			j2 = rng.Intn(n)
			if j2 <= j1 {
				continue
			}
			if (time[j1] < time[j2]) && (status[j1] == 1) {
				break
			}
		}

		jj := sort.SearchFloat64s(st, time[j1])
		if jj == len(st) {
			jj--
		}
		g := sp[jj]

		denom += 1 / (g * g)
		if score[j1] > score[j2] {
			numer += 1 / (g * g)
		}
	}

	return numer / denom, nil
}
