package duration

import (
	"fmt"
	"math"

	"github.com/dexinGONG/biostat/statmodel"
)

// NelsonAalen estimates the cumulative hazard function from (possibly)
// right censored data.  Build it with NewNelsonAalen, optionally add
// weights and entry times, then call Done.
type NelsonAalen struct {
	time     []float64
	status   []float64
	weight   []float64
	entry    []float64
	nosmooth bool

	// The distinct times of the event table, starting at 0.
	times []float64

	// The estimated cumulative hazard at each time in times.
	cumHaz []float64

	// The estimated variance of cumHaz.
	cumHazVar []float64

	table *EventTable
}

// NewNelsonAalen creates a new value for estimating a cumulative hazard
// function.  If status is nil, every case is taken to have an event.
func NewNelsonAalen(time, status []float64) *NelsonAalen {
	return &NelsonAalen{
		time:   time,
		status: status,
	}
}

// Weight specifies case weights.  Weighted estimates always use the
// discrete (d/n) increments.
func (na *NelsonAalen) Weight(weight []float64) *NelsonAalen {
	na.weight = weight
	return na
}

// Entry specifies entry times.
func (na *NelsonAalen) Entry(entry []float64) *NelsonAalen {
	na.entry = entry
	return na
}

// Discrete selects the d/n increments instead of the default
// estimator that treats tied events as occurring one after another.
func (na *NelsonAalen) Discrete(d bool) *NelsonAalen {
	na.nosmooth = d
	return na
}

// Done fits the estimator.  Invalid input is reported as an error.
func (na *NelsonAalen) Done() (*NelsonAalen, error) {

	if err := checkInput(na.time, na.status, na.weight, na.entry); err != nil {
		return nil, fmt.Errorf("NelsonAalen: %w", err)
	}

	// The event table is shared with the Kaplan-Meier estimator.
	sf := &SurvfuncRight{
		time:   na.time,
		status: na.status,
		weight: na.weight,
		entry:  na.entry,
	}
	sf.scanData()
	na.table = buildEventTable(sf.events, sf.total, sf.entries, na.entry != nil)

	discrete := na.nosmooth || na.weight != nil

	m := na.table.NumRows()
	na.times = na.table.Time
	na.cumHaz = make([]float64, m)
	na.cumHazVar = make([]float64, m)

	var h, v float64
	for i := 0; i < m; i++ {
		d := na.table.Observed[i]
		n := na.table.AtRisk[i]
		if d > 0 {
			if discrete {
				h += d / n
				v += (n - d) * d / (n * n * n)
			} else {
				for k := 0; k < int(d); k++ {
					h += 1 / (n - float64(k))
					v += 1 / ((n - float64(k)) * (n - float64(k)))
				}
			}
		}
		na.cumHaz[i] = h
		na.cumHazVar[i] = v
	}

	return na, nil
}

// Time returns the distinct times at which the cumulative hazard is
// reported, starting at 0.
func (na *NelsonAalen) Time() []float64 {
	return na.times
}

// CumHaz returns the estimated cumulative hazard at each time in Time().
func (na *NelsonAalen) CumHaz() []float64 {
	return na.cumHaz
}

// CumHazVar returns the estimated variance of CumHaz.
func (na *NelsonAalen) CumHazVar() []float64 {
	return na.cumHazVar
}

// EventTable returns the risk set summary at every distinct time.
func (na *NelsonAalen) EventTable() *EventTable {
	return na.table
}

// ConfInt returns pointwise confidence limits for the cumulative hazard
// at the given coverage level, formed on the log scale.
func (na *NelsonAalen) ConfInt(level float64) ([]float64, []float64) {

	z := statmodel.NormalQuantile(level)

	lcb := make([]float64, len(na.cumHaz))
	ucb := make([]float64, len(na.cumHaz))
	for i, h := range na.cumHaz {
		if h == 0 {
			continue
		}
		f := math.Exp(z * math.Sqrt(na.cumHazVar[i]) / h)
		lcb[i] = h / f
		ucb[i] = h * f
	}

	return lcb, ucb
}
