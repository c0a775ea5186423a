package duration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dexinGONG/biostat/statmodel"
)

// SurvfuncRight uses the method of Kaplan and Meier to estimate the
// survival distribution based on (possibly) right censored data.  Build
// it with NewSurvfuncRight, optionally add weights and entry times,
// then call Done.
type SurvfuncRight struct {

	// The event or censoring time of each case.
	time []float64

	// The status indicator, which is 1 if the event occurred at
	// the time given by time, and 0 otherwise.  If nil, all
	// statuses are taken to be 1.
	status []float64

	// Case weights, optional.
	weight []float64

	// Entry (left truncation) times, optional.
	entry []float64

	// Times at which events occur, sorted.  The last observed time
	// is always included.
	times []float64

	// Number of events at each time in times.
	nEvents []float64

	// Number of people at risk just before each time in times
	nRisk []float64

	// The estimated survival function evaluated at each time in times
	survProb []float64

	// The standard errors for the estimates in survProb.
	survProbSE []float64

	// Cumulative Greenwood sums d/(n(n-d)), used for the log(-log)
	// confidence bands.
	greenwood []float64

	table *EventTable

	events  map[float64]float64
	total   map[float64]float64
	entries map[float64]float64
}

// EventTable summarizes the risk set at every distinct time, starting
// at time 0.  Removed is the number of cases whose event or censoring
// time is Time[i], of which Observed had the event and Censored were
// censored.  Entrance is the number of cases entering at Time[i] and
// AtRisk is the number of cases at risk just before Time[i].
type EventTable struct {
	Time     []float64
	Removed  []float64
	Observed []float64
	Censored []float64
	Entrance []float64
	AtRisk   []float64
}

// NumRows returns the number of distinct times in the table.
func (et *EventTable) NumRows() int {
	return len(et.Time)
}

// NewSurvfuncRight creates a new value for fitting a survival function.
// If status is nil, every case is taken to have an event.
func NewSurvfuncRight(time, status []float64) *SurvfuncRight {

	return &SurvfuncRight{
		time:   time,
		status: status,
	}
}

// Weight specifies case weights.
func (sf *SurvfuncRight) Weight(weight []float64) *SurvfuncRight {
	sf.weight = weight
	return sf
}

// Entry specifies entry times.  A case entering at time t is not at
// risk at t.
func (sf *SurvfuncRight) Entry(entry []float64) *SurvfuncRight {
	sf.entry = entry
	return sf
}

// Time returns the times at which the survival function changes.
func (sf *SurvfuncRight) Time() []float64 {
	return sf.times
}

// NumRisk returns the number of people at risk at each time point
// where the survival function changes.
func (sf *SurvfuncRight) NumRisk() []float64 {
	return sf.nRisk
}

// NumEvents returns the number of events at each time point where the
// survival function changes.
func (sf *SurvfuncRight) NumEvents() []float64 {
	return sf.nEvents
}

// SurvProb returns the estimated survival probabilities at the points
// where the survival function changes.
func (sf *SurvfuncRight) SurvProb() []float64 {
	return sf.survProb
}

// SurvProbSE returns the standard errors of the estimated survival
// probabilities at the points where the survival function changes.
func (sf *SurvfuncRight) SurvProbSE() []float64 {
	return sf.survProbSE
}

// EventTable returns the risk set summary at every distinct time.
func (sf *SurvfuncRight) EventTable() *EventTable {
	return sf.table
}

// checkInput validates the time, status, weight and entry columns.  It
// is shared by the estimators that take right censored data.
func checkInput(time, status, weight, entry []float64) error {

	n := len(time)
	if n == 0 {
		return errors.New("no observations")
	}
	if status != nil && len(status) != n {
		return fmt.Errorf("status has length %d, time has length %d", len(status), n)
	}
	if weight != nil && len(weight) != n {
		return fmt.Errorf("weight has length %d, time has length %d", len(weight), n)
	}
	if entry != nil && len(entry) != n {
		return fmt.Errorf("entry has length %d, time has length %d", len(entry), n)
	}

	for i, t := range time {
		if math.IsNaN(t) || t < 0 {
			return fmt.Errorf("times cannot be negative, got %v at row %d", t, i)
		}
		if status != nil && status[i] != 0 && status[i] != 1 {
			return fmt.Errorf("status must be 0 or 1, got %v at row %d", status[i], i)
		}
		if weight != nil && !(weight[i] >= 0) {
			return fmt.Errorf("weights cannot be negative, got %v at row %d", weight[i], i)
		}
		if entry != nil {
			if !(entry[i] >= 0) {
				return fmt.Errorf("entry times cannot be negative, got %v at row %d", entry[i], i)
			}
			if entry[i] >= t {
				return fmt.Errorf("entry time %v at row %d is not before the event/censoring time %v",
					entry[i], i, t)
			}
		}
	}

	return nil
}

func (sf *SurvfuncRight) scanData() {

	sf.events = make(map[float64]float64)
	sf.total = make(map[float64]float64)
	sf.entries = make(map[float64]float64)

	for i, t := range sf.time {

		w := float64(1)
		if sf.weight != nil {
			w = sf.weight[i]
		}

		if sf.status == nil || sf.status[i] == 1 {
			sf.events[t] += w
		}
		sf.total[t] += w

		if sf.entry != nil {
			sf.entries[sf.entry[i]] += w
		} else {
			sf.entries[0] += w
		}
	}
}

func rollback(x []float64) {
	var z float64
	for i := len(x) - 1; i >= 0; i-- {
		z += x[i]
		x[i] = z
	}
}

// buildEventTable tabulates the risk sets over the union of time 0,
// the observed times and the entry times.
func buildEventTable(events, total, entries map[float64]float64, delayed bool) *EventTable {

	tm := map[float64]bool{0: true}
	for t := range total {
		tm[t] = true
	}
	for t := range entries {
		tm[t] = true
	}
	times := make([]float64, 0, len(tm))
	for t := range tm {
		times = append(times, t)
	}
	sort.Float64s(times)

	m := len(times)
	et := &EventTable{
		Time:     times,
		Removed:  make([]float64, m),
		Observed: make([]float64, m),
		Censored: make([]float64, m),
		Entrance: make([]float64, m),
		AtRisk:   make([]float64, m),
	}

	for i, t := range times {
		et.Observed[i] = events[t]
		et.Removed[i] = total[t]
		et.Censored[i] = total[t] - events[t]
		et.Entrance[i] = entries[t]
	}

	// Everyone whose time is at or after t, less those entering at or
	// after t.
	copy(et.AtRisk, et.Removed)
	rollback(et.AtRisk)
	if delayed {
		late := make([]float64, m)
		copy(late, et.Entrance)
		rollback(late)
		for i := range et.AtRisk {
			et.AtRisk[i] -= late[i]
		}
	}

	return et
}

func (sf *SurvfuncRight) eventstats() {

	sf.table = buildEventTable(sf.events, sf.total, sf.entries, sf.entry != nil)

	// Keep the rows where a case leaves the risk set.
	sf.times = sf.times[0:0]
	sf.nEvents = sf.nEvents[0:0]
	sf.nRisk = sf.nRisk[0:0]
	for i, t := range sf.table.Time {
		if sf.table.Removed[i] > 0 {
			sf.times = append(sf.times, t)
			sf.nEvents = append(sf.nEvents, sf.table.Observed[i])
			sf.nRisk = append(sf.nRisk, sf.table.AtRisk[i])
		}
	}
}

// compress removes times where no events occurred.
func (sf *SurvfuncRight) compress() {

	var ix []int
	for i := 0; i < len(sf.times); i++ {
		// Only retain events, except for the last point,
		// which is retained even if there are no events.
		if sf.nEvents[i] > 0 || i == len(sf.times)-1 {
			ix = append(ix, i)
		}
	}

	if len(ix) < len(sf.times) {
		for i, j := range ix {
			sf.times[i] = sf.times[j]
			sf.nEvents[i] = sf.nEvents[j]
			sf.nRisk[i] = sf.nRisk[j]
		}
		sf.times = sf.times[0:len(ix)]
		sf.nEvents = sf.nEvents[0:len(ix)]
		sf.nRisk = sf.nRisk[0:len(ix)]
	}
}

func (sf *SurvfuncRight) fit() {

	sf.survProb = make([]float64, len(sf.times))
	x := float64(1)
	for i := range sf.times {
		if sf.nEvents[i] > 0 {
			x *= 1 - sf.nEvents[i]/sf.nRisk[i]
		}
		sf.survProb[i] = x
	}

	sf.greenwood = make([]float64, len(sf.times))
	x = 0
	for i := range sf.times {
		d := sf.nEvents[i]
		n := sf.nRisk[i]
		if d > 0 {
			x += d / (n * (n - d))
		}
		sf.greenwood[i] = x
	}

	sf.survProbSE = make([]float64, len(sf.times))
	if sf.weight == nil {
		for i, g := range sf.greenwood {
			sf.survProbSE[i] = math.Sqrt(g) * sf.survProb[i]
		}
	} else {
		x = 0
		for i := range sf.times {
			d := sf.nEvents[i]
			n := sf.nRisk[i]
			if d > 0 {
				x += d / (n * n)
			}
			sf.survProbSE[i] = math.Sqrt(x)
		}
	}
}

// Done indicates that the survival function has been configured and
// fits it.  Invalid input is reported as an error.
func (sf *SurvfuncRight) Done() (*SurvfuncRight, error) {

	if err := checkInput(sf.time, sf.status, sf.weight, sf.entry); err != nil {
		return nil, fmt.Errorf("SurvfuncRight: %w", err)
	}

	sf.scanData()
	sf.eventstats()
	sf.compress()
	sf.fit()

	return sf, nil
}

// ConfInt returns pointwise confidence limits for the survival
// probabilities at the given coverage level, using the exponential
// Greenwood (log(-log)) transformation.  The limits are aligned with
// Time().
func (sf *SurvfuncRight) ConfInt(level float64) ([]float64, []float64) {

	z := statmodel.NormalQuantile(level)

	lcb := make([]float64, len(sf.survProb))
	ucb := make([]float64, len(sf.survProb))
	for i, s := range sf.survProb {
		switch {
		case s >= 1:
			lcb[i], ucb[i] = 1, 1
		case s <= 0:
			lcb[i], ucb[i] = 0, 0
		default:
			v := math.Log(s)
			u := z * math.Sqrt(sf.greenwood[i]) / v
			ucb[i] = math.Exp(-math.Exp(math.Log(-v) + u))
			lcb[i] = math.Exp(-math.Exp(math.Log(-v) - u))
		}
	}

	return lcb, ucb
}

// firstBelow returns the first time at which y drops to 0.5 or below,
// or +Inf if it never does.
func firstBelow(times, y []float64) float64 {
	for i, v := range y {
		if v <= 0.5 {
			return times[i]
		}
	}
	return math.Inf(1)
}

// Median returns the median survival time, the smallest time at which
// the survival probability is 0.5 or less.  If the survival function
// never falls that far the median is +Inf.
func (sf *SurvfuncRight) Median() float64 {
	return firstBelow(sf.times, sf.survProb)
}

// MedianConfInt returns a confidence interval for the median survival
// time, obtained as the medians of the lower and upper confidence band
// curves.
func (sf *SurvfuncRight) MedianConfInt(level float64) (float64, float64) {
	lcb, ucb := sf.ConfInt(level)
	return firstBelow(sf.times, lcb), firstBelow(sf.times, ucb)
}

// CumDensity returns the cumulative death probability 1 - S(t) at each
// time in Time().
func (sf *SurvfuncRight) CumDensity() []float64 {
	cd := make([]float64, len(sf.survProb))
	for i, s := range sf.survProb {
		cd[i] = 1 - s
	}
	return cd
}

// CumDensityConfInt returns confidence limits for CumDensity at the
// given coverage level.
func (sf *SurvfuncRight) CumDensityConfInt(level float64) ([]float64, []float64) {
	lcb, ucb := sf.ConfInt(level)
	lo := make([]float64, len(lcb))
	hi := make([]float64, len(ucb))
	for i := range lcb {
		lo[i] = 1 - ucb[i]
		hi[i] = 1 - lcb[i]
	}
	return lo, hi
}

// Censored returns the distinct times at which cases were censored and
// the value of the survival function at each of them.
func (sf *SurvfuncRight) Censored() ([]float64, []float64) {

	var ct, cs []float64
	j := -1
	for i, t := range sf.table.Time {
		for j+1 < len(sf.times) && sf.times[j+1] <= t {
			j++
		}
		if sf.table.Censored[i] > 0 {
			s := 1.0
			if j >= 0 {
				s = sf.survProb[j]
			}
			ct = append(ct, t)
			cs = append(cs, s)
		}
	}

	return ct, cs
}
