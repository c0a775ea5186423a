// Package survcompare compares the survival of two treatment groups of
// tumour patients: Kaplan-Meier survival and cumulative death
// probability, a log-rank test, and Nelson-Aalen cumulative hazards.
// Every analysis fits its own estimators from the embedded records.
package survcompare

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dexinGONG/biostat/duration"
	"github.com/dexinGONG/biostat/internal/report"
)

// Record is one patient: the treatment group, the follow-up time in
// months and whether death was observed (1) or the case was censored (0).
type Record struct {
	Group  string
	Time   float64
	Status float64
}

// Group names as they appear in the records, and the labels used for
// them in figures.
var (
	Groups = []string{"A组", "B组"}
	labels = map[string]string{"A组": "Group A", "B组": "Group B"}
)

// Records returns the follow-up of 25 patients treated with scheme A
// and 22 treated with scheme B.
func Records() []Record {

	timeA := []float64{10, 2, 12, 13, 18, 6, 19, 26, 9, 8, 6, 43, 9, 4, 31, 24, 23, 20, 18, 13, 15, 30, 28, 35, 37}
	statA := []float64{1, 0, 1, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1, 1, 1}
	timeB := []float64{2, 13, 7, 11, 6, 1, 11, 3, 17, 7, 22, 33, 22, 20, 10, 9, 21, 16, 19, 25, 19, 17}
	statB := []float64{0, 1, 1, 0, 1, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1}

	var recs []Record
	for i := range timeA {
		recs = append(recs, Record{"A组", timeA[i], statA[i]})
	}
	for i := range timeB {
		recs = append(recs, Record{"B组", timeB[i], statB[i]})
	}

	return recs
}

// split returns the times and statuses of the records in group g.
func split(recs []Record, g string) ([]float64, []float64, error) {
	var time, status []float64
	for _, r := range recs {
		if r.Group == g {
			time = append(time, r.Time)
			status = append(status, r.Status)
		}
	}
	if len(time) == 0 {
		return nil, nil, fmt.Errorf("survcompare: group '%s' has no records", g)
	}
	return time, status, nil
}

func label(g string) string {
	if s, ok := labels[g]; ok {
		return s
	}
	return g
}

// Options controls a comparison run.
type Options struct {

	// Confidence level of all intervals and of the log-rank test.
	Alpha float64

	// Size in inches of a single panel figure.  Figures with two
	// panels are twice as wide.
	Width  float64
	Height float64

	// Directory receiving the figures.  It is created if needed.
	FiguresDir string

	Log *zap.Logger
}

// Summary collects the headline numbers of a run.
type Summary struct {
	Median   map[string]float64
	MedianCI map[string][2]float64
	LogRank  *duration.LogRankResult
	Figures  []string
}

// Figure file names.
const (
	SurvivalFigure   = "survival_curves.png"
	CumDeathFigure   = "cumulative_death.png"
	RiskByGroup      = "cumulative_risk_by_group.png"
	RiskComparison   = "cumulative_risk_comparison.png"
	timeLabel        = "Time (months)"
	cumDensityColumn = "KM_cumulative_density"
)

// Run performs the four analyses on recs, writing tables to w and
// figures to opts.FiguresDir.
func Run(w io.Writer, recs []Record, opts Options) (*Summary, error) {

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if err := os.MkdirAll(opts.FiguresDir, 0o750); err != nil {
		return nil, fmt.Errorf("survcompare: %w", err)
	}

	sum := &Summary{
		Median:   make(map[string]float64),
		MedianCI: make(map[string][2]float64),
	}

	steps := []func(io.Writer, []Record, Options, *Summary) error{
		survivalRate,
		cumulativeDeath,
		compareGroups,
		cumulativeRisk,
		overlay,
	}
	for _, step := range steps {
		if err := step(w, recs, opts, sum); err != nil {
			return nil, err
		}
	}

	return sum, nil
}

func (opts Options) save(sum *Summary, name string, save func(string) error) error {
	path := filepath.Join(opts.FiguresDir, name)
	if err := save(path); err != nil {
		return err
	}
	opts.Log.Info("figure written", zap.String("path", path))
	sum.Figures = append(sum.Figures, path)
	return nil
}

func confLabel(level float64) string {
	return fmt.Sprintf("%g%%", 100*level)
}

// survivalRate reports the median survival time of each group with its
// confidence interval and draws both survival curves with censor marks.
func survivalRate(w io.Writer, recs []Record, opts Options, sum *Summary) error {

	sp := duration.NewPlotter().Width(opts.Width).Height(opts.Height).
		Title("Comparison of Survival Curves for Group A and B").
		Labels(timeLabel, "Survival Rate")

	for _, g := range Groups {
		time, status, err := split(recs, g)
		if err != nil {
			return err
		}
		sf, err := duration.NewSurvfuncRight(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}

		med := sf.Median()
		lo, hi := sf.MedianConfInt(opts.Alpha)
		sum.Median[g] = med
		sum.MedianCI[g] = [2]float64{lo, hi}

		report.Heading(w, fmt.Sprintf("%s Median Survival Time and %s CI", g, confLabel(opts.Alpha)))
		if err := report.KV(w,
			"median", med,
			"lower "+confLabel(opts.Alpha), lo,
			"upper "+confLabel(opts.Alpha), hi); err != nil {
			return err
		}

		sp.AddSurvival(sf, label(g), duration.CurveOptions{Censors: true})
	}

	return opts.save(sum, SurvivalFigure, sp.Save)
}

// withOrigin prefixes the point (0, y0) to a step function.
func withOrigin(x, y []float64, y0 float64) ([]float64, []float64) {
	if len(x) > 0 && x[0] == 0 {
		return x, y
	}
	return append([]float64{0}, x...), append([]float64{y0}, y...)
}

// cumulativeDeath tabulates and plots 1 - S(t) for each group.
func cumulativeDeath(w io.Writer, recs []Record, opts Options, sum *Summary) error {

	sp := duration.NewPlotter().Width(opts.Width).Height(opts.Height).
		Title("Comparison of Cumulative Death Probabilities for Group A and B").
		Labels(timeLabel, "Cumulative Death Probability").
		Legend(duration.UpperLeft)

	for _, g := range Groups {
		time, status, err := split(recs, g)
		if err != nil {
			return err
		}
		sf, err := duration.NewSurvfuncRight(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}

		report.Heading(w, g+" Cumulative Death Probability")
		tm, cd := withOrigin(sf.Time(), sf.CumDensity(), 0)
		if err := report.Columns(w, []string{"timeline", g}, tm, cd); err != nil {
			return err
		}

		sp.AddCumDensity(sf, label(g), duration.CurveOptions{})
	}

	return opts.save(sum, CumDeathFigure, sp.Save)
}

// compareGroups runs the log-rank test of group A against group B.
func compareGroups(w io.Writer, recs []Record, opts Options, sum *Summary) error {

	var time, status [][]float64
	for _, g := range Groups {
		t, s, err := split(recs, g)
		if err != nil {
			return err
		}
		time = append(time, t)
		status = append(status, s)
	}

	lr, err := duration.LogRank(time, status, opts.Alpha)
	if err != nil {
		return fmt.Errorf("survcompare: %w", err)
	}
	sum.LogRank = lr

	report.Heading(w, "Log-Rank Test Results for Group A and B")
	if err := report.KV(w,
		"null_distribution", "chi squared",
		"degrees_of_freedom", lr.DF,
		"alpha", lr.Level,
		"test_name", "logrank_test"); err != nil {
		return err
	}
	if err := report.Table(w, []string{"test_statistic", "p", "-log2(p)"},
		[][]interface{}{{lr.Statistic, lr.PValue, lr.NegLog2P}}); err != nil {
		return err
	}

	var rows [][]interface{}
	for j, g := range Groups {
		rows = append(rows, []interface{}{g, lr.Observed[j], lr.Expected[j]})
	}
	return report.Table(w, []string{"group", "observed", "expected"}, rows)
}

func writeEventTable(w io.Writer, et *duration.EventTable) error {
	return report.Columns(w,
		[]string{"event_at", "removed", "observed", "censored", "entrance", "at_risk"},
		et.Time, et.Removed, et.Observed, et.Censored, et.Entrance, et.AtRisk)
}

// cumulativeRisk reports, per group, the Kaplan-Meier and Nelson-Aalen
// event tables, the cumulative density, and the cumulative hazard with
// its confidence band, and draws one panel per group holding both
// curves.
func cumulativeRisk(w io.Writer, recs []Record, opts Options, sum *Summary) error {

	var panels []*duration.Plotter
	for _, g := range Groups {
		time, status, err := split(recs, g)
		if err != nil {
			return err
		}

		sf, err := duration.NewSurvfuncRight(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}
		report.Heading(w, g+" Event Table (KM)")
		if err := writeEventTable(w, sf.EventTable()); err != nil {
			return err
		}
		report.Heading(w, g+" Cumulative Density (KM)")
		tm, cd := withOrigin(sf.Time(), sf.CumDensity(), 0)
		if err := report.Columns(w, []string{"timeline", cumDensityColumn}, tm, cd); err != nil {
			return err
		}

		na, err := duration.NewNelsonAalen(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}
		report.Heading(w, g+" Event Table (NA)")
		if err := writeEventTable(w, na.EventTable()); err != nil {
			return err
		}
		report.Heading(w, g+" Cumulative Hazard (NA)")
		if err := report.Columns(w, []string{"timeline", "NA_estimate"}, na.Time(), na.CumHaz()); err != nil {
			return err
		}
		report.Heading(w, fmt.Sprintf("%s %s CI of Cumulative Hazard (NA)", g, confLabel(opts.Alpha)))
		lo, hi := na.ConfInt(opts.Alpha)
		if err := report.Columns(w,
			[]string{"timeline", fmt.Sprintf("NA_estimate_lower_%g", opts.Alpha), fmt.Sprintf("NA_estimate_upper_%g", opts.Alpha)},
			na.Time(), lo, hi); err != nil {
			return err
		}

		sp := duration.NewPlotter().
			Title("Cumulative Death Risk Probability Density and Cumulative Hazard for "+label(g)).
			Labels(timeLabel, "Cumulative Hazard Density/Cumulative Hazard").
			Legend(duration.UpperLeft).
			AddCumDensity(sf, label(g)+" cumulative_density", duration.CurveOptions{}).
			AddCumHaz(na, label(g)+" cumulative_hazard", duration.CurveOptions{Band: true, Level: opts.Alpha})
		panels = append(panels, sp)
	}

	return opts.save(sum, RiskByGroup, func(path string) error {
		return duration.SaveGrid(path, 2*opts.Width, opts.Height, panels...)
	})
}

// overlay draws the cumulative densities of both groups in one panel
// and their cumulative hazards in another.
func overlay(w io.Writer, recs []Record, opts Options, sum *Summary) error {

	cd := duration.NewPlotter().
		Title("Comparison of Cumulative Death Risk Probability Density for Group A and B").
		Labels(timeLabel, "Cumulative Hazard Density").
		Legend(duration.LowerRight)
	ch := duration.NewPlotter().
		Title("Comparison of Cumulative Death Risk for Group A and B").
		Labels(timeLabel, "Cumulative Hazard").
		Legend(duration.UpperLeft)

	for _, g := range Groups {
		time, status, err := split(recs, g)
		if err != nil {
			return err
		}
		sf, err := duration.NewSurvfuncRight(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}
		na, err := duration.NewNelsonAalen(time, status).Done()
		if err != nil {
			return fmt.Errorf("survcompare: group %s: %w", g, err)
		}
		cd.AddCumDensity(sf, label(g), duration.CurveOptions{})
		ch.AddCumHaz(na, label(g), duration.CurveOptions{Band: true, Level: opts.Alpha})
	}

	return opts.save(sum, RiskComparison, func(path string) error {
		return duration.SaveGrid(path, 2*opts.Width, opts.Height, cd, ch)
	})
}
