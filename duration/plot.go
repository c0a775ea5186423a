package duration

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// LegendPos is the corner of the plot where the legend is drawn.
type LegendPos int

// Legend positions.
const (
	UpperRight LegendPos = iota
	UpperLeft
	LowerRight
	LowerLeft
)

// CurveOptions controls how a single curve is drawn.
type CurveOptions struct {

	// Censors draws a mark at each censoring time (survival and
	// cumulative density curves only).
	Censors bool

	// Band draws a shaded pointwise confidence band at the given
	// Level, e.g. 0.95.
	Band  bool
	Level float64
}

// Plotter draws step curves of estimated survival, cumulative density
// and cumulative hazard functions.
type Plotter struct {
	plt *plot.Plot

	nlines int

	// Fix the vertical axis to [0, 1]
	unit bool

	width  vg.Length
	height vg.Length

	err error
}

// NewPlotter returns a Plotter with default settings.
func NewPlotter() *Plotter {

	sp := &Plotter{
		plt:    plot.New(),
		width:  6,
		height: 4,
	}
	sp.plt.X.Label.Text = "Time"
	sp.plt.X.Min = 0
	sp.plt.Y.Min = 0

	return sp
}

// Width sets the width of the plot in inches.
func (sp *Plotter) Width(w float64) *Plotter {
	sp.width = vg.Length(w)
	return sp
}

// Height sets the height of the plot in inches.
func (sp *Plotter) Height(h float64) *Plotter {
	sp.height = vg.Length(h)
	return sp
}

// Title sets the plot title.
func (sp *Plotter) Title(title string) *Plotter {
	sp.plt.Title.Text = title
	return sp
}

// Labels sets the axis labels.
func (sp *Plotter) Labels(x, y string) *Plotter {
	sp.plt.X.Label.Text = x
	sp.plt.Y.Label.Text = y
	return sp
}

// Legend sets the corner in which the legend is drawn.
func (sp *Plotter) Legend(pos LegendPos) *Plotter {
	sp.plt.Legend.Top = pos == UpperRight || pos == UpperLeft
	sp.plt.Legend.Left = pos == UpperLeft || pos == LowerLeft
	return sp
}

// Err returns the first error met while adding curves.
func (sp *Plotter) Err() error {
	return sp.err
}

// step returns the points of a right continuous step function that
// starts at (0, y0) and jumps to y[i] at x[i].
func step(x, y []float64, y0 float64) plotter.XYs {

	pts := make(plotter.XYs, 0, 2*len(x)+1)
	pts = append(pts, plotter.XY{X: 0, Y: y0})
	for i := range x {
		pts = append(pts, plotter.XY{X: x[i], Y: pts[len(pts)-1].Y})
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}

	return pts
}

func fade(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 60}
}

// addCurve draws one step curve with an optional band and optional
// censor marks.
func (sp *Plotter) addCurve(label string, x, y []float64, y0 float64,
	lo, hi []float64, cx, cy []float64) {

	if sp.err != nil {
		return
	}

	col := plotutil.Color(sp.nlines)
	sp.nlines++

	if lo != nil {
		// Upper band forward, lower band backward.
		up := step(x, hi, y0)
		dn := step(x, lo, y0)
		poly := make(plotter.XYs, 0, len(up)+len(dn))
		poly = append(poly, up...)
		for i := len(dn) - 1; i >= 0; i-- {
			poly = append(poly, dn[i])
		}
		band, err := plotter.NewPolygon(poly)
		if err != nil {
			sp.err = err
			return
		}
		band.Color = fade(col)
		band.LineStyle.Width = 0
		sp.plt.Add(band)
	}

	line, err := plotter.NewLine(step(x, y, y0))
	if err != nil {
		sp.err = err
		return
	}
	line.Color = col
	line.Width = vg.Points(1.5)
	sp.plt.Add(line)
	if label != "" {
		sp.plt.Legend.Add(label, line)
	}

	if len(cx) > 0 {
		pts := make(plotter.XYs, len(cx))
		for i := range cx {
			pts[i] = plotter.XY{X: cx[i], Y: cy[i]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			sp.err = err
			return
		}
		sc.GlyphStyle.Shape = draw.PlusGlyph{}
		sc.GlyphStyle.Color = col
		sc.GlyphStyle.Radius = vg.Points(3)
		sp.plt.Add(sc)
	}
}

// AddSurvival draws the survival function of sf.
func (sp *Plotter) AddSurvival(sf *SurvfuncRight, label string, opts CurveOptions) *Plotter {

	var lo, hi, cx, cy []float64
	if opts.Band {
		lo, hi = sf.ConfInt(opts.Level)
	}
	if opts.Censors {
		cx, cy = sf.Censored()
	}
	sp.unit = true
	sp.addCurve(label, sf.Time(), sf.SurvProb(), 1, lo, hi, cx, cy)

	return sp
}

// AddCumDensity draws the cumulative density 1 - S(t) of sf.
func (sp *Plotter) AddCumDensity(sf *SurvfuncRight, label string, opts CurveOptions) *Plotter {

	var lo, hi, cx, cy []float64
	if opts.Band {
		lo, hi = sf.CumDensityConfInt(opts.Level)
	}
	if opts.Censors {
		cx, cy = sf.Censored()
		for i := range cy {
			cy[i] = 1 - cy[i]
		}
	}
	sp.unit = true
	sp.addCurve(label, sf.Time(), sf.CumDensity(), 0, lo, hi, cx, cy)

	return sp
}

// AddCumHaz draws the cumulative hazard estimated by na.
func (sp *Plotter) AddCumHaz(na *NelsonAalen, label string, opts CurveOptions) *Plotter {

	var lo, hi []float64
	if opts.Band {
		lo, hi = na.ConfInt(opts.Level)
	}
	sp.addCurve(label, na.Time(), na.CumHaz(), 0, lo, hi, nil, nil)

	return sp
}

// Plot returns the underlying plot, ready to be drawn.
func (sp *Plotter) Plot() *plot.Plot {
	if sp.unit && sp.plt.Y.Max < 1 {
		sp.plt.Y.Max = 1
	}
	return sp.plt
}

// Save writes the plot to the given file, the format is taken from
// the file extension.
func (sp *Plotter) Save(fname string) error {

	if sp.err != nil {
		return sp.err
	}

	if err := sp.Plot().Save(sp.width*vg.Inch, sp.height*vg.Inch, fname); err != nil {
		return fmt.Errorf("saving plot to %s: %w", fname, err)
	}

	return nil
}

// SaveGrid draws the given plots side by side in one PNG file of the
// given size in inches.
func SaveGrid(fname string, width, height float64, plots ...*Plotter) error {

	if len(plots) == 0 {
		return errors.New("SaveGrid: no plots")
	}

	row := make([]*plot.Plot, len(plots))
	for j, sp := range plots {
		if sp.err != nil {
			return sp.err
		}
		row[j] = sp.Plot()
	}

	img := vgimg.New(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1,
		Cols: len(plots),
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 4,
	}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for j, p := range row {
		p.Draw(canvases[0][j])
	}

	f, err := os.Create(fname)
	if err != nil {
		return err
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("SaveGrid: %w", err)
	}

	return f.Close()
}
