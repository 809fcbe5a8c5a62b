// Package chart renders archived runs to PNG or SVG with gonum/plot.
package chart

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

type Options struct {
	Title string
	// Width and Height are in inches.
	Width  float64
	Height float64
	DPI    int
	// Events are drawn as vertical markers.
	Events []dynamo.StageEvent
}

func DefaultOptions() Options {
	return Options{Width: 8, Height: 6, DPI: 150}
}

var stagingColor = color.RGBA{R: 200, G: 60, B: 40, A: 255}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)

	p.X.Tick.Marker = limitedTicker(8, "%.0f")
	p.Y.Tick.Marker = limitedTicker(8, "%.3g")
	p.Add(plotter.NewGrid())
}

// Line builds a time plot of one field.
func Line(samples []dynamo.Sample, field string, opts Options) (*plot.Plot, error) {
	xs, ys, err := Series(samples, field)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = Label(field)
	}
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = Label(field)
	stylePlot(p)

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)

	lo, hi := minMax(ys)
	for _, ev := range opts.Events {
		marker, err := plotter.NewLine(plotter.XYs{{X: ev.Time, Y: lo}, {X: ev.Time, Y: hi}})
		if err != nil {
			return nil, err
		}
		marker.LineStyle.Color = stagingColor
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(marker)
	}

	return p, nil
}

// WritePNG renders p at the requested size.
func WritePNG(w io.Writer, p *plot.Plot, opts Options) error {
	width := vg.Length(opts.Width) * vg.Inch
	height := vg.Length(opts.Height) * vg.Inch

	c := vgimg.NewWith(
		vgimg.UseWH(width, height),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// WriteSVG renders p as a vector image. DPI is ignored.
func WriteSVG(w io.Writer, p *plot.Plot, opts Options) error {
	c := vgsvg.New(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch)
	p.Draw(draw.New(c))
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("cannot write svg: %w", err)
	}
	return nil
}

func minMax(ys []float64) (lo, hi float64) {
	lo, hi = ys[0], ys[0]
	for _, y := range ys[1:] {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	return lo, hi
}
