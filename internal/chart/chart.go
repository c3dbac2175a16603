// Package chart renders the radius and angle history as charts.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrMisaligned is returned when the two series differ in length.
var ErrMisaligned = errors.New("radius and angle series differ in length")

const (
	radiusLabel = "r (px)"
	angleLabel  = "theta (deg)"
)

var (
	radiusColor = color.RGBA{R: 255, G: 165, A: 255} // orange
	angleColor  = color.RGBA{G: 200, B: 220, A: 255} // cyan
)

// Series is the two aligned history series, oldest first.
type Series struct {
	Radius []float64 `json:"radius"`
	Angle  []float64 `json:"angle"`
}

// Validate checks the series are aligned.
func (s Series) Validate() error {
	if len(s.Radius) != len(s.Angle) {
		return fmt.Errorf("%w: %d vs %d", ErrMisaligned, len(s.Radius), len(s.Angle))
	}
	return nil
}

func lineChart(title, label, colour string, values []float64) *charts.Line {
	x := make([]string, len(values))
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		x[i] = strconv.Itoa(i)
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Show: opts.Bool(false)}),
	)
	line.SetXAxis(x).
		AddSeries(label, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colour}),
		)
	return line
}

// RenderHTML writes an HTML page with one line chart per series.
func RenderHTML(w io.Writer, s Series) error {
	if err := s.Validate(); err != nil {
		return err
	}

	page := components.NewPage()
	page.SetPageTitle("Handwheel history")
	page.AddCharts(
		lineChart("Hand distance", radiusLabel, "orange", s.Radius),
		lineChart("Hand angle", angleLabel, "cyan", s.Angle),
	)
	return page.Render(w)
}

func xys(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	return pts
}

func seriesPlot(title, label string, c color.Color, values []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = label

	if len(values) == 0 {
		return p, nil
	}

	line, err := plotter.NewLine(xys(values))
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return p, nil
}

// WritePNG draws both series stacked in one PNG image.
func WritePNG(w io.Writer, s Series) error {
	if err := s.Validate(); err != nil {
		return err
	}

	pr, err := seriesPlot("Hand distance", radiusLabel, radiusColor, s.Radius)
	if err != nil {
		return fmt.Errorf("radius plot: %w", err)
	}
	pa, err := seriesPlot("Hand angle", angleLabel, angleColor, s.Angle)
	if err != nil {
		return fmt.Errorf("angle plot: %w", err)
	}

	img := vgimg.New(10*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 4, PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2}
	canvases := plot.Align([][]*plot.Plot{{pr}, {pa}}, tiles, dc)
	pr.Draw(canvases[0][0])
	pa.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG writes the PNG chart to path.
func SavePNG(path string, s Series) error {
	if ext := filepath.Ext(path); ext != ".png" {
		return fmt.Errorf("chart file must have .png extension, got %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := WritePNG(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
