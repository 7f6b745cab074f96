package hydrosample

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/basinlab/go-hydrosample/series"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNoTargetStream = errors.New("target stream is absent")

// LineGrid generates an echart multi-line chart from the columns of a
// grid over a time axis. Missing values render as gaps.
func LineGrid(title string, names []string, t []time.Time, g *series.Grid) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	rows, cols := g.Dims()
	if len(t) < rows {
		rows = len(t)
	}
	lineData := make([][]opts.LineData, cols)
	for j := 0; j < cols; j++ {
		lineData[j] = make([]opts.LineData, 0, rows)
		for r := 0; r < rows; r++ {
			v, err := g.At(r, j)
			if err != nil || math.IsNaN(v) {
				lineData[j] = append(lineData[j], opts.LineData{Value: nil})
				continue
			}
			lineData[j] = append(lineData[j], opts.LineData{Value: v})
		}
	}

	line = line.SetXAxis(t[:rows])
	for j, name := range names {
		if j >= cols {
			break
		}
		line = line.AddSeries(name, lineData[j])
	}
	return line
}

// LineBasinTarget charts one basin's stored normalized target series.
func (s *Sampler) LineBasinTarget(basin string) (*charts.Line, error) {
	if s.y == nil {
		return nil, ErrNoTargetStream
	}
	b, ok := s.y.BasinIndex(basin)
	if !ok {
		return nil, fmt.Errorf("basin %q, %w", basin, hydrodata.ErrBasinNotFound)
	}
	_, nt, _ := s.y.Dims()
	g, err := s.targetWindow(b, 0, nt)
	if err != nil {
		return nil, err
	}
	return LineGrid(fmt.Sprintf("Target %s", basin), s.TargetNames(), s.y.Times(), g), nil
}

// PlotSample renders one sample's input and target windows to an html
// file.
func (s *Sampler) PlotSample(path string, id int) error {
	w, err := s.Sample(id)
	if err != nil {
		return err
	}

	inRows, _ := w.Input.Dims()
	inStart := w.Anchor
	if inRows == s.opt.WarmupLength+s.opt.ForecastHistory {
		inStart = w.Anchor.AddDate(0, 0, -s.opt.WarmupLength)
	}
	tgRows, _ := w.Target.Dims()
	tgStart := w.Anchor
	if tgRows == 1 && s.opt.ForecastHistory > 1 {
		tgStart = w.Anchor.AddDate(0, 0, s.opt.ForecastHistory-1)
	}

	page := components.NewPage()
	page.AddCharts(
		LineGrid(fmt.Sprintf("Input Window %s", w.BasinID), s.InputNames(), dailyAxis(inStart, inRows), w.Input),
		LineGrid(fmt.Sprintf("Target Window %s", w.BasinID), s.TargetNames(), dailyAxis(tgStart, tgRows), w.Target),
	)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(io.MultiWriter(file))
}

func dailyAxis(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, 0, i))
	}
	return t
}
