// Package hydrosample builds training samples from multi-basin
// hydrological time series. A Sampler fetches raw basin data from a
// source, harmonizes units, normalizes and gap-fills the arrays, and
// enumerates every valid window into a lookup table. Samples are then
// served as (input, target) window pairs under one of four strategies.
package hydrosample

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/basinlab/go-hydrosample/gapfill"
	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/basinlab/go-hydrosample/scaler"
	"github.com/basinlab/go-hydrosample/series"
	"github.com/basinlab/go-hydrosample/window"
)

var (
	ErrNoSource           = errors.New("no data source")
	ErrNoDataStreams      = errors.New("target and forcing streams are both absent")
	ErrSampleOutOfRange   = errors.New("sample index outside strategy range")
	ErrDegenerateSampling = errors.New("sampling heuristic cannot produce an iteration")
)

// Sampler holds the fully built dataset: normalized tensors, the
// window lookup table, and the target inverse transform. Construction
// runs every fetch and transform up front; afterwards the sampler is
// immutable and safe for concurrent Sample calls.
type Sampler struct {
	opt *Options

	x *series.MultiBasin
	y *series.MultiBasin
	c *series.Attributes

	lookup  *window.Index
	hub     *scaler.Hub
	inverse *scaler.Transform

	virtualLen int
}

// New builds a dataset from the source. The configuration is validated
// before the source is touched. Streams the source reports absent are
// disabled rather than treated as errors; at least one of the target
// and forcing streams must be present.
func New(src hydrodata.Source, opt *Options) (*Sampler, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	hub, err := scaler.NewHub(opt.ScalerMethod)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNoSource
	}
	tr, err := opt.ModeRange()
	if err != nil {
		return nil, err
	}

	y, err := src.ReadTimeSeries(opt.Basins, tr, opt.TargetCols)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch target series, %w", err)
	}
	x, err := src.ReadTimeSeries(opt.Basins, tr, opt.RelevantCols)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch forcing series, %w", err)
	}
	c, err := src.ReadAttributes(opt.Basins, opt.ConstantCols)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch static attributes, %w", err)
	}
	if y == nil && x == nil {
		return nil, ErrNoDataStreams
	}

	if y != nil {
		areas, err := src.ReadAreas(opt.Basins)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch catchment areas, %w", err)
		}
		if len(areas) > 0 {
			for _, col := range opt.TargetCols {
				if err := hydrodata.ConvertFlowToMMPerDay(y, col, areas); err != nil {
					return nil, err
				}
			}
		} else {
			slog.Warn("unable to harmonize target units without catchment areas")
		}
	}

	inverse, err := hub.Normalize(y, x, c)
	if err != nil {
		return nil, fmt.Errorf("unable to normalize streams, %w", err)
	}

	if _, err := gapfill.Fill(x, opt.RelevantFillPolicy); err != nil {
		return nil, err
	}
	if _, err := gapfill.Fill(y, opt.TargetFillPolicy); err != nil {
		return nil, err
	}
	if _, err := gapfill.FillAttributes(c, opt.ConstantFillPolicy); err != nil {
		return nil, err
	}

	s := &Sampler{
		opt:     opt,
		x:       x,
		y:       y,
		c:       c,
		hub:     hub,
		inverse: inverse,
	}

	axes := s.axes()
	s.lookup, err = window.Build(axes.Basins(), axes.Times(), opt.WarmupLength, opt.ForecastHistory)
	if err != nil {
		return nil, err
	}

	if opt.Strategy == StrategyStochasticEpoch && s.isTrain() {
		_, nt, _ := axes.Dims()
		s.virtualLen, err = virtualEpochSize(len(axes.Basins()), nt, opt.ForecastHistory, opt.WarmupLength, opt.BatchSize)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len reports the number of samples the active strategy serves per
// epoch. For mode switching and stochastic evaluation this is the
// basin count; for stochastic training it is the virtual epoch size.
func (s *Sampler) Len() int {
	switch s.opt.Strategy {
	case StrategyModeSwitching:
		if !s.isTrain() {
			return s.basinCount()
		}
	case StrategyStochasticEpoch:
		if !s.isTrain() {
			return s.basinCount()
		}
		return s.virtualLen
	}
	return s.lookup.Len()
}

// TableLen reports the exact number of (basin, anchor) entries in the
// lookup table, independent of the strategy's virtual sizing. Random
// window draws must stay inside this range.
func (s *Sampler) TableLen() int {
	return s.lookup.Len()
}

// Sample extracts one (input, target) window pair. The stored tensors
// are copied, never aliased, so callers may mutate the result.
func (s *Sampler) Sample(id int) (*series.Window, error) {
	switch s.opt.Strategy {
	case StrategyFullWindow:
		return s.extract(id, false)
	case StrategySingleStep:
		return s.extract(id, true)
	case StrategyModeSwitching, StrategyStochasticEpoch:
		if s.isTrain() {
			return s.extract(id, false)
		}
		return s.extractBasin(id)
	default:
		return nil, fmt.Errorf("strategy %q, %w", s.opt.Strategy, ErrUnknownStrategy)
	}
}

// Options returns the configuration the sampler was built with.
func (s *Sampler) Options() *Options {
	return s.opt
}

// Lookup returns the window lookup table.
func (s *Sampler) Lookup() *window.Index {
	return s.lookup
}

// Scaler returns the fitted normalization hub.
func (s *Sampler) Scaler() *scaler.Hub {
	return s.hub
}

// InverseTransform maps normalized target windows back to physical
// units. It is nil when the target stream is absent.
func (s *Sampler) InverseTransform() *scaler.Transform {
	return s.inverse
}

// Target returns the stored normalized target stream. Treat as read
// only.
func (s *Sampler) Target() *series.MultiBasin {
	return s.y
}

// Forcing returns the stored normalized forcing stream. Treat as read
// only.
func (s *Sampler) Forcing() *series.MultiBasin {
	return s.x
}

// Static returns the stored normalized attribute block. Treat as read
// only.
func (s *Sampler) Static() *series.Attributes {
	return s.c
}

// InputNames lists the input window columns: dynamic variables first,
// then tiled static attributes.
func (s *Sampler) InputNames() []string {
	var names []string
	if s.x != nil {
		names = append(names, s.x.Variables()...)
	}
	if s.c != nil {
		names = append(names, s.c.Names()...)
	}
	return names
}

// TargetNames lists the target window columns.
func (s *Sampler) TargetNames() []string {
	if s.y == nil {
		return nil
	}
	return s.y.Variables()
}

func (s *Sampler) isTrain() bool {
	return s.opt.LoaderType == LoaderTrain
}

func (s *Sampler) axes() *series.MultiBasin {
	if s.y != nil {
		return s.y
	}
	return s.x
}

func (s *Sampler) basinCount() int {
	return len(s.axes().Basins())
}

func (s *Sampler) extract(id int, lastOnly bool) (*series.Window, error) {
	b, f, err := s.lookup.Offsets(id)
	if err != nil {
		return nil, err
	}
	warmup, rho := s.opt.WarmupLength, s.opt.ForecastHistory

	input, err := s.inputWindow(b, f-warmup, warmup+rho)
	if err != nil {
		return nil, err
	}
	yStart, yRows := f, rho
	if lastOnly {
		yStart, yRows = f+rho-1, 1
	}
	target, err := s.targetWindow(b, yStart, yRows)
	if err != nil {
		return nil, err
	}
	return &series.Window{
		BasinID: s.lookup.Basins()[b],
		Anchor:  s.lookup.Times()[f],
		Input:   input,
		Target:  target,
	}, nil
}

func (s *Sampler) extractBasin(i int) (*series.Window, error) {
	axes := s.axes()
	basins := axes.Basins()
	if i < 0 || i >= len(basins) {
		return nil, fmt.Errorf("basin %d of %d, %w", i, len(basins), ErrSampleOutOfRange)
	}
	_, nt, _ := axes.Dims()

	input, err := s.inputWindow(i, 0, nt)
	if err != nil {
		return nil, err
	}
	target, err := s.targetWindow(i, 0, nt)
	if err != nil {
		return nil, err
	}
	return &series.Window{
		BasinID: basins[i],
		Anchor:  axes.Times()[0],
		Input:   input,
		Target:  target,
	}, nil
}

// inputWindow copies rows time steps starting at the given offset,
// dynamic variables first, with the basin's static attributes tiled
// identically across every row.
func (s *Sampler) inputWindow(b, start, rows int) (*series.Grid, error) {
	nd := 0
	if s.x != nil {
		_, _, nd = s.x.Dims()
	}
	ns := s.c.Width()

	g, err := series.NewGrid(rows, nd+ns)
	if err != nil {
		return nil, err
	}
	for v := 0; v < nd; v++ {
		src, err := s.x.Series(b, v)
		if err != nil {
			return nil, err
		}
		for r := 0; r < rows; r++ {
			if err := g.Set(r, v, src[start+r]); err != nil {
				return nil, err
			}
		}
	}
	if ns > 0 {
		row, err := s.c.Row(b)
		if err != nil {
			return nil, err
		}
		for j := 0; j < ns; j++ {
			for r := 0; r < rows; r++ {
				if err := g.Set(r, nd+j, row[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func (s *Sampler) targetWindow(b, start, rows int) (*series.Grid, error) {
	nv := 0
	if s.y != nil {
		_, _, nv = s.y.Dims()
	}
	g, err := series.NewGrid(rows, nv)
	if err != nil {
		return nil, err
	}
	for v := 0; v < nv; v++ {
		src, err := s.y.Series(b, v)
		if err != nil {
			return nil, err
		}
		for r := 0; r < rows; r++ {
			if err := g.Set(r, v, src[start+r]); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// virtualEpochSize computes the number of random window draws per
// epoch so the chance any usable step goes unseen falls below 1%,
// under an independent draw model. The batch is shrunk by tens while a
// single batch would cover the whole grid, then clamped to one.
func virtualEpochSize(ngrid, nt, rho, warmup, batch int) (int, error) {
	for batch*rho >= ngrid*nt {
		batch /= 10
		if batch < 1 {
			batch = 1
			break
		}
	}
	span := float64(ngrid) * float64(nt-warmup)
	p := float64(batch*rho) / span
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("draw probability %f, %w", p, ErrDegenerateSampling)
	}
	nIter := int(math.Ceil(math.Log(0.01) / math.Log(1-p)))
	if nIter < 1 {
		return 0, fmt.Errorf("%d iterations, %w", nIter, ErrDegenerateSampling)
	}
	return nIter * batch, nil
}
