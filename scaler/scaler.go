// Package scaler normalizes basin data before windows are cut from it.
// A Hub fits per-variable statistics across all basins and time steps,
// skipping missing values, rescales the arrays in place, and hands back
// a reusable Transform so target windows can be mapped back to physical
// units after inference.
package scaler

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/basinlab/go-hydrosample/series"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Supported normalization methods.
const (
	MethodStandard = "standard"
	MethodMinMax   = "minmax"
)

var (
	ErrUnknownMethod = errors.New("unknown normalization method")
	ErrWidthMismatch = errors.New("column count does not match fitted variables")
	ErrNotFitted     = errors.New("scaler has not been fitted")
)

// VarStats holds the fitted statistics of one variable.
type VarStats struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Stats is the serializable snapshot of every fitted stream.
type Stats struct {
	Method  string     `json:"method"`
	Target  []VarStats `json:"target,omitempty"`
	Forcing []VarStats `json:"forcing,omitempty"`
	Static  []VarStats `json:"static,omitempty"`
}

// Hub fits and applies normalization for the three data streams.
type Hub struct {
	method  string
	target  *Transform
	forcing *Transform
	static  *Transform
}

func NewHub(method string) (*Hub, error) {
	switch method {
	case MethodStandard, MethodMinMax:
	default:
		return nil, fmt.Errorf("method %q, %w", method, ErrUnknownMethod)
	}
	return &Hub{method: method}, nil
}

func (h *Hub) Method() string {
	return h.method
}

// Normalize fits each present stream and rescales it in place. The
// returned Transform inverts the target stream; it is nil when no
// target was given. Absent streams are skipped.
func (h *Hub) Normalize(target, forcing *series.MultiBasin, static *series.Attributes) (*Transform, error) {
	if target != nil {
		h.target = fitMultiBasin(target, h.method)
		if err := h.target.applyMultiBasin(target); err != nil {
			return nil, err
		}
	}
	if forcing != nil {
		h.forcing = fitMultiBasin(forcing, h.method)
		if err := h.forcing.applyMultiBasin(forcing); err != nil {
			return nil, err
		}
	}
	if static != nil && static.Width() > 0 {
		h.static = fitAttributes(static, h.method)
		if err := h.static.applyAttributes(static); err != nil {
			return nil, err
		}
	}
	return h.target, nil
}

func (h *Hub) Target() *Transform  { return h.target }
func (h *Hub) Forcing() *Transform { return h.forcing }
func (h *Hub) Static() *Transform  { return h.static }

// Stats snapshots the fitted streams for serialization.
func (h *Hub) Stats() *Stats {
	s := &Stats{Method: h.method}
	if h.target != nil {
		s.Target = h.target.Stats()
	}
	if h.forcing != nil {
		s.Forcing = h.forcing.Stats()
	}
	if h.static != nil {
		s.Static = h.static.Stats()
	}
	return s
}

// SaveStats writes the fitted statistics as JSON so another process
// can restore the transforms without refitting.
func (h *Hub) SaveStats(path string) error {
	if h.target == nil && h.forcing == nil && h.static == nil {
		return ErrNotFitted
	}
	out, err := json.MarshalIndent(h.Stats(), "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal scaler stats, %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("unable to write scaler stats, %w", err)
	}
	return nil
}

// LoadStats restores a fitted Hub from a stats file.
func LoadStats(path string) (*Hub, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read scaler stats, %w", err)
	}
	var s Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unable to unmarshal scaler stats, %w", err)
	}
	return FromStats(&s)
}

// FromStats restores a fitted Hub from a stats snapshot.
func FromStats(s *Stats) (*Hub, error) {
	if s == nil {
		return nil, ErrNotFitted
	}
	h, err := NewHub(s.Method)
	if err != nil {
		return nil, err
	}
	if len(s.Target) > 0 {
		h.target = &Transform{method: s.Method, stats: s.Target}
	}
	if len(s.Forcing) > 0 {
		h.forcing = &Transform{method: s.Method, stats: s.Forcing}
	}
	if len(s.Static) > 0 {
		h.static = &Transform{method: s.Method, stats: s.Static}
	}
	return h, nil
}

// Transform rescales columns by their fitted statistics. Column order
// matches the variable order of the fitted stream.
type Transform struct {
	method string
	stats  []VarStats
}

func (tr *Transform) Method() string {
	return tr.method
}

// Names returns the fitted variable names in column order.
func (tr *Transform) Names() []string {
	names := make([]string, 0, len(tr.stats))
	for _, s := range tr.stats {
		names = append(names, s.Name)
	}
	return names
}

// Stats returns a copy of the fitted statistics in column order.
func (tr *Transform) Stats() []VarStats {
	out := make([]VarStats, len(tr.stats))
	copy(out, tr.stats)
	return out
}

// Apply normalizes a grid whose columns follow the fitted order.
func (tr *Transform) Apply(g *series.Grid) error {
	return tr.rescaleGrid(g, false)
}

// Invert maps a normalized grid back to physical units.
func (tr *Transform) Invert(g *series.Grid) error {
	return tr.rescaleGrid(g, true)
}

// ApplyColumn normalizes a flat slice belonging to fitted column j.
func (tr *Transform) ApplyColumn(j int, vals []float64) error {
	if tr == nil || j < 0 || j >= len(tr.stats) {
		return fmt.Errorf("column %d, %w", j, ErrWidthMismatch)
	}
	for i, v := range vals {
		vals[i] = tr.forward(j, v)
	}
	return nil
}

// InvertColumn maps a flat normalized slice back to physical units.
func (tr *Transform) InvertColumn(j int, vals []float64) error {
	if tr == nil || j < 0 || j >= len(tr.stats) {
		return fmt.Errorf("column %d, %w", j, ErrWidthMismatch)
	}
	for i, v := range vals {
		vals[i] = tr.backward(j, v)
	}
	return nil
}

func (tr *Transform) rescaleGrid(g *series.Grid, invert bool) error {
	if tr == nil {
		return ErrNotFitted
	}
	rows, cols := g.Dims()
	if cols != len(tr.stats) {
		return fmt.Errorf("%d columns over %d fitted, %w", cols, len(tr.stats), ErrWidthMismatch)
	}
	for r := 0; r < rows; r++ {
		row, err := g.Row(r)
		if err != nil {
			return err
		}
		for j, v := range row {
			if invert {
				row[j] = tr.backward(j, v)
			} else {
				row[j] = tr.forward(j, v)
			}
		}
	}
	return nil
}

func (tr *Transform) applyMultiBasin(mb *series.MultiBasin) error {
	nb, _, nv := mb.Dims()
	if nv != len(tr.stats) {
		return fmt.Errorf("%d variables over %d fitted, %w", nv, len(tr.stats), ErrWidthMismatch)
	}
	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			s, err := mb.Series(b, v)
			if err != nil {
				return err
			}
			for i, val := range s {
				s[i] = tr.forward(v, val)
			}
		}
	}
	return nil
}

func (tr *Transform) applyAttributes(a *series.Attributes) error {
	nb, cols := a.Dims()
	if cols != len(tr.stats) {
		return fmt.Errorf("%d attributes over %d fitted, %w", cols, len(tr.stats), ErrWidthMismatch)
	}
	for b := 0; b < nb; b++ {
		row, err := a.Row(b)
		if err != nil {
			return err
		}
		for j, v := range row {
			row[j] = tr.forward(j, v)
		}
	}
	return nil
}

func (tr *Transform) forward(j int, x float64) float64 {
	s := tr.stats[j]
	switch tr.method {
	case MethodMinMax:
		return (x - s.Min) / span(s)
	default:
		return (x - s.Mean) / sigma(s)
	}
}

func (tr *Transform) backward(j int, x float64) float64 {
	s := tr.stats[j]
	switch tr.method {
	case MethodMinMax:
		return x*span(s) + s.Min
	default:
		return x*sigma(s) + s.Mean
	}
}

// sigma and span fall back to 1 so constant or empty variables map to
// zero and invert exactly.
func sigma(s VarStats) float64 {
	if s.Std <= 0 {
		return 1
	}
	return s.Std
}

func span(s VarStats) float64 {
	if s.Max-s.Min <= 0 {
		return 1
	}
	return s.Max - s.Min
}

func fitMultiBasin(mb *series.MultiBasin, method string) *Transform {
	nb, nt, nv := mb.Dims()
	tr := &Transform{method: method, stats: make([]VarStats, nv)}
	scratch := make([]float64, 0, nb*nt)
	for v, name := range mb.Variables() {
		scratch = scratch[:0]
		for b := 0; b < nb; b++ {
			s, err := mb.Series(b, v)
			if err != nil {
				continue
			}
			for _, val := range s {
				if !math.IsNaN(val) {
					scratch = append(scratch, val)
				}
			}
		}
		tr.stats[v] = fitValues(name, scratch)
	}
	return tr
}

func fitAttributes(a *series.Attributes, method string) *Transform {
	nb, cols := a.Dims()
	tr := &Transform{method: method, stats: make([]VarStats, cols)}
	scratch := make([]float64, 0, nb)
	for j, name := range a.Names() {
		scratch = scratch[:0]
		col, err := a.Column(j)
		if err != nil {
			continue
		}
		for _, val := range col {
			if !math.IsNaN(val) {
				scratch = append(scratch, val)
			}
		}
		tr.stats[j] = fitValues(name, scratch)
	}
	return tr
}

func fitValues(name string, vals []float64) VarStats {
	s := VarStats{Name: name, Count: len(vals)}
	if len(vals) == 0 {
		return s
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if math.IsNaN(std) {
		std = 0
	}
	s.Mean = mean
	s.Std = std
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	return s
}
