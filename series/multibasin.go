// Package series holds the labeled array containers shared across the module:
// a 3D basin by time by variable block for dynamic data, a 2D basin by
// attribute block for static data, and the grid/window types produced by
// sample extraction.
package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoBasins            = errors.New("no basins provided")
	ErrNoVariables         = errors.New("no variables provided")
	ErrNoTimes             = errors.New("no time steps provided")
	ErrNonMonotonic        = errors.New("time axis is not monotonically increasing")
	ErrDuplicateLabel      = errors.New("duplicate axis label")
	ErrDataLenMismatch     = errors.New("data length does not match axis dimensions")
	ErrUnknownBasin        = errors.New("basin not present")
	ErrUnknownVariable     = errors.New("variable not present")
	ErrBasinOutOfBounds    = errors.New("basin index is out of bounds")
	ErrVariableOutOfBounds = errors.New("variable index is out of bounds")
)

// MultiBasin is a labeled 3D array over (basin, time, variable). The backing
// storage keeps each (basin, variable) pair's time series contiguous, so
// per series operations like interpolation and window slicing work on plain
// subslices. All basins share one regularly spaced time axis.
type MultiBasin struct {
	basins []string
	times  []time.Time
	vars   []string
	units  map[string]string

	data []float64

	basinIdx map[string]int
	varIdx   map[string]int
}

// NewMultiBasin allocates a series block for the given axes with every value
// initialized to NaN, the representation of a missing observation.
func NewMultiBasin(basins []string, times []time.Time, vars []string) (*MultiBasin, error) {
	if len(basins) == 0 {
		return nil, ErrNoBasins
	}
	if len(times) == 0 {
		return nil, ErrNoTimes
	}
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}

	var lastT time.Time
	for i, currT := range times {
		if !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
		lastT = currT
	}

	basinIdx, err := indexLabels(basins)
	if err != nil {
		return nil, fmt.Errorf("basin axis, %w", err)
	}
	varIdx, err := indexLabels(vars)
	if err != nil {
		return nil, fmt.Errorf("variable axis, %w", err)
	}

	data := make([]float64, len(basins)*len(times)*len(vars))
	for i := range data {
		data[i] = math.NaN()
	}

	tSeries := make([]time.Time, len(times))
	copy(tSeries, times)

	return &MultiBasin{
		basins:   append([]string(nil), basins...),
		times:    tSeries,
		vars:     append([]string(nil), vars...),
		units:    make(map[string]string),
		data:     data,
		basinIdx: basinIdx,
		varIdx:   varIdx,
	}, nil
}

func indexLabels(labels []string) (map[string]int, error) {
	idx := make(map[string]int, len(labels))
	for i, label := range labels {
		if _, exists := idx[label]; exists {
			return nil, fmt.Errorf("label %q, %w", label, ErrDuplicateLabel)
		}
		idx[label] = i
	}
	return idx, nil
}

// Dims returns the basin, time, and variable axis lengths.
func (mb *MultiBasin) Dims() (int, int, int) {
	return len(mb.basins), len(mb.times), len(mb.vars)
}

func (mb *MultiBasin) Basins() []string {
	return mb.basins
}

func (mb *MultiBasin) Times() []time.Time {
	return mb.times
}

func (mb *MultiBasin) Variables() []string {
	return mb.vars
}

func (mb *MultiBasin) BasinIndex(id string) (int, bool) {
	i, ok := mb.basinIdx[id]
	return i, ok
}

func (mb *MultiBasin) VariableIndex(name string) (int, bool) {
	i, ok := mb.varIdx[name]
	return i, ok
}

// Unit reports the physical unit recorded for a variable, empty if untracked.
func (mb *MultiBasin) Unit(variable string) string {
	return mb.units[variable]
}

func (mb *MultiBasin) SetUnit(variable, unit string) error {
	if _, ok := mb.varIdx[variable]; !ok {
		return fmt.Errorf("variable %q, %w", variable, ErrUnknownVariable)
	}
	mb.units[variable] = unit
	return nil
}

// Series returns the contiguous time series view for a basin and variable
// ordinal. Writes through the view mutate the stored block.
func (mb *MultiBasin) Series(b, v int) ([]float64, error) {
	if b < 0 || b >= len(mb.basins) {
		return nil, ErrBasinOutOfBounds
	}
	if v < 0 || v >= len(mb.vars) {
		return nil, ErrVariableOutOfBounds
	}
	nt := len(mb.times)
	start := (b*len(mb.vars) + v) * nt
	return mb.data[start : start+nt], nil
}

// SeriesByName resolves basin and variable labels before returning the view.
func (mb *MultiBasin) SeriesByName(basin, variable string) ([]float64, error) {
	b, ok := mb.basinIdx[basin]
	if !ok {
		return nil, fmt.Errorf("basin %q, %w", basin, ErrUnknownBasin)
	}
	v, ok := mb.varIdx[variable]
	if !ok {
		return nil, fmt.Errorf("variable %q, %w", variable, ErrUnknownVariable)
	}
	return mb.Series(b, v)
}

// SetSeries copies src over the stored time series for a basin and variable.
func (mb *MultiBasin) SetSeries(b, v int, src []float64) error {
	dst, err := mb.Series(b, v)
	if err != nil {
		return err
	}
	if len(src) != len(dst) {
		return fmt.Errorf("series of length %d into time axis of %d, %w", len(src), len(dst), ErrDataLenMismatch)
	}
	copy(dst, src)
	return nil
}

// At fetches one value by basin, time, and variable ordinal.
func (mb *MultiBasin) At(b, t, v int) (float64, error) {
	s, err := mb.Series(b, v)
	if err != nil {
		return 0.0, err
	}
	if t < 0 || t >= len(s) {
		return 0.0, ErrRowOutOfBounds
	}
	return s[t], nil
}

// CountNaN reports how many stored values are missing.
func (mb *MultiBasin) CountNaN() int {
	var n int
	for _, v := range mb.data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Attributes is a labeled 2D array over (basin, attribute) with row major
// storage. A nil *Attributes behaves as a zero width attribute block.
type Attributes struct {
	basins []string
	names  []string

	data []float64

	basinIdx map[string]int
}

// NewAttributes allocates an attribute block initialized to NaN.
func NewAttributes(basins, names []string) (*Attributes, error) {
	if len(basins) == 0 {
		return nil, ErrNoBasins
	}
	basinIdx, err := indexLabels(basins)
	if err != nil {
		return nil, fmt.Errorf("basin axis, %w", err)
	}
	if _, err := indexLabels(names); err != nil {
		return nil, fmt.Errorf("attribute axis, %w", err)
	}

	data := make([]float64, len(basins)*len(names))
	for i := range data {
		data[i] = math.NaN()
	}
	return &Attributes{
		basins:   append([]string(nil), basins...),
		names:    append([]string(nil), names...),
		data:     data,
		basinIdx: basinIdx,
	}, nil
}

// Width reports the attribute count, 0 for a nil receiver. Callers treat a
// zero width block as "no static inputs" rather than an error.
func (a *Attributes) Width() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

func (a *Attributes) Dims() (int, int) {
	if a == nil {
		return 0, 0
	}
	return len(a.basins), len(a.names)
}

func (a *Attributes) Basins() []string {
	if a == nil {
		return nil
	}
	return a.basins
}

func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	return a.names
}

func (a *Attributes) BasinIndex(id string) (int, bool) {
	if a == nil {
		return 0, false
	}
	i, ok := a.basinIdx[id]
	return i, ok
}

// Row returns the attribute vector view for a basin ordinal.
func (a *Attributes) Row(b int) ([]float64, error) {
	if a == nil || b < 0 || b >= len(a.basins) {
		return nil, ErrBasinOutOfBounds
	}
	return a.data[b*len(a.names) : (b+1)*len(a.names)], nil
}

func (a *Attributes) SetRow(b int, src []float64) error {
	dst, err := a.Row(b)
	if err != nil {
		return err
	}
	if len(src) != len(dst) {
		return fmt.Errorf("row of length %d into %d attributes, %w", len(src), len(dst), ErrDataLenMismatch)
	}
	copy(dst, src)
	return nil
}

// Column returns a copy of one attribute across all basins.
func (a *Attributes) Column(j int) ([]float64, error) {
	if a == nil || j < 0 || j >= len(a.names) {
		return nil, ErrColOutOfBounds
	}
	res := make([]float64, 0, len(a.basins))
	for b := 0; b < len(a.basins); b++ {
		res = append(res, a.data[b*len(a.names)+j])
	}
	return res, nil
}

// Set stores one attribute value by basin and attribute ordinal.
func (a *Attributes) Set(b, j int, val float64) error {
	row, err := a.Row(b)
	if err != nil {
		return err
	}
	if j < 0 || j >= len(row) {
		return ErrColOutOfBounds
	}
	row[j] = val
	return nil
}
