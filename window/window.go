// Package window enumerates the valid (basin, anchor) pairs of a
// multi-basin time axis into a densely indexed lookup table. An anchor
// marks the first forecast step of a window; an offset f on the time
// axis is a valid anchor when at least warmup steps precede it and a
// full horizon of rho steps fits after it, f included.
package window

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNegativeWarmup    = errors.New("warmup length must not be negative")
	ErrInvalidHorizon    = errors.New("forecast horizon must be at least 1")
	ErrSampleOutOfBounds = errors.New("sample id out of table bounds")
)

// Index is an immutable lookup table mapping dense sample ids to
// (basin, anchor) pairs. Ids are assigned basin-major and then
// time-ascending, starting at 0, so identical inputs always produce the
// identical id assignment. Entries are held as two parallel slices of
// ordinals into the basin and time axes rather than a map keyed by id.
type Index struct {
	basins []string
	times  []time.Time
	warmup int
	rho    int

	basinOrd []int
	timeOff  []int
}

// Build enumerates every valid anchor for every basin. A table with no
// qualifying offsets is valid and reports a zero length.
func Build(basins []string, times []time.Time, warmup, rho int) (*Index, error) {
	if warmup < 0 {
		return nil, fmt.Errorf("warmup %d, %w", warmup, ErrNegativeWarmup)
	}
	if rho < 1 {
		return nil, fmt.Errorf("horizon %d, %w", rho, ErrInvalidHorizon)
	}

	perBasin := len(times) - rho + 1 - warmup
	if perBasin < 0 {
		perBasin = 0
	}
	ix := &Index{
		basins:   basins,
		times:    times,
		warmup:   warmup,
		rho:      rho,
		basinOrd: make([]int, 0, perBasin*len(basins)),
		timeOff:  make([]int, 0, perBasin*len(basins)),
	}
	for b := range basins {
		for f := warmup; f < len(times)-rho+1; f++ {
			ix.basinOrd = append(ix.basinOrd, b)
			ix.timeOff = append(ix.timeOff, f)
		}
	}
	return ix, nil
}

// Len returns the number of (basin, anchor) entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.basinOrd)
}

// Warmup returns the lead-in length the table was built with.
func (ix *Index) Warmup() int {
	return ix.warmup
}

// Rho returns the forecast horizon the table was built with.
func (ix *Index) Rho() int {
	return ix.rho
}

// Basins returns the basin axis in enumeration order.
func (ix *Index) Basins() []string {
	return ix.basins
}

// Times returns the time axis the anchors index into.
func (ix *Index) Times() []time.Time {
	return ix.times
}

// At resolves a sample id to its basin label and anchor timestamp.
func (ix *Index) At(id int) (string, time.Time, error) {
	b, f, err := ix.Offsets(id)
	if err != nil {
		return "", time.Time{}, err
	}
	return ix.basins[b], ix.times[f], nil
}

// Offsets resolves a sample id to its basin ordinal and anchor offset
// on the time axis. Callers slicing stored tensors use this form to
// avoid a label round trip.
func (ix *Index) Offsets(id int) (int, int, error) {
	if ix == nil || id < 0 || id >= len(ix.basinOrd) {
		return 0, 0, fmt.Errorf("sample %d of %d, %w", id, ix.Len(), ErrSampleOutOfBounds)
	}
	return ix.basinOrd[id], ix.timeOff[id], nil
}
