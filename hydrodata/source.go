// Package hydrodata supplies raw basin data to the sample builder. A
// Source hands back time series, static attributes, and catchment
// areas; any stream it cannot provide is reported as absent rather
// than as an error. Implementations cover NetCDF directories, canned
// in-memory data, and a seeded synthetic generator.
package hydrodata

import (
	"errors"
	"fmt"
	"time"

	"github.com/basinlab/go-hydrosample/series"
	"github.com/goccy/go-json"
)

var (
	ErrStartAfterEnd    = errors.New("time range start is after end")
	ErrUnsetTime        = errors.New("unset time range start or end")
	ErrBasinNotFound    = errors.New("basin not found in source")
	ErrVariableNotFound = errors.New("variable not found in source")
	ErrRangeOutsideAxis = errors.New("time range outside source axis")
)

// Source is the external data contract consumed at construction time.
// Each reader may return (nil, nil) to signal the stream is absent,
// which disables it downstream instead of failing the build.
type Source interface {
	// ReadTimeSeries fetches the named variables for the basins over
	// the inclusive daily range.
	ReadTimeSeries(basins []string, tr TimeRange, vars []string) (*series.MultiBasin, error)
	// ReadAttributes fetches named static attributes for the basins.
	ReadAttributes(basins []string, attrs []string) (*series.Attributes, error)
	// ReadAreas fetches catchment areas in square kilometers.
	ReadAreas(basins []string) (map[string]float64, error)
}

// TimeRange is an inclusive daily range. Bounds are normalized to UTC
// midnight.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateRange builds a TimeRange from two YYYY-MM-DD dates.
func DateRange(start, end string) (TimeRange, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("unable to parse range start, %w", err)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("unable to parse range end, %w", err)
	}
	tr := TimeRange{Start: s, End: e}
	return tr, tr.Validate()
}

func (tr TimeRange) Validate() error {
	if tr.Start.IsZero() || tr.End.IsZero() {
		return ErrUnsetTime
	}
	if tr.Start.After(tr.End) {
		return ErrStartAfterEnd
	}
	return nil
}

// Days returns the number of daily steps in the inclusive range.
func (tr TimeRange) Days() int {
	if tr.Validate() != nil {
		return 0
	}
	return int(dayFloor(tr.End).Sub(dayFloor(tr.Start)).Hours()/24) + 1
}

// Axis materializes the contiguous daily time axis of the range.
func (tr TimeRange) Axis() []time.Time {
	n := tr.Days()
	axis := make([]time.Time, 0, n)
	start := dayFloor(tr.Start)
	for i := 0; i < n; i++ {
		axis = append(axis, start.AddDate(0, 0, i))
	}
	return axis
}

// Contains reports whether the day of t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	d := dayFloor(t)
	return !d.Before(dayFloor(tr.Start)) && !d.After(dayFloor(tr.End))
}

func (tr *TimeRange) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := DateRange(raw.Start, raw.End)
	if err == nil {
		*tr = parsed
		return nil
	}
	s, serr := time.Parse(time.RFC3339, raw.Start)
	e, eerr := time.Parse(time.RFC3339, raw.End)
	if serr != nil || eerr != nil {
		return err
	}
	*tr = TimeRange{Start: s, End: e}
	return tr.Validate()
}

func dayFloor(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
