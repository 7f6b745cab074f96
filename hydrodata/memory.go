package hydrodata

import (
	"fmt"

	"github.com/basinlab/go-hydrosample/series"
)

// MemorySource serves canned arrays, subsetting them per request. It
// backs tests, examples, and the synthetic generator. A nil stream
// field reports that stream as absent.
type MemorySource struct {
	Series *series.MultiBasin
	Attrs  *series.Attributes
	Areas  map[string]float64
}

func (m *MemorySource) ReadTimeSeries(basins []string, tr TimeRange, vars []string) (*series.MultiBasin, error) {
	if m == nil || m.Series == nil || len(vars) == 0 {
		return nil, nil
	}
	present := make([]string, 0, len(vars))
	for _, v := range vars {
		if _, ok := m.Series.VariableIndex(v); ok {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}
	if len(present) < len(vars) {
		return nil, fmt.Errorf("%d of %d requested variables, %w", len(vars)-len(present), len(vars), ErrVariableNotFound)
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	stored := m.Series.Times()
	off := -1
	for i, t := range stored {
		if t.Equal(dayFloor(tr.Start)) {
			off = i
			break
		}
	}
	nt := tr.Days()
	if off < 0 || off+nt > len(stored) {
		return nil, fmt.Errorf("%s to %s, %w",
			tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"), ErrRangeOutsideAxis)
	}

	out, err := series.NewMultiBasin(basins, tr.Axis(), vars)
	if err != nil {
		return nil, err
	}
	for b, id := range basins {
		sb, ok := m.Series.BasinIndex(id)
		if !ok {
			return nil, fmt.Errorf("basin %q, %w", id, ErrBasinNotFound)
		}
		for v, name := range vars {
			sv, _ := m.Series.VariableIndex(name)
			src, err := m.Series.Series(sb, sv)
			if err != nil {
				return nil, err
			}
			if err := out.SetSeries(b, v, src[off:off+nt]); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range vars {
		if unit := m.Series.Unit(name); unit != "" {
			if err := out.SetUnit(name, unit); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (m *MemorySource) ReadAttributes(basins []string, attrs []string) (*series.Attributes, error) {
	if m == nil || m.Attrs == nil || len(attrs) == 0 {
		return nil, nil
	}
	names := m.Attrs.Names()
	cols := make([]int, 0, len(attrs))
	missing := 0
	for _, want := range attrs {
		j := -1
		for k, name := range names {
			if name == want {
				j = k
				break
			}
		}
		if j < 0 {
			missing++
		}
		cols = append(cols, j)
	}
	if missing == len(attrs) {
		return nil, nil
	}
	if missing > 0 {
		return nil, fmt.Errorf("%d of %d requested attributes, %w", missing, len(attrs), ErrVariableNotFound)
	}

	out, err := series.NewAttributes(basins, attrs)
	if err != nil {
		return nil, err
	}
	for b, id := range basins {
		sb, ok := m.Attrs.BasinIndex(id)
		if !ok {
			return nil, fmt.Errorf("basin %q, %w", id, ErrBasinNotFound)
		}
		row, err := m.Attrs.Row(sb)
		if err != nil {
			return nil, err
		}
		for k, j := range cols {
			if err := out.Set(b, k, row[j]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (m *MemorySource) ReadAreas(basins []string) (map[string]float64, error) {
	if m == nil || len(m.Areas) == 0 {
		return nil, nil
	}
	areas := make(map[string]float64, len(basins))
	for _, id := range basins {
		if a, ok := m.Areas[id]; ok {
			areas[id] = a
		}
	}
	return areas, nil
}
