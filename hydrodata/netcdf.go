package hydrodata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/basinlab/go-hydrosample/series"
	"github.com/batchatco/go-native-netcdf/netcdf"
	"golang.org/x/sync/errgroup"
)

const (
	// timeVar is the axis variable every basin file must carry,
	// holding days since 1970-01-01.
	timeVar = "time"
	// AttributesFile is the static attribute catalog expected next to
	// the basin files. Its first column holds the basin id.
	AttributesFile = "attributes.csv"
	// DefaultAreaColumn names the attribute column holding catchment
	// area in km2.
	DefaultAreaColumn = "area_km2"
)

var (
	ErrMissingDataDir  = errors.New("data directory does not exist")
	ErrMalformedSeries = errors.New("series length does not match the file time axis")
)

// NetCDFSource reads one NetCDF file per basin, named <basin>.nc, from
// a flat directory. Each file carries a time variable with day offsets
// from the Unix epoch and one float series per variable on that axis.
// Static attributes and catchment areas come from attributes.csv in
// the same directory. Basin files are fetched concurrently.
type NetCDFSource struct {
	dir string

	// Units optionally records the physical unit per variable, since
	// the fetch path does not inspect per-variable file attributes.
	Units map[string]string
	// AreaColumn overrides the attribute column used by ReadAreas.
	AreaColumn string

	attrNames []string
	attrRows  map[string][]float64
}

// NewNetCDFSource opens a basin-file directory and parses its
// attribute catalog when one is present.
func NewNetCDFSource(dir string) (*NetCDFSource, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s, %w", dir, ErrMissingDataDir)
	}
	s := &NetCDFSource{
		dir:        dir,
		AreaColumn: DefaultAreaColumn,
	}

	names, rows, bad, err := parseAttributeCatalog(filepath.Join(dir, AttributesFile))
	if err != nil {
		return nil, err
	}
	if bad > 0 {
		slog.Warn("unable to parse some attribute cells, holding them as NaN", "cells", bad)
	}
	s.attrNames = names
	s.attrRows = rows
	return s, nil
}

func (s *NetCDFSource) ReadTimeSeries(basins []string, tr TimeRange, vars []string) (*series.MultiBasin, error) {
	if s == nil || len(vars) == 0 {
		return nil, nil
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	mb, err := series.NewMultiBasin(basins, tr.Axis(), vars)
	if err != nil {
		return nil, err
	}

	present := make([][]bool, len(basins))
	var g errgroup.Group
	for b, id := range basins {
		present[b] = make([]bool, len(vars))
		g.Go(func() error {
			return s.readBasinFile(id, b, vars, mb, present[b])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	absent := 0
	for v, name := range vars {
		have := 0
		for b := range basins {
			if present[b][v] {
				have++
			}
		}
		switch {
		case have == 0:
			absent++
		case have < len(basins):
			slog.Warn("variable missing from some basin files", "variable", name, "missing", len(basins)-have)
		}
	}
	if absent == len(vars) {
		return nil, nil
	}

	for name, unit := range s.Units {
		if _, ok := mb.VariableIndex(name); ok {
			if err := mb.SetUnit(name, unit); err != nil {
				return nil, err
			}
		}
	}
	return mb, nil
}

func (s *NetCDFSource) readBasinFile(id string, b int, vars []string, mb *series.MultiBasin, present []bool) error {
	path := filepath.Join(s.dir, id+".nc")
	nc, err := netcdf.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open basin file %s, %w", path, err)
	}
	defer nc.Close()

	tg, err := nc.GetVarGetter(timeVar)
	if err != nil {
		return fmt.Errorf("unable to read time axis of %s, %w", path, err)
	}
	tv, err := tg.Values()
	if err != nil {
		return fmt.Errorf("unable to read time axis of %s, %w", path, err)
	}
	days, err := asDays(tv)
	if err != nil {
		return fmt.Errorf("time axis of %s, %w", path, err)
	}

	_, nt, _ := mb.Dims()
	baseDay := mb.Times()[0].Unix() / 86400

	for v, name := range vars {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		raw, err := vg.Values()
		if err != nil {
			return fmt.Errorf("unable to read %s of %s, %w", name, path, err)
		}
		vals, err := asFloats(raw)
		if err != nil {
			return fmt.Errorf("variable %s of %s, %w", name, path, err)
		}
		if len(vals) != len(days) {
			return fmt.Errorf("variable %s of %s has %d values over %d steps, %w",
				name, path, len(vals), len(days), ErrMalformedSeries)
		}
		dst, err := mb.Series(b, v)
		if err != nil {
			return err
		}
		for i, d := range days {
			if pos := d - baseDay; pos >= 0 && pos < int64(nt) {
				dst[pos] = vals[i]
			}
		}
		present[v] = true
	}
	return nil
}

func (s *NetCDFSource) ReadAttributes(basins []string, attrs []string) (*series.Attributes, error) {
	if s == nil || s.attrRows == nil || len(attrs) == 0 {
		return nil, nil
	}
	cols := make([]int, 0, len(attrs))
	missing := 0
	for _, want := range attrs {
		j := -1
		for k, name := range s.attrNames {
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
		row, ok := s.attrRows[id]
		if !ok {
			return nil, fmt.Errorf("basin %q has no attribute row, %w", id, ErrBasinNotFound)
		}
		for k, j := range cols {
			if err := out.Set(b, k, row[j]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *NetCDFSource) ReadAreas(basins []string) (map[string]float64, error) {
	if s == nil || s.attrRows == nil {
		return nil, nil
	}
	col := s.AreaColumn
	if col == "" {
		col = DefaultAreaColumn
	}
	j := -1
	for k, name := range s.attrNames {
		if name == col {
			j = k
			break
		}
	}
	if j < 0 {
		return nil, nil
	}
	areas := make(map[string]float64, len(basins))
	for _, id := range basins {
		if row, ok := s.attrRows[id]; ok && !math.IsNaN(row[j]) {
			areas[id] = row[j]
		}
	}
	return areas, nil
}

// parseAttributeCatalog loads attributes.csv: a header row whose first
// column labels the basin id, then one numeric row per basin. Cells
// that fail to parse are held as NaN and counted.
func parseAttributeCatalog(path string) ([]string, map[string][]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, 0, nil
		}
		return nil, nil, 0, fmt.Errorf("unable to open attribute catalog, %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, 0, nil
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("unable to read attribute header, %w", err)
	}
	names := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		names = append(names, strings.TrimSpace(h))
	}

	rows := make(map[string][]float64)
	bad := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, 0, fmt.Errorf("unable to read attribute row, %w", err)
		}
		row := make([]float64, len(names))
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				v = math.NaN()
				bad++
			}
			row[j] = v
		}
		rows[strings.TrimSpace(rec[0])] = row
	}
	return names, rows, bad, nil
}

func asDays(raw any) ([]int64, error) {
	switch v := raw.(type) {
	case []int64:
		return v, nil
	case []int32:
		days := make([]int64, len(v))
		for i, d := range v {
			days[i] = int64(d)
		}
		return days, nil
	case []float64:
		days := make([]int64, len(v))
		for i, d := range v {
			days[i] = int64(math.Round(d))
		}
		return days, nil
	case []float32:
		days := make([]int64, len(v))
		for i, d := range v {
			days[i] = int64(math.Round(float64(d)))
		}
		return days, nil
	default:
		return nil, fmt.Errorf("unsupported time axis type %T", raw)
	}
}

func asFloats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []float32:
		vals := make([]float64, len(v))
		for i, f := range v {
			vals[i] = float64(f)
		}
		return vals, nil
	case []int32:
		vals := make([]float64, len(v))
		for i, f := range v {
			vals[i] = float64(f)
		}
		return vals, nil
	case []int16:
		vals := make([]float64, len(v))
		for i, f := range v {
			vals[i] = float64(f)
		}
		return vals, nil
	default:
		return nil, fmt.Errorf("unsupported series type %T", raw)
	}
}
