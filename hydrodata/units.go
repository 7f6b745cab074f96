package hydrodata

import (
	"log/slog"

	"github.com/basinlab/go-hydrosample/series"
	"gonum.org/v1/gonum/floats"
)

// Physical units tracked on fetched variables.
const (
	UnitCubicMetersPerSecond = "m3/s"
	UnitMillimetersPerDay    = "mm/day"
)

// flowScale converts a discharge in m3/s over one day to a depth in mm
// spread across one km2: 86400 s/day * 1000 mm/m / 1e6 m2/km2.
const flowScale = 86.4

// ConvertFlowToMMPerDay harmonizes a streamflow variable from m3/s to
// mm/day using each basin's catchment area in km2. Series are scaled in
// place. Variables already in mm/day are left alone, as are basins with
// a missing or nonpositive area, so repeated calls are safe. A variable
// with no recorded unit is assumed to be raw source discharge in m3/s.
func ConvertFlowToMMPerDay(mb *series.MultiBasin, variable string, areas map[string]float64) error {
	if mb == nil || len(areas) == 0 {
		return nil
	}
	v, ok := mb.VariableIndex(variable)
	if !ok {
		return nil
	}
	switch unit := mb.Unit(variable); unit {
	case UnitMillimetersPerDay:
		return nil
	case UnitCubicMetersPerSecond, "":
	default:
		slog.Warn("unable to convert streamflow from an unrecognized unit", "variable", variable, "unit", unit)
		return nil
	}

	for b, id := range mb.Basins() {
		area, ok := areas[id]
		if !ok || area <= 0 {
			slog.Warn("unable to convert streamflow without a catchment area", "basin", id)
			continue
		}
		s, err := mb.Series(b, v)
		if err != nil {
			return err
		}
		floats.Scale(flowScale/area, s)
	}
	return mb.SetUnit(variable, UnitMillimetersPerDay)
}
