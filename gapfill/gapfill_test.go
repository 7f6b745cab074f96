package gapfill

import (
	"math"
	"testing"
	"time"

	"github.com/basinlab/go-hydrosample/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayAxis(n int) []time.Time {
	start := time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		times = append(times, start.AddDate(0, 0, i))
	}
	return times
}

func newSeries(t *testing.T, basins []string, vars []string, rows map[string]map[string][]float64) *series.MultiBasin {
	t.Helper()
	var nt int
	for _, byVar := range rows {
		for _, s := range byVar {
			nt = len(s)
		}
	}
	mb, err := series.NewMultiBasin(basins, dayAxis(nt), vars)
	require.NoError(t, err)
	for basin, byVar := range rows {
		for variable, s := range byVar {
			dst, err := mb.SeriesByName(basin, variable)
			require.NoError(t, err)
			copy(dst, s)
		}
	}
	return mb
}

func TestFillInterpolate(t *testing.T) {
	nan := math.NaN()
	testData := map[string]struct {
		in       []float64
		expected []float64
	}{
		"interior gaps": {
			in:       []float64{1, nan, 3, nan, 5},
			expected: []float64{1, 2, 3, 4, 5},
		},
		"boundary extrapolation": {
			in:       []float64{nan, 2, nan, 6, nan},
			expected: []float64{0, 2, 4, 6, 8},
		},
		"single observation fills constant": {
			in:       []float64{nan, nan, 7, nan, nan},
			expected: []float64{7, 7, 7, 7, 7},
		},
		"no observations left untouched": {
			in:       []float64{nan, nan, nan, nan, nan},
			expected: []float64{nan, nan, nan, nan, nan},
		},
		"uneven anchor spacing": {
			in:       []float64{0, nan, nan, 9, nan},
			expected: []float64{0, 3, 6, 9, 12},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			mb := newSeries(t,
				[]string{"b1"}, []string{"q"},
				map[string]map[string][]float64{"b1": {"q": td.in}},
			)
			res, err := Fill(mb, PolicyInterpolate)
			require.NoError(t, err)
			require.Same(t, mb, res)

			got, err := mb.SeriesByName("b1", "q")
			require.NoError(t, err)
			assert.InDeltaSlice(t, td.expected, got, 1e-12)
		})
	}
}

func TestFillInterpolatePerBasinIndependence(t *testing.T) {
	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1", "b2"}, []string{"q"},
		map[string]map[string][]float64{
			"b1": {"q": []float64{1, nan, 3}},
			"b2": {"q": []float64{10, nan, 30}},
		},
	)
	_, err := Fill(mb, PolicyInterpolate)
	require.NoError(t, err)

	b1, err := mb.SeriesByName("b1", "q")
	require.NoError(t, err)
	b2, err := mb.SeriesByName("b2", "q")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, b1, 1e-12)
	assert.InDeltaSlice(t, []float64{10, 20, 30}, b2, 1e-12)
}

func TestFillMean(t *testing.T) {
	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1", "b2", "b3"}, []string{"q"},
		map[string]map[string][]float64{
			"b1": {"q": []float64{1, nan, nan}},
			"b2": {"q": []float64{3, 4, nan}},
			"b3": {"q": []float64{nan, 6, nan}},
		},
	)
	_, err := Fill(mb, PolicyMean)
	require.NoError(t, err)

	b1, _ := mb.SeriesByName("b1", "q")
	b2, _ := mb.SeriesByName("b2", "q")
	b3, _ := mb.SeriesByName("b3", "q")

	assert.InDeltaSlice(t, []float64{1, 5}, b1[:2], 1e-12)
	assert.True(t, math.IsNaN(b1[2]))
	assert.InDeltaSlice(t, []float64{3, 4}, b2[:2], 1e-12)
	assert.True(t, math.IsNaN(b2[2]))
	assert.InDeltaSlice(t, []float64{2, 6}, b3[:2], 1e-12)
	assert.True(t, math.IsNaN(b3[2]))

	// idempotent: a second pass changes nothing
	before := append([]float64(nil), b1...)
	_, err = Fill(mb, PolicyMean)
	require.NoError(t, err)
	after, _ := mb.SeriesByName("b1", "q")
	assert.InDeltaSlice(t, before[:2], after[:2], 1e-12)
	assert.True(t, math.IsNaN(after[2]))
}

func TestFillMeanPerVariableIndependence(t *testing.T) {
	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1", "b2"}, []string{"q", "pet"},
		map[string]map[string][]float64{
			"b1": {"q": []float64{2, nan}, "pet": []float64{nan, 100}},
			"b2": {"q": []float64{4, 8}, "pet": []float64{50, nan}},
		},
	)
	_, err := Fill(mb, PolicyMean)
	require.NoError(t, err)

	q1, _ := mb.SeriesByName("b1", "q")
	pet1, _ := mb.SeriesByName("b1", "pet")
	pet2, _ := mb.SeriesByName("b2", "pet")

	assert.InDeltaSlice(t, []float64{2, 8}, q1, 1e-12)
	assert.InDeltaSlice(t, []float64{50, 100}, pet1, 1e-12)
	assert.InDeltaSlice(t, []float64{50, 100}, pet2, 1e-12)
}

func TestFillUnionInterpolate(t *testing.T) {
	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1", "b2"}, []string{"et"},
		map[string]map[string][]float64{
			"b1": {"et": []float64{1, nan, 3, nan, nan, nan}},
			"b2": {"et": []float64{nan, nan, nan, nan, 10, nan}},
		},
	)
	_, err := Fill(mb, PolicyETSSMIgnore)
	require.NoError(t, err)

	b1, _ := mb.SeriesByName("b1", "et")
	b2, _ := mb.SeriesByName("b2", "et")

	// union of non missing indices is {0, 2, 4}; 1, 3, 5 are absent from
	// every basin and must never be written
	for _, idx := range []int{1, 3, 5} {
		assert.True(t, math.IsNaN(b1[idx]), "b1 index %d", idx)
		assert.True(t, math.IsNaN(b2[idx]), "b2 index %d", idx)
	}

	// b1 extrapolates its (0, 2) segment out to day offset 4
	assert.InDelta(t, 1.0, b1[0], 1e-12)
	assert.InDelta(t, 3.0, b1[2], 1e-12)
	assert.InDelta(t, 5.0, b1[4], 1e-12)

	// b2 has a single observation inside the union
	assert.InDelta(t, 10.0, b2[0], 1e-12)
	assert.InDelta(t, 10.0, b2[2], 1e-12)
	assert.InDelta(t, 10.0, b2[4], 1e-12)
}

func TestFillUnionInterpolateAllMissing(t *testing.T) {
	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1"}, []string{"et"},
		map[string]map[string][]float64{"b1": {"et": []float64{nan, nan, nan}}},
	)
	_, err := Fill(mb, PolicyETSSMIgnore)
	require.NoError(t, err)
	assert.Equal(t, 3, mb.CountNaN())
}

func TestFillNoOpAndErrors(t *testing.T) {
	res, err := Fill(nil, PolicyInterpolate)
	require.NoError(t, err)
	assert.Nil(t, res)

	nan := math.NaN()
	mb := newSeries(t,
		[]string{"b1"}, []string{"q"},
		map[string]map[string][]float64{"b1": {"q": []float64{1, nan}}},
	)
	res, err = Fill(mb, "")
	require.NoError(t, err)
	require.Same(t, mb, res)
	assert.Equal(t, 1, mb.CountNaN())

	_, err = Fill(mb, Policy("bogus"))
	assert.ErrorIs(t, err, ErrPolicyNotImplemented)
}

func TestFillAttributes(t *testing.T) {
	a, err := series.NewAttributes([]string{"b1", "b2", "b3"}, []string{"area_km2", "slope"})
	require.NoError(t, err)
	require.NoError(t, a.SetRow(0, []float64{100, math.NaN()}))
	require.NoError(t, a.SetRow(1, []float64{math.NaN(), 0.2}))
	require.NoError(t, a.SetRow(2, []float64{300, 0.4}))

	res, err := FillAttributes(a, PolicyMean)
	require.NoError(t, err)
	require.Same(t, a, res)

	row0, _ := a.Row(0)
	row1, _ := a.Row(1)
	assert.InDeltaSlice(t, []float64{100, 0.3}, row0, 1e-12)
	assert.InDeltaSlice(t, []float64{200, 0.2}, row1, 1e-12)

	_, err = FillAttributes(a, PolicyInterpolate)
	assert.ErrorIs(t, err, ErrPolicyNotImplemented)
	_, err = FillAttributes(a, Policy("bogus"))
	assert.ErrorIs(t, err, ErrPolicyNotImplemented)

	var none *series.Attributes
	res, err = FillAttributes(none, PolicyMean)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, Policy("").Validate())
	assert.NoError(t, PolicyInterpolate.Validate())
	assert.NoError(t, PolicyMean.Validate())
	assert.NoError(t, PolicyETSSMIgnore.Validate())
	assert.ErrorIs(t, Policy("drop").Validate(), ErrPolicyNotImplemented)
}
