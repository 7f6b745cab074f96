package cache

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/basinlab/go-hydrosample/scaler"
	"github.com/basinlab/go-hydrosample/series"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	tr, err := hydrodata.DateRange("2001-03-01", "2001-03-05")
	require.NoError(t, err)
	basins := []string{"b1", "b2"}

	target, err := series.NewMultiBasin(basins, tr.Axis(), []string{"streamflow"})
	require.NoError(t, err)
	forcing, err := series.NewMultiBasin(basins, tr.Axis(), []string{"prcp", "pet"})
	require.NoError(t, err)
	for b := 0; b < 2; b++ {
		flow, err := target.Series(b, 0)
		require.NoError(t, err)
		for i := range flow {
			flow[i] = float64(b*10 + i)
		}
		for v := 0; v < 2; v++ {
			f, err := forcing.Series(b, v)
			require.NoError(t, err)
			for i := range f {
				f[i] = float64(100*b + 10*v + i)
			}
		}
	}
	require.NoError(t, target.SetUnit("streamflow", hydrodata.UnitMillimetersPerDay))
	require.NoError(t, forcing.SetUnit("prcp", hydrodata.UnitMillimetersPerDay))

	static, err := series.NewAttributes(basins, []string{"area_km2", "elev_m"})
	require.NoError(t, err)
	require.NoError(t, static.SetRow(0, []float64{100, 500}))
	require.NoError(t, static.SetRow(1, []float64{250, 1200}))

	return &Snapshot{
		Meta: Meta{
			Options: json.RawMessage(`{"loader_type":"train"}`),
			Stats: &scaler.Stats{
				Method: scaler.MethodStandard,
				Target: []scaler.VarStats{
					{Name: "streamflow", Mean: 5.5, Std: 2.1, Min: 0, Max: 14, Count: 10},
				},
			},
		},
		Target:  target,
		Forcing: forcing,
		Static:  static,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, ct := range []CompressionType{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			snap := testSnapshot(t)
			raw, err := Encode(snap, ct)
			require.NoError(t, err)

			got, err := Decode(raw)
			require.NoError(t, err)

			require.NotNil(t, got.Target)
			assert.Equal(t, snap.Target.Basins(), got.Target.Basins())
			assert.Equal(t, snap.Target.Variables(), got.Target.Variables())
			assert.Equal(t, snap.Target.Times(), got.Target.Times())
			assert.Equal(t, hydrodata.UnitMillimetersPerDay, got.Target.Unit("streamflow"))

			for b := 0; b < 2; b++ {
				want, err := snap.Target.Series(b, 0)
				require.NoError(t, err)
				vals, err := got.Target.Series(b, 0)
				require.NoError(t, err)
				assert.Equal(t, want, vals)
			}

			require.NotNil(t, got.Forcing)
			pet, err := got.Forcing.SeriesByName("b2", "pet")
			require.NoError(t, err)
			assert.Equal(t, []float64{110, 111, 112, 113, 114}, pet)
			assert.Equal(t, "", got.Forcing.Unit("pet"))

			require.NotNil(t, got.Static)
			row, err := got.Static.Row(1)
			require.NoError(t, err)
			assert.Equal(t, []float64{250, 1200}, row)

			require.NotNil(t, got.Meta.Stats)
			assert.Equal(t, snap.Meta.Stats.Target, got.Meta.Stats.Target)
		})
	}
}

func TestSnapshotKeepsNaN(t *testing.T) {
	snap := testSnapshot(t)
	prcp, err := snap.Forcing.SeriesByName("b1", "prcp")
	require.NoError(t, err)
	prcp[2] = math.NaN()

	raw, err := Encode(snap, CompressionS2)
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)

	out, err := got.Forcing.SeriesByName("b1", "prcp")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[2]))
	assert.Equal(t, 3.0, out[3])
}

func TestSnapshotAbsentStreams(t *testing.T) {
	base := testSnapshot(t)
	snap := &Snapshot{Meta: base.Meta, Target: base.Target}

	raw, err := Encode(snap, CompressionNone)
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)

	require.NotNil(t, got.Target)
	assert.Nil(t, got.Forcing)
	assert.Nil(t, got.Static)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	snap := testSnapshot(t)
	raw, err := Encode(snap, CompressionZstd)
	require.NoError(t, err)

	testData := map[string]struct {
		mutate func([]byte) []byte
		err    error
	}{
		"flipped payload byte": {
			mutate: func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b },
			err:    ErrChecksum,
		},
		"flipped metadata byte": {
			mutate: func(b []byte) []byte { b[headerSize] ^= 0x01; return b },
			err:    ErrChecksum,
		},
		"bad magic": {
			mutate: func(b []byte) []byte { b[0] = 'X'; return b },
			err:    ErrBadMagic,
		},
		"future version": {
			mutate: func(b []byte) []byte { b[4] = 9; return b },
			err:    ErrBadVersion,
		},
		"unknown codec": {
			mutate: func(b []byte) []byte { b[5] = 0x7e; return b },
			err:    ErrUnknownCompression,
		},
		"truncated body": {
			mutate: func(b []byte) []byte { return b[:len(b)-3] },
			err:    ErrTruncated,
		},
		"short header": {
			mutate: func(b []byte) []byte { return b[:10] },
			err:    ErrTruncated,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			buf := append([]byte(nil), raw...)
			_, err := Decode(td.mutate(buf))
			require.ErrorIs(t, err, td.err)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	snap := testSnapshot(t)
	path := filepath.Join(t.TempDir(), "dataset.snap")
	require.NoError(t, Save(path, snap, CompressionLZ4))

	got, err := Load(path)
	require.NoError(t, err)

	vals, err := got.Forcing.SeriesByName("b2", "prcp")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101, 102, 103, 104}, vals)
	assert.False(t, got.Meta.CreatedAt.IsZero())
	assert.JSONEq(t, `{"loader_type":"train"}`, string(got.Meta.Options))

	_, err = Load(filepath.Join(t.TempDir(), "missing.snap"))
	assert.Error(t, err)
}
