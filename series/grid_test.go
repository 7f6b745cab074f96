package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFromRows(t *testing.T) {
	testData := map[string]struct {
		rows     [][]float64
		expRows  int
		expCols  int
		expData  []float64
		err      error
	}{
		"empty": {
			rows:    nil,
			expRows: 0,
			expCols: 0,
			expData: []float64{},
		},
		"ragged rows": {
			rows: [][]float64{{1, 2}, {3}},
			err:  ErrColMismatch,
		},
		"valid": {
			rows:    [][]float64{{1, 2, 3}, {4, 5, 6}},
			expRows: 2,
			expCols: 3,
			expData: []float64{1, 2, 3, 4, 5, 6},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			g, err := GridFromRows(td.rows)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			m, n := g.Dims()
			assert.Equal(t, td.expRows, m)
			assert.Equal(t, td.expCols, n)
			assert.Equal(t, td.expData, g.Values())
		})
	}
}

func TestGridAccessors(t *testing.T) {
	g, err := GridFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	val, err := g.At(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 6.0, val)

	_, err = g.At(3, 0)
	assert.ErrorIs(t, err, ErrRowOutOfBounds)
	_, err = g.At(0, 2)
	assert.ErrorIs(t, err, ErrColOutOfBounds)

	row, err := g.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, row)

	col, err := g.Col(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5}, col)

	require.NoError(t, g.Set(0, 0, 9))
	val, err = g.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, val)
}

func TestGridSetColRow(t *testing.T) {
	g, err := NewGrid(2, 3)
	require.NoError(t, err)

	require.NoError(t, g.SetRow(0, []float64{1, 2, 3}))
	require.NoError(t, g.SetCol(2, []float64{7, 8}))

	assert.Equal(t, []float64{1, 2, 7, 0, 0, 8}, g.Values())

	err = g.SetRow(0, []float64{1})
	assert.ErrorIs(t, err, ErrColMismatch)
	err = g.SetCol(0, []float64{1})
	assert.ErrorIs(t, err, ErrRowMismatch)
	err = g.SetRow(5, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrRowOutOfBounds)
}

func TestGridLastRow(t *testing.T) {
	g, err := GridFromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	last, err := g.LastRow()
	require.NoError(t, err)

	m, n := last.Dims()
	assert.Equal(t, 1, m)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{3, 4}, last.Values())

	// copies, not views
	require.NoError(t, g.Set(1, 0, 99))
	assert.Equal(t, []float64{3, 4}, last.Values())

	empty, err := NewGrid(0, 2)
	require.NoError(t, err)
	_, err = empty.LastRow()
	assert.ErrorIs(t, err, ErrRowOutOfBounds)
}

func TestNewGridNegativeDims(t *testing.T) {
	_, err := NewGrid(-1, 2)
	assert.ErrorIs(t, err, ErrNegativeDim)
	_, err = NewGrid(2, -1)
	assert.ErrorIs(t, err, ErrNegativeDim)
}
