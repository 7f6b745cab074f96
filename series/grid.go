package series

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeDim       = errors.New("negative dimensions not allowed")
	ErrRowMismatch       = errors.New("row size mismatch")
	ErrColMismatch       = errors.New("column size mismatch")
	ErrUninitializedGrid = errors.New("uninitialized grid")
	ErrRowOutOfBounds    = errors.New("row is out of bounds")
	ErrColOutOfBounds    = errors.New("column is out of bounds")
)

// Grid contains a dense 2D block of float64 values stored in row major order.
// Extracted sample windows use it with time as the row axis, e.g. a window of
// 7 time steps over 3 variables is a 7x3 grid.
type Grid struct {
	data []float64
	rows int
	cols int
}

func NewGrid(rows, cols int) (*Grid, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrNegativeDim
	}
	return &Grid{
		data: make([]float64, rows*cols),
		rows: rows,
		cols: cols,
	}, nil
}

// GridFromRows copies a slice of equal length rows into a new grid.
func GridFromRows(rows [][]float64) (*Grid, error) {
	m := len(rows)
	n := -1
	for i, row := range rows {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if n < 0 {
		n = 0
	}

	g := &Grid{
		data: make([]float64, 0, m*n),
		rows: m,
		cols: n,
	}
	for _, row := range rows {
		g.data = append(g.data, row...)
	}
	return g, nil
}

func (g *Grid) Dims() (int, int) {
	return g.rows, g.cols
}

func (g *Grid) Size() int {
	return len(g.data)
}

// At retrieves a single value in the grid at a specific row and column
func (g *Grid) At(r, c int) (float64, error) {
	if r < 0 || r >= g.rows {
		return 0.0, ErrRowOutOfBounds
	}
	if c < 0 || c >= g.cols {
		return 0.0, ErrColOutOfBounds
	}
	return g.data[r*g.cols+c], nil
}

func (g *Grid) Set(r, c int, val float64) error {
	if r < 0 || r >= g.rows {
		return ErrRowOutOfBounds
	}
	if c < 0 || c >= g.cols {
		return ErrColOutOfBounds
	}
	g.data[r*g.cols+c] = val
	return nil
}

// Row returns a slice view of the specified row
func (g *Grid) Row(r int) ([]float64, error) {
	if r < 0 || r >= g.rows {
		return nil, ErrRowOutOfBounds
	}
	return g.data[r*g.cols : (r+1)*g.cols], nil
}

// SetRow copies src into the specified row. The source must match the column count.
func (g *Grid) SetRow(r int, src []float64) error {
	if r < 0 || r >= g.rows {
		return ErrRowOutOfBounds
	}
	if len(src) != g.cols {
		return fmt.Errorf("row of length %d into %d columns, %w", len(src), g.cols, ErrColMismatch)
	}
	copy(g.data[r*g.cols:(r+1)*g.cols], src)
	return nil
}

// Col returns a copy of the specified column
func (g *Grid) Col(c int) ([]float64, error) {
	if c < 0 || c >= g.cols {
		return nil, ErrColOutOfBounds
	}
	res := make([]float64, 0, g.rows)
	for r := 0; r < g.rows; r++ {
		res = append(res, g.data[r*g.cols+c])
	}
	return res, nil
}

// SetCol copies src into the specified column. The source must match the row count.
func (g *Grid) SetCol(c int, src []float64) error {
	if c < 0 || c >= g.cols {
		return ErrColOutOfBounds
	}
	if len(src) != g.rows {
		return fmt.Errorf("column of length %d into %d rows, %w", len(src), g.rows, ErrRowMismatch)
	}
	for r := 0; r < g.rows; r++ {
		g.data[r*g.cols+c] = src[r]
	}
	return nil
}

// Values returns the backing row major slice. Mutating it mutates the grid.
func (g *Grid) Values() []float64 {
	return g.data
}

func (g *Grid) ToRows() [][]float64 {
	res := make([][]float64, g.rows)
	for r := 0; r < g.rows; r++ {
		res[r] = make([]float64, g.cols)
		copy(res[r], g.data[r*g.cols:(r+1)*g.cols])
	}
	return res
}

// LastRow returns a new single row grid holding a copy of the final row.
func (g *Grid) LastRow() (*Grid, error) {
	if g.rows < 1 {
		return nil, ErrRowOutOfBounds
	}
	row, err := g.Row(g.rows - 1)
	if err != nil {
		return nil, err
	}
	res, err := NewGrid(1, g.cols)
	if err != nil {
		return nil, err
	}
	copy(res.data, row)
	return res, nil
}
