package series

import "time"

// Window is one extracted sample: a time major input block covering the
// warmup plus forecast span and a time major target block. Both grids are
// copies and never alias the stored dataset arrays.
type Window struct {
	BasinID string    `json:"basin_id"`
	Anchor  time.Time `json:"anchor"`

	Input  *Grid `json:"-"`
	Target *Grid `json:"-"`
}

// InputDims reports the input block shape, (0, 0) when unset.
func (w *Window) InputDims() (int, int) {
	if w == nil || w.Input == nil {
		return 0, 0
	}
	return w.Input.Dims()
}

// TargetDims reports the target block shape, (0, 0) when unset.
func (w *Window) TargetDims() (int, int) {
	if w == nil || w.Target == nil {
		return 0, 0
	}
	return w.Target.Dims()
}
