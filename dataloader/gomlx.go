package dataloader

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ToGomlxTensors converts the flat batch into gomlx tensors shaped
// [size, rows, cols]. The nested slices are row views into the flat buffers,
// nothing is copied before the tensor conversion. A block with any zero
// dimension converts to an empty tensor.
func (b *Batch) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	inT, err := blockTensor(b.Inputs, b.Size, b.InputRows, b.InputCols)
	if err != nil {
		return nil, nil, fmt.Errorf("input block, %w", err)
	}
	labT, err := blockTensor(b.Targets, b.Size, b.TargetRows, b.TargetCols)
	if err != nil {
		return nil, nil, fmt.Errorf("target block, %w", err)
	}
	return inT, labT, nil
}

func blockTensor(flat []float64, size, rows, cols int) (*tensors.Tensor, error) {
	if size == 0 || rows == 0 || cols == 0 {
		return tensors.FromAnyValue(make([][][]float64, 0)), nil
	}
	views, err := nestedViews(flat, size, rows, cols)
	if err != nil {
		return nil, err
	}
	return tensors.FromAnyValue(views), nil
}

func nestedViews(flat []float64, size, rows, cols int) ([][][]float64, error) {
	if len(flat) != size*rows*cols {
		return nil, fmt.Errorf("buffer holds %d values, dims say %d, %w",
			len(flat), size*rows*cols, ErrBatchLayout)
	}
	out := make([][][]float64, size)
	for i := range out {
		sample := make([][]float64, rows)
		base := i * rows * cols
		for r := range sample {
			start := base + r*cols
			sample[r] = flat[start : start+cols : start+cols]
		}
		out[i] = sample
	}
	return out, nil
}

// GomlxDataset adapts a Loader to the gomlx train.Dataset contract so a
// sampler can feed a gomlx training loop directly.
type GomlxDataset struct {
	name   string
	loader *Loader
}

// NewGomlxDataset wraps l under the given name. An empty name falls back to
// "hydrosample".
func NewGomlxDataset(name string, l *Loader) (*GomlxDataset, error) {
	if l == nil {
		return nil, ErrNoDataset
	}
	if name == "" {
		name = "hydrosample"
	}
	return &GomlxDataset{name: name, loader: l}, nil
}

// Name returns the name of the dataset.
func (d *GomlxDataset) Name() string {
	return d.name
}

// Yield returns the next minibatch as one input tensor and one label tensor.
// It surfaces io.EOF once the epoch is exhausted.
func (d *GomlxDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	b, err := d.loader.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	inT, labT, err := b.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{inT}, []*tensors.Tensor{labT}, nil
}

// Reset rewinds the underlying loader for a new epoch.
func (d *GomlxDataset) Reset() {
	d.loader.Reset()
}
