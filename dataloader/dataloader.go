// Package dataloader iterates a sample producer in minibatches. It stacks
// extracted windows into flat contiguous buffers, shuffles ids with a seeded
// generator between epochs, and can draw ids with replacement for producers
// whose epoch length is a virtual coverage target rather than a table size.
package dataloader

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/basinlab/go-hydrosample/series"
)

var (
	ErrNoDataset      = errors.New("no dataset provided")
	ErrUnsetBatchSize = errors.New("batch size must be at least 1")
	ErrRaggedBatch    = errors.New("sample windows in one batch must share dimensions")
	ErrBatchLayout    = errors.New("batch buffer does not match its dims")
)

// Dataset is the minimal producer surface the loader iterates. A Sampler
// satisfies it directly.
type Dataset interface {
	Len() int
	Sample(id int) (*series.Window, error)
}

// Options configure one Loader.
type Options struct {
	// BatchSize is the number of windows stacked per Next call. The final
	// batch of an epoch may be smaller.
	BatchSize int

	// Shuffle permutes the id order once per epoch. Ignored when drawing
	// with replacement.
	Shuffle bool

	// Seed fixes the generator for reproducible epochs. Zero seeds from
	// the wall clock.
	Seed int64

	// WithReplacement draws every id uniformly at random instead of
	// walking a permutation. The epoch still spans Len samples.
	WithReplacement bool

	// DrawDomain bounds with-replacement draws to [0, DrawDomain). Zero
	// falls back to the dataset length. Set it to the producer's table
	// size when its Len reports a virtual epoch.
	DrawDomain int
}

// NewDefaultOptions generates a default set of loader options.
func NewDefaultOptions() *Options {
	return &Options{
		BatchSize: 32,
		Shuffle:   true,
	}
}

// Validate checks that all options are valid.
func (o *Options) Validate() error {
	if o.BatchSize < 1 {
		return ErrUnsetBatchSize
	}
	return nil
}

// Batch is one stacked minibatch in flat contiguous buffers. Inputs holds
// Size blocks of InputRows x InputCols values, time major within each block,
// Targets the same for TargetRows x TargetCols. BasinIDs and Anchors record
// where each block was cut.
type Batch struct {
	Inputs  []float64
	Targets []float64

	BasinIDs []string
	Anchors  []time.Time

	Size       int
	InputRows  int
	InputCols  int
	TargetRows int
	TargetCols int
}

// Loader walks a Dataset one minibatch at a time. Next returns io.EOF once
// the epoch is exhausted and Reset rewinds for the next one.
type Loader struct {
	ds  Dataset
	opt *Options
	rng *rand.Rand

	order []int
	pos   int
	epoch int
}

// New creates a Loader over ds. A nil opt uses NewDefaultOptions.
func New(ds Dataset, opt *Options) (*Loader, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l := &Loader{
		ds:  ds,
		opt: opt,
		rng: rand.New(rand.NewSource(seed)),
	}
	l.reorder()
	return l, nil
}

// Len returns the number of samples one epoch spans.
func (l *Loader) Len() int {
	return l.ds.Len()
}

// Batches returns the number of Next calls one epoch takes.
func (l *Loader) Batches() int {
	return (l.ds.Len() + l.opt.BatchSize - 1) / l.opt.BatchSize
}

// Epoch returns how many times the loader has been reset.
func (l *Loader) Epoch() int {
	return l.epoch
}

// Next stacks the next minibatch. It returns io.EOF once the current epoch
// has yielded Len samples.
func (l *Loader) Next() (*Batch, error) {
	n := l.ds.Len()
	if l.pos >= n {
		return nil, io.EOF
	}

	size := l.opt.BatchSize
	if rem := n - l.pos; size > rem {
		size = rem
	}
	ids := make([]int, size)
	if l.opt.WithReplacement {
		domain := l.opt.DrawDomain
		if domain <= 0 {
			domain = n
		}
		for i := range ids {
			ids[i] = l.rng.Intn(domain)
		}
	} else {
		copy(ids, l.order[l.pos:l.pos+size])
	}

	b, err := l.stack(ids)
	if err != nil {
		return nil, err
	}
	l.pos += size
	return b, nil
}

// Reset rewinds the loader and reshuffles the id order when configured.
func (l *Loader) Reset() {
	l.pos = 0
	l.epoch++
	l.reorder()
}

func (l *Loader) reorder() {
	if l.opt.WithReplacement {
		return
	}
	if l.order == nil {
		l.order = make([]int, l.ds.Len())
		for i := range l.order {
			l.order[i] = i
		}
	}
	if l.opt.Shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// stack draws every id and packs the windows into flat buffers. All windows
// in one batch must share input and target dimensions.
func (l *Loader) stack(ids []int) (*Batch, error) {
	b := &Batch{
		Size:     len(ids),
		BasinIDs: make([]string, 0, len(ids)),
		Anchors:  make([]time.Time, 0, len(ids)),
	}
	for i, id := range ids {
		w, err := l.ds.Sample(id)
		if err != nil {
			return nil, fmt.Errorf("unable to draw sample %d, %w", id, err)
		}
		ir, ic := w.InputDims()
		tr, tc := w.TargetDims()
		if i == 0 {
			b.InputRows, b.InputCols = ir, ic
			b.TargetRows, b.TargetCols = tr, tc
			b.Inputs = make([]float64, 0, len(ids)*ir*ic)
			b.Targets = make([]float64, 0, len(ids)*tr*tc)
		} else if ir != b.InputRows || ic != b.InputCols || tr != b.TargetRows || tc != b.TargetCols {
			return nil, fmt.Errorf("sample %d window is %dx%d/%dx%d, batch opened at %dx%d/%dx%d, %w",
				id, ir, ic, tr, tc, b.InputRows, b.InputCols, b.TargetRows, b.TargetCols, ErrRaggedBatch)
		}
		if w.Input != nil {
			b.Inputs = append(b.Inputs, w.Input.Values()...)
		}
		if w.Target != nil {
			b.Targets = append(b.Targets, w.Target.Values()...)
		}
		b.BasinIDs = append(b.BasinIDs, w.BasinID)
		b.Anchors = append(b.Anchors, w.Anchor)
	}
	return b, nil
}
