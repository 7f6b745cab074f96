package hydrosample

import (
	"fmt"
	"time"

	"github.com/basinlab/go-hydrosample/cache"
	"github.com/basinlab/go-hydrosample/scaler"
	"github.com/basinlab/go-hydrosample/window"
	"github.com/goccy/go-json"
)

// Snapshot captures the constructed dataset so a later process can
// restore it without a source, skipping the fetch, unit conversion,
// normalization, and gap fill work.
func (s *Sampler) Snapshot() (*cache.Snapshot, error) {
	rawOpt, err := json.Marshal(s.opt)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal dataset options, %w", err)
	}
	return &cache.Snapshot{
		Meta: cache.Meta{
			CreatedAt: time.Now().UTC(),
			Options:   rawOpt,
			Stats:     s.hub.Stats(),
		},
		Target:  s.y,
		Forcing: s.x,
		Static:  s.c,
	}, nil
}

// SaveSnapshot persists the dataset to path with the given codec.
func (s *Sampler) SaveSnapshot(path string, c cache.CompressionType) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	return cache.Save(path, snap, c)
}

// Restore rebuilds a Sampler from a decoded snapshot. The embedded
// options are validated the same way New validates them.
func Restore(snap *cache.Snapshot) (*Sampler, error) {
	if snap == nil {
		return nil, ErrNoSource
	}
	opt := NewDefaultOptions()
	if err := json.Unmarshal(snap.Meta.Options, opt); err != nil {
		return nil, fmt.Errorf("unable to unmarshal dataset options, %w", err)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if snap.Target == nil && snap.Forcing == nil {
		return nil, ErrNoDataStreams
	}
	hub, err := scaler.FromStats(snap.Meta.Stats)
	if err != nil {
		return nil, err
	}

	s := &Sampler{
		opt:     opt,
		x:       snap.Forcing,
		y:       snap.Target,
		c:       snap.Static,
		hub:     hub,
		inverse: hub.Target(),
	}

	axes := s.axes()
	s.lookup, err = window.Build(axes.Basins(), axes.Times(), opt.WarmupLength, opt.ForecastHistory)
	if err != nil {
		return nil, err
	}

	if opt.Strategy == StrategyStochasticEpoch && s.isTrain() {
		_, nt, _ := axes.Dims()
		s.virtualLen, err = virtualEpochSize(len(axes.Basins()), nt, opt.ForecastHistory, opt.WarmupLength, opt.BatchSize)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoadSnapshot restores a Sampler from a snapshot file.
func LoadSnapshot(path string) (*Sampler, error) {
	snap, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return Restore(snap)
}
