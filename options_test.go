package hydrosample

import (
	"testing"
	"time"

	"github.com/basinlab/go-hydrosample/gapfill"
	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		mod func(*Options)
		err error
	}{
		"valid": {
			mod: func(o *Options) {},
		},
		"bogus loader type": {
			mod: func(o *Options) { o.LoaderType = "production" },
			err: ErrUnknownLoaderType,
		},
		"bogus strategy": {
			mod: func(o *Options) { o.Strategy = "exhaustive" },
			err: ErrUnknownStrategy,
		},
		"unset forecast history": {
			mod: func(o *Options) { o.ForecastHistory = 0 },
			err: ErrUnsetForecastHistory,
		},
		"negative forecast history": {
			mod: func(o *Options) { o.ForecastHistory = -3 },
			err: ErrUnsetForecastHistory,
		},
		"unset warmup": {
			mod: func(o *Options) { o.WarmupLength = -1 },
			err: ErrUnsetWarmupLength,
		},
		"unset batch size": {
			mod: func(o *Options) { o.BatchSize = 0 },
			err: ErrUnsetBatchSize,
		},
		"no basins": {
			mod: func(o *Options) { o.Basins = nil },
			err: ErrNoBasinsConfigured,
		},
		"unset mode range": {
			mod: func(o *Options) { o.TrainRange = hydrodata.TimeRange{} },
			err: hydrodata.ErrUnsetTime,
		},
		"inverted mode range": {
			mod: func(o *Options) {
				o.TrainRange.Start, o.TrainRange.End = o.TrainRange.End.AddDate(0, 0, 7), o.TrainRange.Start
			},
			err: hydrodata.ErrStartAfterEnd,
		},
		"unknown fill policy": {
			mod: func(o *Options) { o.TargetFillPolicy = "drop" },
			err: gapfill.ErrPolicyNotImplemented,
		},
		"unknown constant fill policy": {
			mod: func(o *Options) { o.ConstantFillPolicy = "zeros" },
			err: gapfill.ErrPolicyNotImplemented,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := testOptions()
			td.mod(opt)
			err := opt.Validate()
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOptionsLoaderOrderBeforeStrategy(t *testing.T) {
	opt := testOptions()
	opt.LoaderType = "production"
	opt.Strategy = "exhaustive"
	assert.ErrorIs(t, opt.Validate(), ErrUnknownLoaderType)
}

func TestOptionsModeRange(t *testing.T) {
	opt := testOptions()

	tr, err := opt.ModeRange()
	require.NoError(t, err)
	assert.Equal(t, opt.TrainRange, tr)

	opt.LoaderType = LoaderValid
	tr, err = opt.ModeRange()
	require.NoError(t, err)
	assert.Equal(t, opt.ValidRange, tr)

	opt.LoaderType = LoaderTest
	tr, err = opt.ModeRange()
	require.NoError(t, err)
	assert.Equal(t, opt.TestRange, tr)

	opt.LoaderType = "deploy"
	_, err = opt.ModeRange()
	assert.ErrorIs(t, err, ErrUnknownLoaderType)
}

func TestNewDefaultOptions(t *testing.T) {
	opt := NewDefaultOptions()
	assert.Equal(t, LoaderTrain, opt.LoaderType)
	assert.Equal(t, StrategyFullWindow, opt.Strategy)
	assert.ErrorIs(t, opt.Validate(), ErrUnsetForecastHistory)

	// the sizing knobs carry no defaults and must be set explicitly
	opt.ForecastHistory = 7
	assert.ErrorIs(t, opt.Validate(), ErrUnsetWarmupLength)
	opt.WarmupLength = 30
	assert.ErrorIs(t, opt.Validate(), ErrUnsetBatchSize)
	opt.BatchSize = 64
	assert.ErrorIs(t, opt.Validate(), ErrNoBasinsConfigured)

	opt.Basins = []string{"b1"}
	opt.TrainRange = hydrodata.TimeRange{
		Start: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2000, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, opt.Validate())
}
