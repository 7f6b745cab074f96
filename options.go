package hydrosample

import (
	"errors"
	"fmt"

	"github.com/basinlab/go-hydrosample/gapfill"
	"github.com/basinlab/go-hydrosample/hydrodata"
	"github.com/basinlab/go-hydrosample/scaler"
)

// Loader modes selecting which configured time range feeds the build.
const (
	LoaderTrain = "train"
	LoaderValid = "valid"
	LoaderTest  = "test"
)

// Sampling strategies.
const (
	StrategyFullWindow      = "full_window"
	StrategySingleStep      = "single_step"
	StrategyModeSwitching   = "mode_switching"
	StrategyStochasticEpoch = "stochastic_epoch"
)

var (
	ErrUnknownLoaderType    = errors.New("unknown loader type")
	ErrUnknownStrategy      = errors.New("unknown sampling strategy")
	ErrUnsetForecastHistory = errors.New("forecast history must be at least 1")
	ErrUnsetWarmupLength    = errors.New("warmup length is unset or negative")
	ErrUnsetBatchSize       = errors.New("batch size must be at least 1")
	ErrNoBasinsConfigured   = errors.New("no basins configured")
)

// Options configures a dataset build. ForecastHistory, WarmupLength,
// and BatchSize have no workable defaults and must be set explicitly;
// Validate rejects an unset value for any of them.
type Options struct {
	LoaderType string `json:"loader_type"`
	Strategy   string `json:"strategy"`

	// ForecastHistory is the horizon rho: the number of forecast steps
	// per window, anchor included.
	ForecastHistory int `json:"forecast_history"`
	// WarmupLength is the number of lead-in steps preceding the anchor
	// that are fed to the model but not scored.
	WarmupLength int `json:"warmup_length"`
	BatchSize    int `json:"batch_size"`

	TargetCols   []string `json:"target_cols"`
	RelevantCols []string `json:"relevant_cols"`
	ConstantCols []string `json:"constant_cols"`

	// Per-stream gap fill policies. An empty policy disables filling
	// for that stream.
	TargetFillPolicy   gapfill.Policy `json:"target_rm_nan"`
	RelevantFillPolicy gapfill.Policy `json:"relevant_rm_nan"`
	ConstantFillPolicy gapfill.Policy `json:"constant_rm_nan"`

	Basins     []string            `json:"basins"`
	TrainRange hydrodata.TimeRange `json:"train_range"`
	ValidRange hydrodata.TimeRange `json:"valid_range"`
	TestRange  hydrodata.TimeRange `json:"test_range"`

	ScalerMethod string `json:"scaler_method"`
}

// NewDefaultOptions presets the fill policies, strategy, and scaler
// method. The window geometry and batch size stay unset so a build
// fails until the caller chooses them.
func NewDefaultOptions() *Options {
	return &Options{
		LoaderType:         LoaderTrain,
		Strategy:           StrategyFullWindow,
		WarmupLength:       -1,
		TargetFillPolicy:   gapfill.PolicyInterpolate,
		RelevantFillPolicy: gapfill.PolicyInterpolate,
		ConstantFillPolicy: gapfill.PolicyMean,
		ScalerMethod:       scaler.MethodStandard,
	}
}

func (o *Options) Validate() error {
	switch o.LoaderType {
	case LoaderTrain, LoaderValid, LoaderTest:
	default:
		return fmt.Errorf("loader type %q, %w", o.LoaderType, ErrUnknownLoaderType)
	}
	switch o.Strategy {
	case StrategyFullWindow, StrategySingleStep, StrategyModeSwitching, StrategyStochasticEpoch:
	default:
		return fmt.Errorf("strategy %q, %w", o.Strategy, ErrUnknownStrategy)
	}
	if o.ForecastHistory < 1 {
		return ErrUnsetForecastHistory
	}
	if o.WarmupLength < 0 {
		return ErrUnsetWarmupLength
	}
	if o.BatchSize < 1 {
		return ErrUnsetBatchSize
	}
	if len(o.Basins) == 0 {
		return ErrNoBasinsConfigured
	}
	if _, err := o.ModeRange(); err != nil {
		return err
	}
	for _, policy := range []gapfill.Policy{o.TargetFillPolicy, o.RelevantFillPolicy, o.ConstantFillPolicy} {
		if err := policy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ModeRange resolves the time range for the active loader mode.
func (o *Options) ModeRange() (hydrodata.TimeRange, error) {
	var tr hydrodata.TimeRange
	switch o.LoaderType {
	case LoaderTrain:
		tr = o.TrainRange
	case LoaderValid:
		tr = o.ValidRange
	case LoaderTest:
		tr = o.TestRange
	default:
		return tr, fmt.Errorf("loader type %q, %w", o.LoaderType, ErrUnknownLoaderType)
	}
	if err := tr.Validate(); err != nil {
		return tr, fmt.Errorf("%s range, %w", o.LoaderType, err)
	}
	return tr, nil
}
