// Package gapfill fills missing values in multi basin series ahead of sample
// construction. A missing value is NaN. Policies mutate the passed series in
// place and also return it, so callers can treat either as authoritative.
package gapfill

import (
	"errors"
	"fmt"
	"math"

	"github.com/basinlab/go-hydrosample/series"
	"gonum.org/v1/gonum/floats"
)

// Policy names a gap filling rule. The empty policy disables filling for a
// stream.
type Policy string

const (
	// PolicyInterpolate fills each (basin, variable) time series by linear
	// interpolation along time with linear extrapolation at the boundaries.
	PolicyInterpolate Policy = "interpolate"

	// PolicyMean fills each missing slot with the cross basin mean of the
	// same variable at the same time step, ignoring missing values. Slots
	// missing in every basin stay missing.
	PolicyMean Policy = "mean"

	// PolicyETSSMIgnore unions every basin's non missing time indices, then
	// interpolates each (basin, variable) series restricted to that union.
	// Time steps outside the union are never written. Used to align ET and
	// soil moisture proxies with heterogeneous basin coverage.
	PolicyETSSMIgnore Policy = "et_ssm_ignore"
)

var ErrPolicyNotImplemented = errors.New("fill policy not implemented")

// Validate reports whether the policy is recognized. The empty policy is
// valid and means filling is disabled.
func (p Policy) Validate() error {
	switch p {
	case "", PolicyInterpolate, PolicyMean, PolicyETSSMIgnore:
		return nil
	}
	return fmt.Errorf("fill policy %q, %w", string(p), ErrPolicyNotImplemented)
}

// Fill applies the policy to the series in place. A nil series or empty
// policy is a no-op. The returned pointer is the input.
func Fill(mb *series.MultiBasin, policy Policy) (*series.MultiBasin, error) {
	if policy == "" || mb == nil {
		return mb, nil
	}
	switch policy {
	case PolicyInterpolate:
		fillInterpolate(mb)
	case PolicyMean:
		fillMean(mb)
	case PolicyETSSMIgnore:
		fillUnionInterpolate(mb)
	default:
		return nil, fmt.Errorf("fill policy %q, %w", string(policy), ErrPolicyNotImplemented)
	}
	return mb, nil
}

// FillAttributes applies the policy to a static attribute block. Only the
// mean policy is meaningful for time invariant data; time based policies are
// rejected. A nil or zero width block is a no-op.
func FillAttributes(a *series.Attributes, policy Policy) (*series.Attributes, error) {
	if policy == "" || a.Width() == 0 {
		return a, nil
	}
	switch policy {
	case PolicyMean:
		fillAttributeMean(a)
	case PolicyInterpolate, PolicyETSSMIgnore:
		return nil, fmt.Errorf("fill policy %q over static attributes, %w", string(policy), ErrPolicyNotImplemented)
	default:
		return nil, fmt.Errorf("fill policy %q, %w", string(policy), ErrPolicyNotImplemented)
	}
	return a, nil
}

func fillInterpolate(mb *series.MultiBasin) {
	nb, nt, nv := mb.Dims()
	xs := make([]float64, nt)
	if nt > 1 {
		floats.Span(xs, 0, float64(nt-1))
	}

	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			s, err := mb.Series(b, v)
			if err != nil {
				continue
			}
			interpolateAt(xs, s)
		}
	}
}

func fillMean(mb *series.MultiBasin) {
	nb, nt, nv := mb.Dims()

	rows := make([][]float64, nb)
	sums := make([]float64, nt)
	counts := make([]float64, nt)

	for v := 0; v < nv; v++ {
		for i := range sums {
			sums[i] = 0
			counts[i] = 0
		}
		for b := 0; b < nb; b++ {
			s, err := mb.Series(b, v)
			if err != nil {
				continue
			}
			rows[b] = s
			for t, val := range s {
				if math.IsNaN(val) {
					continue
				}
				sums[t] += val
				counts[t]++
			}
		}
		for b := 0; b < nb; b++ {
			for t, val := range rows[b] {
				if math.IsNaN(val) && counts[t] > 0 {
					rows[b][t] = sums[t] / counts[t]
				}
			}
		}
	}
}

func fillUnionInterpolate(mb *series.MultiBasin) {
	nb, nt, nv := mb.Dims()

	// first collect every basin's non missing time indices, then union
	inUnion := make([]bool, nt)
	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			s, err := mb.Series(b, v)
			if err != nil {
				continue
			}
			for t, val := range s {
				if !math.IsNaN(val) {
					inUnion[t] = true
				}
			}
		}
	}

	union := make([]int, 0, nt)
	for t, ok := range inUnion {
		if ok {
			union = append(union, t)
		}
	}
	if len(union) == 0 {
		return
	}

	// interpolation coordinates keep the original day offsets so weights
	// respect holes in the union
	xs := make([]float64, len(union))
	for i, t := range union {
		xs[i] = float64(t)
	}

	sub := make([]float64, len(union))
	for b := 0; b < nb; b++ {
		for v := 0; v < nv; v++ {
			s, err := mb.Series(b, v)
			if err != nil {
				continue
			}
			for i, t := range union {
				sub[i] = s[t]
			}
			interpolateAt(xs, sub)
			for i, t := range union {
				s[t] = sub[i]
			}
		}
	}
}

func fillAttributeMean(a *series.Attributes) {
	nb, na := a.Dims()
	for j := 0; j < na; j++ {
		var sum float64
		var cnt int
		for b := 0; b < nb; b++ {
			row, err := a.Row(b)
			if err != nil {
				continue
			}
			if !math.IsNaN(row[j]) {
				sum += row[j]
				cnt++
			}
		}
		if cnt == 0 {
			continue
		}
		mean := sum / float64(cnt)
		for b := 0; b < nb; b++ {
			row, err := a.Row(b)
			if err != nil {
				continue
			}
			if math.IsNaN(row[j]) {
				row[j] = mean
			}
		}
	}
}

// interpolateAt fills NaN slots of ys by linear interpolation over the
// strictly increasing coordinates xs. Positions outside the observed span
// are extrapolated from the nearest segment. A single observation fills the
// series with that constant and zero observations leave it untouched.
func interpolateAt(xs, ys []float64) {
	anchors := make([]int, 0, len(ys))
	for i, v := range ys {
		if !math.IsNaN(v) {
			anchors = append(anchors, i)
		}
	}
	switch len(anchors) {
	case 0:
		return
	case 1:
		val := ys[anchors[0]]
		for i := range ys {
			ys[i] = val
		}
		return
	}

	k := 0
	for i := range ys {
		if !math.IsNaN(ys[i]) {
			continue
		}
		for k < len(anchors)-2 && anchors[k+1] < i {
			k++
		}
		i0, i1 := anchors[k], anchors[k+1]
		slope := (ys[i1] - ys[i0]) / (xs[i1] - xs[i0])
		ys[i] = ys[i0] + slope*(xs[i]-xs[i0])
	}
}
