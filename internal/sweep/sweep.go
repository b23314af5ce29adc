// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package sweep materializes the ordered values a controlled quantity takes
// during one loop level.
package sweep

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
)

// stepTolerance is the relative slack allowed when a step does not divide the
// range exactly, e.g. 0.1 steps over [50, 51].
const stepTolerance = 1e-9

// Values is a controlled quantity paired with the finite, non-empty sequence
// of values it is driven through. Values are fixed at construction.
type Values struct {
	quantity instrument.Settable
	values   []float64
}

// List sweeps q through the given values in order.
func List(q instrument.Settable, values ...float64) (*Values, error) {
	if q == nil {
		return nil, errdefs.Configurationf("sweep quantity must not be nil")
	}
	if err := Validate(values); err != nil {
		return nil, errdefs.WrapConfiguration(err, "sweep over "+q.Identity().FullName())
	}
	return &Values{quantity: q, values: slices.Clone(values)}, nil
}

// Range sweeps q from start to stop inclusive in increments of step.
func Range(q instrument.Settable, start, stop, step float64) (*Values, error) {
	pts, err := Points(start, stop, step)
	if err != nil {
		if q != nil {
			return nil, errdefs.WrapConfiguration(err, "sweep over "+q.Identity().FullName())
		}
		return nil, errdefs.WrapConfiguration(err, "sweep")
	}
	return List(q, pts...)
}

// Linspace sweeps q through n evenly spaced values from start to stop inclusive.
func Linspace(q instrument.Settable, start, stop float64, n int) (*Values, error) {
	pts, err := LinspacePoints(start, stop, n)
	if err != nil {
		return nil, errdefs.WrapConfiguration(err, "linspace")
	}
	return List(q, pts...)
}

// Points returns the inclusive range [start, stop] with the given step. The
// direction follows start and stop; the sign of step is ignored. A step that
// does not evenly divide the range is rejected.
func Points(start, stop, step float64) ([]float64, error) {
	if err := Validate([]float64{start, stop, step}); err != nil {
		return nil, err
	}
	if step == 0 {
		if start == stop {
			return []float64{start}, nil
		}
		return nil, fmt.Errorf("step must not be zero")
	}
	span := (stop - start) / math.Abs(step)
	steps := math.Round(math.Abs(span))
	if math.Abs(math.Abs(span)-steps) > stepTolerance*math.Max(1, steps) {
		return nil, fmt.Errorf("step %v does not divide the range [%v, %v]", step, start, stop)
	}
	return LinspacePoints(start, stop, int(steps)+1)
}

// LinspacePoints returns n evenly spaced values from start to stop inclusive.
func LinspacePoints(start, stop float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of points must be positive, got %d", n)
	}
	if err := Validate([]float64{start, stop}); err != nil {
		return nil, err
	}
	if n == 1 {
		return []float64{start}, nil
	}
	out := make([]float64, n)
	delta := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*delta
	}
	out[n-1] = stop
	return out, nil
}

// Validate rejects empty sequences and non-finite values.
func Validate(values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("sweep values must not be empty")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sweep value %d is not finite: %v", i, v)
		}
	}
	return nil
}

// Quantity returns the controlled quantity.
func (v *Values) Quantity() instrument.Settable { return v.quantity }

// Identity is the identity of the controlled quantity.
func (v *Values) Identity() instrument.Identity { return v.quantity.Identity() }

func (v *Values) Len() int { return len(v.values) }

func (v *Values) At(i int) float64 { return v.values[i] }

// Values returns a copy of the sweep values.
func (v *Values) Values() []float64 { return slices.Clone(v.values) }

// Set drives the quantity to value.
func (v *Values) Set(ctx context.Context, value float64) error {
	return v.quantity.Set(ctx, value)
}

func (v *Values) String() string {
	if len(v.values) == 0 {
		return v.Identity().FullName() + "[]"
	}
	return fmt.Sprintf("%s[%v..%v, n=%d]", v.Identity().FullName(), v.values[0], v.values[len(v.values)-1], len(v.values))
}
