package sweep

import (
	"context"
	"math"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangePointCounts(t *testing.T) {
	q := instrument.NewParameter("q")
	testCases := []struct {
		name              string
		start, stop, step float64
		want              int
	}{
		{name: "integer steps", start: -10, stop: 10, step: 1, want: 21},
		{name: "fractional steps", start: 50, stop: 51, step: 0.1, want: 11},
		{name: "wide range", start: 0, stop: 300, step: 10, want: 31},
		{name: "descending", start: 10, stop: 0, step: 1, want: 11},
		{name: "negative step ascending", start: 0, stop: 10, step: -2, want: 6},
		{name: "single point", start: 3, stop: 3, step: 1, want: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Range(q, tc.start, tc.stop, tc.step)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Len())
			assert.Equal(t, tc.start, v.At(0))
			assert.Equal(t, tc.stop, v.At(v.Len()-1))
		})
	}
}

func TestRangeRejectsUnevenStep(t *testing.T) {
	_, err := Range(instrument.NewParameter("q"), 0, 1, 0.3)
	require.ErrorIs(t, err, errdefs.ErrConfiguration)

	_, err = Range(instrument.NewParameter("q"), 0, 1, 0)
	require.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestListRejectsInvalidValues(t *testing.T) {
	q := instrument.NewParameter("q")

	_, err := List(q)
	require.ErrorIs(t, err, errdefs.ErrConfiguration)

	_, err = List(q, 1, math.NaN())
	require.ErrorIs(t, err, errdefs.ErrConfiguration)

	_, err = List(q, math.Inf(1))
	require.ErrorIs(t, err, errdefs.ErrConfiguration)

	_, err = List(nil, 1)
	require.ErrorIs(t, err, errdefs.ErrConfiguration)

	// Non-monotonic sequences are allowed.
	v, err := List(q, 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, v.Values())
}

func TestLinspace(t *testing.T) {
	v, err := Linspace(instrument.NewParameter("q"), 0, 1, 5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, v.Values(), 1e-12)

	_, err = Linspace(instrument.NewParameter("q"), 0, 1, 0)
	require.ErrorIs(t, err, errdefs.ErrConfiguration)
}

func TestValuesAreCopied(t *testing.T) {
	in := []float64{1, 2, 3}
	v, err := List(instrument.NewParameter("q"), in...)
	require.NoError(t, err)

	in[0] = 100
	got := v.Values()
	got[1] = 200
	assert.Equal(t, []float64{1, 2, 3}, v.Values())
}

func TestSetForwardsToQuantity(t *testing.T) {
	q := instrument.NewParameter("q")
	v, err := List(q, 1, 2)
	require.NoError(t, err)

	require.NoError(t, v.Set(context.Background(), 2))
	got, err := q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}
