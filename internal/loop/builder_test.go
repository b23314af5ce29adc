package loop

import (
	"context"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRejectsMalformedPlans(t *testing.T) {
	in := dci(t)
	temp := resolve[instrument.Identified](t, in, "A.temperature")
	sv := mustRange(t, instrument.NewParameter("p1"), 0, 2, 1)
	var nilParam *instrument.Parameter

	testCases := []struct {
		name    string
		build   func() (*Plan, error)
		wantErr error
	}{
		{
			name:    "nil sweep",
			build:   func() (*Plan, error) { return New(nil, 0).Each(temp) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "negative delay",
			build:   func() (*Plan, error) { return New(sv, -1).Each(temp) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "negative inner delay",
			build:   func() (*Plan, error) { return New(sv, 0).Loop(sv, -1).Each(temp) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "no actions",
			build:   func() (*Plan, error) { return New(sv, 0).Each() },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "unrecognized action",
			build:   func() (*Plan, error) { return New(sv, 0).Each("temperature") },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "nil measurable",
			build:   func() (*Plan, error) { return New(sv, 0).Each(nilParam) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "negative wait",
			build:   func() (*Plan, error) { return New(sv, 0).Each(Wait{Delay: -1}) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "task without function",
			build:   func() (*Plan, error) { return New(sv, 0).Each(Task{Name: "noop"}) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name:    "inactive sub-loop without default measurement",
			build:   func() (*Plan, error) { return New(sv, 0).Each(New(sv, 0)) },
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name: "sliced multi-output collection",
			build: func() (*Plan, error) {
				return New(sv, 0).Each(resolve[instrument.ParameterSlice](t, in, "channels[0:2].dummy_multi_parameter"))
			},
			wantErr: errdefs.ErrUnsupported,
		},
		{
			name: "setpoint axis longer than shape",
			build: func() (*Plan, error) {
				bad := instrument.NewArrayParameter("bad", []int{2}, []instrument.SetpointAxis{{Values: []float64{1, 2, 3}}},
					func(context.Context) ([]float64, error) { return []float64{0, 0}, nil })
				return New(sv, 0).Each(bad)
			},
			wantErr: errdefs.ErrConfiguration,
		},
		{
			name: "zero sized shape",
			build: func() (*Plan, error) {
				bad := instrument.NewArrayParameter("bad", []int{0}, nil,
					func(context.Context) ([]float64, error) { return nil, nil })
				return New(sv, 0).Each(bad)
			},
			wantErr: errdefs.ErrConfiguration,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := tc.build()
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, p)
		})
	}
}

func TestSlicedMultiOutputFailsBeforeAnySet(t *testing.T) {
	in := dci(t)
	q := resolve[*instrument.Parameter](t, in, "A.temperature")
	multis := resolve[instrument.ParameterSlice](t, in, "channels[0:2].dummy_multi_parameter")

	_, err := New(mustRange(t, q, 5, 7, 1), 0).Each(multis)
	require.ErrorIs(t, err, errdefs.ErrUnsupported)
	assert.Contains(t, err.Error(), "cannot expand a sliced collection of multi-output measurables")

	v, err := q.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "no sweep value may have been applied")
}

func TestLoopDoesNotModifyReceiver(t *testing.T) {
	p1 := instrument.NewParameter("p1")
	p2 := instrument.NewParameter("p2")
	temp := resolve[instrument.Identified](t, dci(t), "A.temperature")

	outer := New(mustRange(t, p1, 0, 2, 1), 0)
	nested := outer.Loop(mustRange(t, p2, 0, 3, 1), 0)

	flat, err := outer.Each(temp)
	require.NoError(t, err)
	assert.Equal(t, 1, flat.Depth())

	deep, err := nested.Each(temp)
	require.NoError(t, err)
	assert.Equal(t, 2, deep.Depth())

	// A third level lands below the second, not beside it.
	deeper, err := nested.Loop(mustRange(t, p1, 0, 1, 1), 0).Each(temp)
	require.NoError(t, err)
	assert.Equal(t, 3, deeper.Depth())
	assert.Nil(t, deeper.Child().Child().Child())
	assert.Len(t, deeper.Child().Child().Actions(), 1)
}

func TestActionResolutionOrder(t *testing.T) {
	in := dci(t)
	sv := mustRange(t, instrument.NewParameter("p1"), 0, 1, 1)

	p, err := New(sv, 0).Each(
		resolve[instrument.Identified](t, in, "A.dummy_multi_parameter"),
		resolve[instrument.Identified](t, in, "A.dummy_array_parameter"),
		resolve[instrument.Identified](t, in, "A.temperature"),
		Wait{Delay: 0},
		Task{Name: "noop", Fn: func(context.Context) error { return nil }},
		resolve[instrument.Callable](t, in, "channels.turn_on"),
	)
	require.NoError(t, err)

	var kinds []Kind
	for _, a := range p.Actions() {
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, []Kind{KindMulti, KindArray, KindScalar, KindWait, KindTask, KindTask}, kinds)
	assert.Equal(t, "turn_on", p.Actions()[5].Target())
}

func TestSubPlansBecomeChildThenNestedLoops(t *testing.T) {
	p1 := instrument.NewParameter("p1")
	q2 := instrument.NewParameter("q2")
	temp := resolve[instrument.Identified](t, dci(t), "A.temperature")

	sub, err := New(mustRange(t, q2, 0, 3, 1), 0).Each(temp)
	require.NoError(t, err)

	p, err := New(mustRange(t, p1, 0, 1, 1), 0).Each(temp, sub, sub)
	require.NoError(t, err)
	assert.Same(t, sub, p.Child())
	acts := p.Actions()
	require.Len(t, acts, 2)
	assert.Equal(t, KindScalar, acts[0].Kind())
	assert.Equal(t, KindNestedLoop, acts[1].Kind())
	assert.Same(t, sub, acts[1].Loop())
	assert.Equal(t, []string{"dci_ChanA_temperature", "p1", "q2"}, p.Targets())
}

func TestDefaultMeasurementActivatesBareLoops(t *testing.T) {
	temp := resolve[instrument.Identified](t, dci(t), "A.temperature")
	p1 := instrument.NewParameter("p1")
	q2 := instrument.NewParameter("q2")

	b := New(mustRange(t, p1, 0, 1, 1), 0, WithDefaultMeasurement(temp))
	p, err := b.Default()
	require.NoError(t, err)
	require.Len(t, p.Actions(), 1)

	// A bare sub-loop inherits the parent's default measurement.
	p, err = b.Each(New(mustRange(t, q2, 0, 2, 1), 0))
	require.NoError(t, err)
	require.NotNil(t, p.Child())
	assert.Len(t, p.Child().Actions(), 1)

	_, err = New(mustRange(t, p1, 0, 1, 1), 0).Default()
	require.ErrorIs(t, err, errdefs.ErrConfiguration)
}
