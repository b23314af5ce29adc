package config

import (
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelValidate(t *testing.T) {
	valid := func() *Model {
		return &Model{Loop: &LoopDef{
			Quantity: "dci.A.temperature",
			Values:   []float64{1, 2},
			Nested:   []*LoopDef{{Quantity: "dci.B.temperature", Values: []float64{0}}},
			Each:     []*ActionDef{{Kind: ActionMeasure, Ref: "dci.C.temperature"}, {Kind: ActionWait, Delay: time.Millisecond}},
		}}
	}

	tests := []struct {
		name    string
		mutate  func(m *Model)
		wantErr string
	}{
		{name: "valid", mutate: func(*Model) {}},
		{name: "no loop", mutate: func(m *Model) { m.Loop = nil }, wantErr: "no loop"},
		{name: "empty values", mutate: func(m *Model) { m.Loop.Values = nil }, wantErr: "values must not be empty"},
		{name: "negative delay", mutate: func(m *Model) { m.Loop.Delay = -time.Second }, wantErr: "non-negative"},
		{name: "nested empty quantity", mutate: func(m *Model) { m.Loop.Nested[0].Quantity = " " }, wantErr: "quantity reference is empty"},
		{name: "measure without ref", mutate: func(m *Model) { m.Loop.Each[0].Ref = "" }, wantErr: "needs a reference"},
		{name: "unknown kind", mutate: func(m *Model) { m.Loop.Each[1].Kind = "jump" }, wantErr: "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errdefs.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoopDepth(t *testing.T) {
	l := &LoopDef{Nested: []*LoopDef{{}, {Nested: []*LoopDef{{}}}}}
	assert.Equal(t, 3, l.Depth())
	assert.Equal(t, `measure("x.y")`, (&ActionDef{Kind: ActionMeasure, Ref: "x.y"}).String())
}
