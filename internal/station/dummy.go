package station

import (
	"context"
	"fmt"

	"github.com/specialistvlad/sweepgrid/internal/instrument"
)

// DefaultChannels are the channel aliases of a dummy channel instrument.
var DefaultChannels = []string{"A", "B", "C", "D", "E", "F"}

// NewDummyChannelInstrument builds a simulated instrument with one channel per
// alias, named "Chan<alias>" and grouped in the "channels" list. Every channel
// carries:
//
//   - temperature: a settable scalar in K
//   - dummy_array_parameter: a (5,) array of 2s over setpoints 5..9
//   - dummy_multi_parameter: two (5,) outputs, zeros and ones, over setpoints 5..9
//   - turn_on: a function returning nothing
func NewDummyChannelInstrument(name string, aliases ...string) (*instrument.Instrument, error) {
	if len(aliases) == 0 {
		aliases = DefaultChannels
	}
	in := instrument.New(name)
	channels := make([]*instrument.Channel, 0, len(aliases))
	for _, alias := range aliases {
		ch, err := newDummyChannel("Chan"+alias, alias)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", name, err)
		}
		channels = append(channels, ch)
	}
	if _, err := in.AddChannelList("channels", channels...); err != nil {
		return nil, err
	}
	return in, nil
}

func newDummyChannel(name, alias string) (*instrument.Channel, error) {
	ch := instrument.NewChannel(name, alias)

	setpoints := []float64{5, 6, 7, 8, 9}
	params := []instrument.Bindable{
		instrument.NewParameter("temperature",
			instrument.WithLabel("Temperature "+alias),
			instrument.WithUnit("K"),
			instrument.WithBounds(-1000, 1000),
		),
		instrument.NewArrayParameter("dummy_array_parameter", []int{5},
			[]instrument.SetpointAxis{{Name: "array_setpoint_param_this_setpoint", Label: "this setpoint", Unit: "this setpointunit", Values: setpoints}},
			func(context.Context) ([]float64, error) {
				return []float64{2, 2, 2, 2, 2}, nil
			},
			instrument.WithLabel("Dummy array parameter"),
		),
		instrument.NewMultiParameter("dummy_multi_parameter",
			[]instrument.Member{
				{
					Name: "multi_setpoint_param_this", Label: "this label", Unit: "this unit", Shape: []int{5},
					Setpoints: []instrument.SetpointAxis{{Name: "multi_setpoint_param_this_setpoint", Label: "this setpoint", Unit: "this setpointunit", Values: setpoints}},
				},
				{
					Name: "multi_setpoint_param_that", Label: "that label", Unit: "that unit", Shape: []int{5},
					Setpoints: []instrument.SetpointAxis{{Name: "multi_setpoint_param_this_setpoint", Label: "this setpoint", Unit: "this setpointunit", Values: setpoints}},
				},
			},
			func(context.Context) ([][]float64, error) {
				return [][]float64{{0, 0, 0, 0, 0}, {1, 1, 1, 1, 1}}, nil
			},
		),
	}
	for _, p := range params {
		if err := ch.AddParameter(p); err != nil {
			return nil, err
		}
	}
	ch.AddFunction("turn_on", func(context.Context, ...any) (any, error) {
		return nil, nil
	})
	return ch, nil
}
