package app

import (
	"fmt"

	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/specialistvlad/sweepgrid/internal/loop"
	"github.com/specialistvlad/sweepgrid/internal/station"
	"github.com/specialistvlad/sweepgrid/internal/sweep"
)

// BuildPlan binds a loop definition to the instruments of st. Nested loops
// become sub-plans in declaration order, followed by the loop's actions. A
// loop with neither falls back to the station's default measurement.
func BuildPlan(st *station.Station, def *config.LoopDef) (*loop.Plan, error) {
	var opts []loop.Option
	if refs := st.DefaultMeasurement(); len(refs) > 0 {
		defaults := make([]any, 0, len(refs))
		for _, ref := range refs {
			v, err := st.Resolve(ref)
			if err != nil {
				return nil, errdefs.WrapConfiguration(err, "default measurement")
			}
			defaults = append(defaults, v)
		}
		opts = append(opts, loop.WithDefaultMeasurement(defaults...))
	}
	return bindLoop(st, def, opts)
}

func bindLoop(st *station.Station, def *config.LoopDef, opts []loop.Option) (*loop.Plan, error) {
	q, err := st.Settable(def.Quantity)
	if err != nil {
		return nil, errdefs.WrapConfiguration(err, fmt.Sprintf("loop %q", def.Quantity))
	}
	sv, err := sweep.List(q, def.Values...)
	if err != nil {
		return nil, err
	}
	b := loop.New(sv, def.Delay, opts...)

	var args []any
	for _, nested := range def.Nested {
		p, err := bindLoop(st, nested, opts)
		if err != nil {
			return nil, err
		}
		args = append(args, p)
	}
	for _, a := range def.Each {
		act, err := bindAction(st, a)
		if err != nil {
			return nil, errdefs.WrapConfiguration(err, fmt.Sprintf("loop %q: %s", def.Quantity, a))
		}
		args = append(args, act)
	}
	if len(args) == 0 {
		return b.Default()
	}
	return b.Each(args...)
}

func bindAction(st *station.Station, a *config.ActionDef) (any, error) {
	switch a.Kind {
	case config.ActionWait:
		return loop.Wait{Delay: a.Delay}, nil
	case config.ActionCall:
		v, err := st.Resolve(a.Ref)
		if err != nil {
			return nil, err
		}
		fn, ok := v.(instrument.Callable)
		if !ok {
			return nil, fmt.Errorf("%q is not a function", a.Ref)
		}
		return fn, nil
	case config.ActionMeasure:
		return st.Resolve(a.Ref)
	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}
