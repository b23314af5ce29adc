package hclplan

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/sweep"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// actionType is the object returned by measure(), call() and wait().
var actionType = cty.Object(map[string]cty.Type{
	"kind":  cty.String,
	"ref":   cty.String,
	"delay": cty.Number,
})

type actionValue struct {
	Kind  string  `cty:"kind"`
	Ref   string  `cty:"ref"`
	Delay float64 `cty:"delay"`
}

// evalContext returns the functions available to plan expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"range":    rangeFunc,
			"linspace": linspaceFunc,
			"measure":  refActionFunc(config.ActionMeasure),
			"call":     refActionFunc(config.ActionCall),
			"wait":     waitFunc,
			"concat":   stdlib.ConcatFunc,
			"reverse":  stdlib.ReverseListFunc,
			"min":      stdlib.MinFunc,
			"max":      stdlib.MaxFunc,
			"abs":      stdlib.AbsoluteFunc,
		},
	}
}

var rangeFunc = function.New(&function.Spec{
	Description: "Returns the inclusive range [start, stop] with the given step.",
	Params: []function.Parameter{
		{Name: "start", Type: cty.Number},
		{Name: "stop", Type: cty.Number},
		{Name: "step", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var start, stop, step float64
		if err := decodeNumbers(args, &start, &stop, &step); err != nil {
			return cty.NilVal, err
		}
		pts, err := sweep.Points(start, stop, step)
		if err != nil {
			return cty.NilVal, err
		}
		return numberList(pts), nil
	},
})

var linspaceFunc = function.New(&function.Spec{
	Description: "Returns n evenly spaced values from start to stop inclusive.",
	Params: []function.Parameter{
		{Name: "start", Type: cty.Number},
		{Name: "stop", Type: cty.Number},
		{Name: "n", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var start, stop float64
		if err := decodeNumbers(args[:2], &start, &stop); err != nil {
			return cty.NilVal, err
		}
		var n int
		if err := gocty.FromCtyValue(args[2], &n); err != nil {
			return cty.NilVal, function.NewArgErrorf(2, "n must be a whole number: %s", err)
		}
		pts, err := sweep.LinspacePoints(start, stop, n)
		if err != nil {
			return cty.NilVal, err
		}
		return numberList(pts), nil
	},
})

func refActionFunc(kind config.ActionKind) function.Function {
	return function.New(&function.Spec{
		Description: fmt.Sprintf("Declares a %s action on a station reference.", kind),
		Params:      []function.Parameter{{Name: "ref", Type: cty.String}},
		Type:        function.StaticReturnType(actionType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.ObjectVal(map[string]cty.Value{
				"kind":  cty.StringVal(string(kind)),
				"ref":   args[0],
				"delay": cty.Zero,
			}), nil
		},
	})
}

var waitFunc = function.New(&function.Spec{
	Description: "Declares a pause of the given seconds or duration string.",
	Params:      []function.Parameter{{Name: "delay", Type: cty.DynamicPseudoType}},
	Type:        function.StaticReturnType(actionType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		d, err := durationValue(args[0])
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		return cty.ObjectVal(map[string]cty.Value{
			"kind":  cty.StringVal(string(config.ActionWait)),
			"ref":   cty.StringVal(""),
			"delay": cty.NumberFloatVal(d.Seconds()),
		}), nil
	},
})

func decodeNumbers(args []cty.Value, dst ...*float64) error {
	for i, a := range args {
		if err := gocty.FromCtyValue(a, dst[i]); err != nil {
			return function.NewArgError(i, err)
		}
	}
	return nil
}

func numberList(vals []float64) cty.Value {
	if len(vals) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	out := make([]cty.Value, len(vals))
	for i, v := range vals {
		out[i] = cty.NumberFloatVal(v)
	}
	return cty.ListVal(out)
}

// durationValue reads a delay given as seconds or as a Go duration string.
func durationValue(v cty.Value) (time.Duration, error) {
	switch {
	case v.IsNull():
		return 0, nil
	case !v.IsKnown():
		return 0, fmt.Errorf("delay must be known")
	case v.Type() == cty.String:
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return 0, err
		}
		if d < 0 {
			return 0, fmt.Errorf("delay must be non-negative, got %s", d)
		}
		return d, nil
	case v.Type() == cty.Number:
		sec, _ := v.AsBigFloat().Float64()
		if sec < 0 {
			return 0, fmt.Errorf("delay must be non-negative, got %v", sec)
		}
		return time.Duration(sec * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("delay must be a number of seconds or a duration string, got %s", v.Type().FriendlyName())
	}
}
