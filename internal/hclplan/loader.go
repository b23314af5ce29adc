package hclplan

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL plan loader started.", "pathCount", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, errdefs.WrapConfiguration(err, "failed to find plan files")
	}
	if len(files) == 0 {
		return nil, errdefs.Configurationf("no plan files found in %v", paths)
	}
	logger.Debug("Discovered plan files.", "count", len(files))

	parser := hclparse.NewParser()
	var roots []*fileRoot
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, errdefs.WrapConfiguration(diags, fmt.Sprintf("failed to parse plan file %s", file))
		}
		root, err := decodeFile(file, f)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return l.build(ctx, roots)
}

// Parse loads a single plan from source bytes.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*config.Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errdefs.WrapConfiguration(diags, fmt.Sprintf("failed to parse plan file %s", filename))
	}
	root, err := decodeFile(filename, f)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, []*fileRoot{root})
}

func decodeFile(name string, f *hcl.File) (*fileRoot, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, evalContext(), &root); diags.HasErrors() {
		return nil, errdefs.WrapConfiguration(diags, fmt.Sprintf("failed to decode plan file %s", name))
	}
	return &root, nil
}

func (l *Loader) build(ctx context.Context, roots []*fileRoot) (*config.Model, error) {
	model := &config.Model{}
	var top *loopBlock
	for _, root := range roots {
		if root.Run != nil {
			if model.Run != nil {
				return nil, errdefs.Configurationf("duplicate run block")
			}
			model.Run = &config.RunSettings{}
			if root.Run.Label != nil {
				model.Run.Label = *root.Run.Label
			}
			if root.Run.Location != nil {
				model.Run.Location = *root.Run.Location
			}
		}
		for _, lb := range root.Loops {
			if top != nil {
				return nil, errdefs.Configurationf("%s: only one top-level loop is allowed, first defined at %s", lb.DeclRange, top.DeclRange)
			}
			top = lb
		}
	}
	if top == nil {
		return nil, errdefs.Configurationf("plan defines no loop")
	}

	def, err := translateLoop(top)
	if err != nil {
		return nil, err
	}
	model.Loop = def
	if err := model.Validate(); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL plan loading complete.", "depth", def.Depth())
	return model, nil
}

// translateLoop evaluates one loop block and its nested loops.
func translateLoop(b *loopBlock) (*config.LoopDef, error) {
	ectx := evalContext()
	def := &config.LoopDef{Quantity: b.Quantity}

	values, err := evalValues(b.Values, ectx)
	if err != nil {
		return nil, err
	}
	def.Values = values

	delay, diags := b.Delay.Value(ectx)
	if diags.HasErrors() {
		return nil, errdefs.WrapConfiguration(diags, fmt.Sprintf("loop %q: delay", b.Quantity))
	}
	if def.Delay, err = durationValue(delay); err != nil {
		return nil, errdefs.WrapConfiguration(err, fmt.Sprintf("%s: loop %q: delay", b.Delay.Range(), b.Quantity))
	}

	if def.Each, err = evalEach(b.Quantity, b.Each, ectx); err != nil {
		return nil, err
	}
	for _, nb := range b.Loops {
		nested, err := translateLoop(nb)
		if err != nil {
			return nil, err
		}
		def.Nested = append(def.Nested, nested)
	}
	return def, nil
}

func evalValues(expr hcl.Expression, ectx *hcl.EvalContext) ([]float64, error) {
	rng := expr.Range()
	val, diags := expr.Value(ectx)
	if diags.HasErrors() {
		return nil, errdefs.WrapConfiguration(diags, "values")
	}
	if val.IsNull() || !val.IsWhollyKnown() {
		return nil, errdefs.Configurationf("%s: values must be a known list of numbers", rng)
	}
	list, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return nil, errdefs.Configurationf("%s: values must be a list of numbers, got %s", rng, val.Type().FriendlyName())
	}
	var out []float64
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, errdefs.WrapConfiguration(err, fmt.Sprintf("%s: values", rng))
	}
	return out, nil
}

func evalEach(quantity string, expr hcl.Expression, ectx *hcl.EvalContext) ([]*config.ActionDef, error) {
	rng := expr.Range()
	val, diags := expr.Value(ectx)
	if diags.HasErrors() {
		return nil, errdefs.WrapConfiguration(diags, fmt.Sprintf("loop %q: each", quantity))
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, errdefs.Configurationf("%s: each must be known", rng)
	}
	ty := val.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, errdefs.Configurationf("%s: each must be a list of actions, got %s", rng, ty.FriendlyName())
	}

	var out []*config.ActionDef
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		a, err := actionDef(elem)
		if err != nil {
			return nil, errdefs.WrapConfiguration(err, fmt.Sprintf("%s: each[%d]", rng, len(out)))
		}
		out = append(out, a)
	}
	return out, nil
}

func actionDef(v cty.Value) (*config.ActionDef, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("action must not be null")
	}
	if v.Type() == cty.String {
		return &config.ActionDef{Kind: config.ActionMeasure, Ref: v.AsString()}, nil
	}
	conv, err := convert.Convert(v, actionType)
	if err != nil {
		return nil, fmt.Errorf("expected a reference string or measure(), call(), wait(): %w", err)
	}
	var av actionValue
	if err := gocty.FromCtyValue(conv, &av); err != nil {
		return nil, err
	}
	return &config.ActionDef{
		Kind:  config.ActionKind(av.Kind),
		Ref:   av.Ref,
		Delay: time.Duration(av.Delay * float64(time.Second)),
	}, nil
}
