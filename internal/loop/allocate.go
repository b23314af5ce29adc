package loop

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
)

// slot is an array before it has a resolved name.
type slot struct {
	id       instrument.Identity
	setpoint bool
	dims     []int
	setSlots []*slot
	// fill is the block written at every outer index of an inner setpoint axis.
	fill  []float64
	name  string
	array *data.Array
}

// execNode mirrors one Plan level with its bound arrays.
type execNode struct {
	plan  *Plan
	set   *slot
	child *execNode
	steps []*execStep
}

type execStep struct {
	action  *Action
	nested  *execNode
	outputs []*slot
	inner   [][]*slot
}

type allocation struct {
	set    *data.Set
	root   *execNode
	points int
}

type allocator struct {
	slots  []*slot
	shared map[string]*slot
	points int
}

// Allocate performs the allocation pass for p without touching any instrument
// and returns the empty result collection.
func Allocate(p *Plan) (*data.Set, error) {
	a, err := allocate(p)
	if err != nil {
		return nil, err
	}
	return a.set, nil
}

func allocate(p *Plan) (*allocation, error) {
	if p == nil {
		return nil, errdefs.Configurationf("plan is nil")
	}
	al := &allocator{shared: make(map[string]*slot)}
	root, err := al.node(p, nil, nil, 1)
	if err != nil {
		return nil, err
	}
	al.resolveNames()
	set, err := al.build()
	if err != nil {
		return nil, err
	}
	return &allocation{set: set, root: root, points: al.points}, nil
}

func (al *allocator) node(p *Plan, outer []*slot, outerDims []int, mult int) (*execNode, error) {
	n := p.sweep.Len()
	dims := append(slices.Clone(outerDims), n)
	id := p.sweep.Identity()
	key := fmt.Sprintf("loop|%s|%s|%v|%v", slotKeys(outer), id.FullName(), p.sweep.Values(), dims)
	set := al.setpoint(key, id, dims, outer, nil)
	setSlots := append(slices.Clone(outer), set)
	al.points += mult * n

	node := &execNode{plan: p, set: set}
	if p.child != nil {
		child, err := al.node(p.child, setSlots, dims, mult*n)
		if err != nil {
			return nil, err
		}
		node.child = child
	}
	for _, a := range p.actions {
		step, err := al.step(a, setSlots, dims, mult*n)
		if err != nil {
			return nil, err
		}
		node.steps = append(node.steps, step)
	}
	return node, nil
}

func (al *allocator) step(a *Action, outer []*slot, dims []int, mult int) (*execStep, error) {
	step := &execStep{action: a}
	switch a.kind {
	case KindScalar:
		out := al.measured(a.scalar.Identity(), dims, outer)
		step.outputs = []*slot{out}
		step.inner = [][]*slot{nil}
	case KindArray:
		shape := a.array.Shape()
		if len(shape) == 0 {
			return nil, errdefs.Configurationf("array measurable %s has an empty shape", a.Target())
		}
		inner, out, err := al.arrayOutput(a.array.Identity(), shape, a.array.Setpoints(), outer, dims)
		if err != nil {
			return nil, err
		}
		step.outputs = []*slot{out}
		step.inner = [][]*slot{inner}
	case KindMulti:
		members := a.multi.Members()
		if len(members) == 0 {
			return nil, errdefs.Configurationf("multi-output measurable %s has no members", a.Target())
		}
		for _, m := range members {
			if m.Name == "" {
				return nil, errdefs.Configurationf("multi-output measurable %s has an unnamed member", a.Target())
			}
			inner, out, err := al.arrayOutput(instrument.MemberIdentity(a.multi, m), m.Shape, m.Setpoints, outer, dims)
			if err != nil {
				return nil, err
			}
			step.outputs = append(step.outputs, out)
			step.inner = append(step.inner, inner)
		}
	case KindNestedLoop:
		nested, err := al.node(a.loop, outer, dims, mult)
		if err != nil {
			return nil, err
		}
		step.nested = nested
	}
	return step, nil
}

// arrayOutput allocates the inner setpoint axes and the measured array of one
// output with the given inner shape.
func (al *allocator) arrayOutput(id instrument.Identity, shape []int, axes []instrument.SetpointAxis, outer []*slot, outerDims []int) ([]*slot, *slot, error) {
	if len(axes) > len(shape) {
		return nil, nil, errdefs.Configurationf("%s declares %d setpoint axes for shape %v", id.FullName(), len(axes), shape)
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, nil, errdefs.Configurationf("%s has non-positive shape %v", id.FullName(), shape)
		}
	}

	var inner []*slot
	for j, n := range shape {
		axis := instrument.SetpointAxis{}
		if j < len(axes) {
			axis = axes[j]
		}
		if axis.Name == "" {
			axis.Name = fmt.Sprintf("index%d", j)
		}
		values := axis.Values
		if len(values) == 0 {
			values = make([]float64, n)
			for i := range values {
				values[i] = float64(i)
			}
		}
		if len(values) != n {
			return nil, nil, errdefs.Configurationf("%s setpoint axis %s has %d values, shape needs %d", id.FullName(), axis.Name, len(values), n)
		}

		block := instrument.Size(shape[:j+1])
		fill := make([]float64, block)
		for t := range fill {
			fill[t] = values[t%n]
		}
		dims := append(slices.Clone(outerDims), shape[:j+1]...)
		axisID := instrument.Identity{Name: axis.Name, Label: axis.Label, Unit: axis.Unit}
		key := fmt.Sprintf("inner|%s|%s|%d|%s|%v|%v", slotKeys(outer), slotKeys(inner), j, axis.Name, values, dims)
		inner = append(inner, al.setpoint(key, axisID, dims, append(slices.Clone(outer), inner...), fill))
	}

	dims := append(slices.Clone(outerDims), shape...)
	setSlots := append(slices.Clone(outer), inner...)
	return inner, al.measured(id, dims, setSlots), nil
}

// setpoint returns the shared setpoint slot for key, creating it on first use.
func (al *allocator) setpoint(key string, id instrument.Identity, dims []int, outer []*slot, fill []float64) *slot {
	if s, ok := al.shared[key]; ok {
		return s
	}
	s := &slot{id: id, setpoint: true, dims: dims, fill: fill}
	s.setSlots = append(slices.Clone(outer), s)
	al.shared[key] = s
	al.slots = append(al.slots, s)
	return s
}

func (al *allocator) measured(id instrument.Identity, dims []int, setSlots []*slot) *slot {
	s := &slot{id: id, dims: slices.Clone(dims), setSlots: slices.Clone(setSlots)}
	al.slots = append(al.slots, s)
	return s
}

// resolveNames assigns unique array names. A channel-owned identity whose short
// name is shared by another distinct identity is qualified with its instrument
// and channel; remaining duplicates get numeric suffixes.
func (al *allocator) resolveNames() {
	identities := make(map[string]map[string]struct{})
	for _, s := range al.slots {
		full := s.id.FullName()
		if identities[s.id.Name] == nil {
			identities[s.id.Name] = make(map[string]struct{})
		}
		identities[s.id.Name][full] = struct{}{}
	}

	taken := make(map[string]struct{}, len(al.slots))
	for _, s := range al.slots {
		base := s.id.Name
		if s.id.Qualified() && len(identities[s.id.Name]) > 1 {
			base = s.id.FullName()
		}
		if s.setpoint {
			base += "_set"
		}
		name := base
		for k := 2; ; k++ {
			if _, dup := taken[name]; !dup {
				break
			}
			name = fmt.Sprintf("%s_%d", base, k)
		}
		taken[name] = struct{}{}
		s.name = name
	}
}

func (al *allocator) build() (*data.Set, error) {
	set := data.NewSet()
	for _, s := range al.slots {
		arr, err := data.NewArray(s.name, s.dims)
		if err != nil {
			return nil, errdefs.WrapConfiguration(err, "allocate "+s.name)
		}
		arr.Label = s.id.DisplayLabel()
		arr.Unit = s.id.Unit
		arr.IsSetpoint = s.setpoint
		s.array = arr
		if err := set.Add(arr); err != nil {
			return nil, errdefs.WrapConfiguration(err, "allocate")
		}
	}
	for _, s := range al.slots {
		refs := make([]*data.Array, len(s.setSlots))
		for i, ss := range s.setSlots {
			refs[i] = ss.array
		}
		s.array.SetArrays = refs
	}
	return set, nil
}

func slotKeys(slots []*slot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = fmt.Sprintf("%p", s)
	}
	return strings.Join(parts, ",")
}
