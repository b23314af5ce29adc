package loop

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
)

// Kind tags the variant of an Action.
type Kind int

const (
	KindScalar Kind = iota
	KindArray
	KindMulti
	KindNestedLoop
	KindTask
	KindWait
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindMulti:
		return "multi"
	case KindNestedLoop:
		return "loop"
	case KindTask:
		return "task"
	case KindWait:
		return "wait"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Task is a callable executed at every point of its level. It produces no data.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Wait pauses for Delay at every point of its level.
type Wait struct {
	Delay time.Duration
}

// Action is one resolved step of a loop level.
type Action struct {
	kind   Kind
	scalar instrument.Scalar
	array  instrument.Array
	multi  instrument.Multi
	loop   *Plan
	task   Task
	delay  time.Duration
}

func (a *Action) Kind() Kind { return a.kind }

// Loop returns the nested plan of a KindNestedLoop action.
func (a *Action) Loop() *Plan { return a.loop }

// Delay returns the pause of a KindWait action.
func (a *Action) Delay() time.Duration { return a.delay }

// Target is the full name of the measurable, or the task name.
func (a *Action) Target() string {
	switch a.kind {
	case KindScalar:
		return a.scalar.Identity().FullName()
	case KindArray:
		return a.array.Identity().FullName()
	case KindMulti:
		return a.multi.Identity().FullName()
	case KindNestedLoop:
		return a.loop.Sweep().Identity().FullName()
	case KindTask:
		return a.task.Name
	}
	return ""
}

func (a *Action) String() string {
	switch a.kind {
	case KindWait:
		return fmt.Sprintf("wait(%s)", a.delay)
	default:
		return fmt.Sprintf("%s(%s)", a.kind, a.Target())
	}
}

// resolved is the outcome of resolving the arguments of one Each call.
type resolved struct {
	child   *Plan
	actions []*Action
}

func (r *resolved) addPlan(p *Plan) {
	if r.child == nil {
		r.child = p
		return
	}
	r.actions = append(r.actions, &Action{kind: KindNestedLoop, loop: p})
}

func resolveActions(args []any, defaults []any) (*resolved, error) {
	r := &resolved{}
	for i, arg := range args {
		if isNil(arg) {
			return nil, errdefs.Configurationf("action %d is nil", i)
		}
		switch v := arg.(type) {
		case *Plan:
			r.addPlan(v)
		case *Builder:
			p, err := v.activate(defaults)
			if err != nil {
				return nil, err
			}
			r.addPlan(p)
		case instrument.ParameterSlice:
			acts, err := expand(v.Name, v.Members)
			if err != nil {
				return nil, err
			}
			r.actions = append(r.actions, acts...)
		case []instrument.Identified:
			acts, err := expand(fmt.Sprintf("action %d", i), v)
			if err != nil {
				return nil, err
			}
			r.actions = append(r.actions, acts...)
		case Task:
			if v.Fn == nil {
				return nil, errdefs.Configurationf("task %q has no function", v.Name)
			}
			r.actions = append(r.actions, &Action{kind: KindTask, task: v})
		case instrument.Callable:
			c := v
			r.actions = append(r.actions, &Action{kind: KindTask, task: Task{
				Name: c.Name(),
				Fn: func(ctx context.Context) error {
					_, err := c.Call(ctx)
					return err
				},
			}})
		case Wait:
			if v.Delay < 0 {
				return nil, errdefs.Configurationf("wait delay must not be negative, got %s", v.Delay)
			}
			r.actions = append(r.actions, &Action{kind: KindWait, delay: v.Delay})
		case instrument.Identified:
			a, err := measurable(v)
			if err != nil {
				return nil, err
			}
			r.actions = append(r.actions, a)
		default:
			return nil, errdefs.Configurationf("unsupported action %d of type %T", i, arg)
		}
	}
	return r, nil
}

// measurable picks the most specific capability of v: multi-output, then
// array-valued, then scalar.
func measurable(v instrument.Identified) (*Action, error) {
	if m, ok := v.(instrument.Multi); ok {
		return &Action{kind: KindMulti, multi: m}, nil
	}
	if a, ok := v.(instrument.Array); ok {
		return &Action{kind: KindArray, array: a}, nil
	}
	if s, ok := v.(instrument.Scalar); ok {
		return &Action{kind: KindScalar, scalar: s}, nil
	}
	return nil, errdefs.Configurationf("%s is not measurable", v.Identity().FullName())
}

func expand(name string, members []instrument.Identified) ([]*Action, error) {
	if len(members) == 0 {
		return nil, errdefs.Configurationf("collection %s is empty", name)
	}
	out := make([]*Action, 0, len(members))
	for _, m := range members {
		if isNil(m) {
			return nil, errdefs.Configurationf("collection %s contains a nil member", name)
		}
		if _, ok := m.(instrument.Multi); ok {
			return nil, errdefs.Unsupportedf("cannot expand a sliced collection of multi-output measurables (%s)", name)
		}
		a, err := measurable(m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
