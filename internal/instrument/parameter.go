package instrument

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
)

// GetFunc reads a scalar value from the underlying device.
type GetFunc func(ctx context.Context) (float64, error)

// SetFunc writes a scalar value to the underlying device.
type SetFunc func(ctx context.Context, value float64) error

// Bindable handles can be attached to an Instrument or Channel, which fills in
// the owner fields of their identity.
type Bindable interface {
	Identified
	bind(instrument, channel string)
}

// ParameterOption configures a Parameter.
type ParameterOption func(*Parameter)

// WithLabel sets the human-readable label.
func WithLabel(label string) ParameterOption {
	return func(p *Parameter) { p.id.Label = label }
}

// WithUnit sets the unit string.
func WithUnit(unit string) ParameterOption {
	return func(p *Parameter) { p.id.Unit = unit }
}

// WithBounds rejects Set calls outside [lo, hi].
func WithBounds(lo, hi float64) ParameterOption {
	return func(p *Parameter) {
		p.bounded = true
		p.lo, p.hi = lo, hi
	}
}

// WithInitial sets the cached value returned before any Set.
func WithInitial(v float64) ParameterOption {
	return func(p *Parameter) { p.value = v }
}

// WithGetter reads through fn instead of returning the cached value.
func WithGetter(fn GetFunc) ParameterOption {
	return func(p *Parameter) { p.getFn = fn }
}

// WithSetter forwards Set to fn after validation.
func WithSetter(fn SetFunc) ParameterOption {
	return func(p *Parameter) { p.setFn = fn }
}

// ReadOnly makes Set fail with ErrNotSettable.
func ReadOnly() ParameterOption {
	return func(p *Parameter) { p.readOnly = true }
}

// Parameter is a scalar quantity that can be read and, unless read-only, set.
// Without a getter it behaves like a stored value.
type Parameter struct {
	id Identity

	mu       sync.Mutex
	value    float64
	getFn    GetFunc
	setFn    SetFunc
	bounded  bool
	lo, hi   float64
	readOnly bool
}

var (
	_ Settable = (*Parameter)(nil)
	_ Scalar   = (*Parameter)(nil)
	_ Bindable = (*Parameter)(nil)
)

// NewParameter creates a Parameter named name.
func NewParameter(name string, opts ...ParameterOption) *Parameter {
	p := &Parameter{id: Identity{Name: name}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parameter) Identity() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

func (p *Parameter) bind(instrument, channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id.Instrument = instrument
	p.id.Channel = channel
}

// Get returns the current value.
func (p *Parameter) Get(ctx context.Context) (float64, error) {
	p.mu.Lock()
	fn := p.getFn
	v := p.value
	p.mu.Unlock()
	if fn == nil {
		return v, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
	return v, nil
}

// Set validates value and stores it.
func (p *Parameter) Set(ctx context.Context, value float64) error {
	p.mu.Lock()
	readOnly, bounded, lo, hi, fn := p.readOnly, p.bounded, p.lo, p.hi, p.setFn
	p.mu.Unlock()

	if readOnly {
		return fmt.Errorf("%s: %w", p.Identity().FullName(), ErrNotSettable)
	}
	if math.IsNaN(value) || (bounded && (value < lo || value > hi)) {
		return fmt.Errorf("%s: %v not in [%v, %v]: %w", p.Identity().FullName(), value, lo, hi, ErrOutOfRange)
	}
	if fn != nil {
		if err := fn(ctx, value); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
	return nil
}

// ArrayGetFunc reads a flat row-major block.
type ArrayGetFunc func(ctx context.Context) ([]float64, error)

// ArrayParameter is a read-only measurable with a fixed shape.
type ArrayParameter struct {
	mu        sync.Mutex
	id        Identity
	shape     []int
	setpoints []SetpointAxis
	get       ArrayGetFunc
}

var (
	_ Array    = (*ArrayParameter)(nil)
	_ Bindable = (*ArrayParameter)(nil)
)

// NewArrayParameter creates an array-valued measurable. setpoints may be shorter
// than shape; missing axes fall back to index axes at allocation time.
func NewArrayParameter(name string, shape []int, setpoints []SetpointAxis, get ArrayGetFunc, opts ...ParameterOption) *ArrayParameter {
	tmp := &Parameter{id: Identity{Name: name}}
	for _, opt := range opts {
		opt(tmp)
	}
	return &ArrayParameter{
		id:        tmp.id,
		shape:     slices.Clone(shape),
		setpoints: slices.Clone(setpoints),
		get:       get,
	}
}

func (a *ArrayParameter) Identity() Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

func (a *ArrayParameter) bind(instrument, channel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id.Instrument = instrument
	a.id.Channel = channel
}

func (a *ArrayParameter) Shape() []int              { return slices.Clone(a.shape) }
func (a *ArrayParameter) Setpoints() []SetpointAxis { return slices.Clone(a.setpoints) }

// GetArray reads one block and checks its size against Shape.
func (a *ArrayParameter) GetArray(ctx context.Context) ([]float64, error) {
	vals, err := a.get(ctx)
	if err != nil {
		return nil, err
	}
	if len(vals) != Size(a.shape) {
		return nil, fmt.Errorf("%s returned %d values for shape %v: %w", a.Identity().FullName(), len(vals), a.shape, ErrShapeMismatch)
	}
	return vals, nil
}

// MultiGetFunc reads one block per member.
type MultiGetFunc func(ctx context.Context) ([][]float64, error)

// MultiParameter is a read-only measurable with several named outputs.
type MultiParameter struct {
	mu      sync.Mutex
	id      Identity
	members []Member
	get     MultiGetFunc
}

var (
	_ Multi    = (*MultiParameter)(nil)
	_ Bindable = (*MultiParameter)(nil)
)

// NewMultiParameter creates a multi-output measurable.
func NewMultiParameter(name string, members []Member, get MultiGetFunc, opts ...ParameterOption) *MultiParameter {
	tmp := &Parameter{id: Identity{Name: name}}
	for _, opt := range opts {
		opt(tmp)
	}
	return &MultiParameter{id: tmp.id, members: slices.Clone(members), get: get}
}

func (m *MultiParameter) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *MultiParameter) bind(instrument, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id.Instrument = instrument
	m.id.Channel = channel
}

func (m *MultiParameter) Members() []Member { return slices.Clone(m.members) }

// GetMulti reads all members and checks each block against its shape.
func (m *MultiParameter) GetMulti(ctx context.Context) ([][]float64, error) {
	vals, err := m.get(ctx)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(m.members) {
		return nil, fmt.Errorf("%s returned %d outputs, want %d: %w", m.Identity().FullName(), len(vals), len(m.members), ErrShapeMismatch)
	}
	for i, member := range m.members {
		if len(vals[i]) != Size(member.Shape) {
			return nil, fmt.Errorf("%s member %s returned %d values for shape %v: %w",
				m.Identity().FullName(), member.Name, len(vals[i]), member.Shape, ErrShapeMismatch)
		}
	}
	return vals, nil
}
