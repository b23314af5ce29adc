package instrument

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Func is a named operation exposed by an instrument or channel.
type Func func(ctx context.Context, args ...any) (any, error)

// Callable is a resolved function reference.
type Callable interface {
	Name() string
	Call(ctx context.Context, args ...any) (any, error)
}

// registry holds the parameters and functions of one instrument or channel in
// declaration order.
type registry struct {
	kind   string
	params map[string]Identified
	order  []string
	funcs  map[string]Func
}

func newRegistry(kind string) registry {
	return registry{kind: kind, params: make(map[string]Identified), funcs: make(map[string]Func)}
}

func (r *registry) addParameter(p Identified) error {
	name := p.Identity().Name
	if name == "" {
		return fmt.Errorf("%s: parameter name must not be empty", r.kind)
	}
	if _, dup := r.params[name]; dup {
		return fmt.Errorf("%s: duplicate parameter %q", r.kind, name)
	}
	r.params[name] = p
	r.order = append(r.order, name)
	return nil
}

func (r *registry) parameter(name string) (Identified, error) {
	if p, ok := r.params[name]; ok {
		return p, nil
	}
	return nil, noAttr(r.kind, name)
}

func (r *registry) function(name string) (Func, error) {
	if fn, ok := r.funcs[name]; ok {
		return fn, nil
	}
	return nil, noAttr(r.kind, name)
}

func (r *registry) parameters() []Identified {
	out := make([]Identified, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.params[name])
	}
	return out
}

// Instrument groups parameters, functions and channel lists under one name.
type Instrument struct {
	mu    sync.RWMutex
	name  string
	reg   registry
	lists map[string]*ChannelList
}

// New creates an empty instrument.
func New(name string) *Instrument {
	return &Instrument{name: name, reg: newRegistry("Instrument"), lists: make(map[string]*ChannelList)}
}

func (in *Instrument) Name() string { return in.name }

// AddParameter attaches p and binds its identity to the instrument.
func (in *Instrument) AddParameter(p Bindable) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	p.bind(in.name, "")
	return in.reg.addParameter(p)
}

// AddFunction registers a named function.
func (in *Instrument) AddFunction(name string, fn Func) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reg.funcs[name] = fn
}

// Parameter looks up a parameter by short name.
func (in *Instrument) Parameter(name string) (Identified, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.reg.parameter(name)
}

// Parameters returns the instrument-level parameters in declaration order.
func (in *Instrument) Parameters() []Identified {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.reg.parameters()
}

// Function looks up a function by name and binds it for calling.
func (in *Instrument) Function(name string) (Callable, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	fn, err := in.reg.function(name)
	if err != nil {
		return nil, err
	}
	return boundFunc{name: in.name + "_" + name, fn: fn}, nil
}

// AddChannelList attaches channels under list name and binds every channel
// parameter to this instrument.
func (in *Instrument) AddChannelList(name string, channels ...*Channel) (*ChannelList, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, dup := in.lists[name]; dup {
		return nil, fmt.Errorf("instrument %s: duplicate channel list %q", in.name, name)
	}
	for _, ch := range channels {
		ch.attach(in.name)
	}
	list, err := newChannelList(channels)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %w", in.name, err)
	}
	in.lists[name] = list
	return list, nil
}

// ChannelList returns the named channel list.
func (in *Instrument) ChannelList(name string) (*ChannelList, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if l, ok := in.lists[name]; ok {
		return l, nil
	}
	return nil, noAttr("Instrument", name)
}

// Channel finds a channel by name or alias across all channel lists.
func (in *Instrument) Channel(name string) (*Channel, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	names := make([]string, 0, len(in.lists))
	for n := range in.lists {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if ch, err := in.lists[n].Channel(name); err == nil {
			return ch, nil
		}
	}
	return nil, noAttr("Instrument", name)
}

// Channel is an addressable sub-unit of an instrument.
type Channel struct {
	mu         sync.RWMutex
	name       string
	alias      string
	instrument string
	reg        registry
}

// NewChannel creates a channel. alias is an optional short name usable in
// lookups, e.g. "A" for "ChanA".
func NewChannel(name, alias string) *Channel {
	return &Channel{name: name, alias: alias, reg: newRegistry("Channel")}
}

func (c *Channel) Name() string  { return c.name }
func (c *Channel) Alias() string { return c.alias }

func (c *Channel) attach(instrument string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instrument = instrument
	for _, p := range c.reg.params {
		if b, ok := p.(Bindable); ok {
			b.bind(instrument, c.name)
		}
	}
}

// AddParameter attaches p and binds its identity to this channel.
func (c *Channel) AddParameter(p Bindable) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.bind(c.instrument, c.name)
	return c.reg.addParameter(p)
}

// AddFunction registers a named function.
func (c *Channel) AddFunction(name string, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.funcs[name] = fn
}

// Parameter looks up a parameter by short name.
func (c *Channel) Parameter(name string) (Identified, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reg.parameter(name)
}

// Parameters returns the channel parameters in declaration order.
func (c *Channel) Parameters() []Identified {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reg.parameters()
}

// Function looks up a function by name and binds it for calling.
func (c *Channel) Function(name string) (Callable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, err := c.reg.function(name)
	if err != nil {
		return nil, err
	}
	full := Identity{Instrument: c.instrument, Channel: c.name, Name: name}.FullName()
	return boundFunc{name: full, fn: fn}, nil
}

type boundFunc struct {
	name string
	fn   Func
}

func (b boundFunc) Name() string { return b.name }

func (b boundFunc) Call(ctx context.Context, args ...any) (any, error) {
	return b.fn(ctx, args...)
}
