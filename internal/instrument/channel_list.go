package instrument

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ChannelList is an ordered collection of channels addressable by index, name
// or alias. Lists are immutable once created; Slice returns a new list.
type ChannelList struct {
	channels []*Channel
	byName   map[string]*Channel
}

func newChannelList(channels []*Channel) (*ChannelList, error) {
	l := &ChannelList{channels: slices.Clone(channels), byName: make(map[string]*Channel, 2*len(channels))}
	for _, ch := range channels {
		for _, key := range []string{ch.name, ch.alias} {
			if key == "" {
				continue
			}
			if _, dup := l.byName[key]; dup {
				return nil, fmt.Errorf("duplicate channel name %q", key)
			}
			l.byName[key] = ch
		}
	}
	return l, nil
}

// NewChannelList builds a free-standing list, e.g. for tests.
func NewChannelList(channels ...*Channel) (*ChannelList, error) {
	return newChannelList(channels)
}

func (l *ChannelList) Len() int { return len(l.channels) }

// Channels returns the members in order.
func (l *ChannelList) Channels() []*Channel { return slices.Clone(l.channels) }

// Index returns the i-th channel.
func (l *ChannelList) Index(i int) (*Channel, error) {
	if i < 0 || i >= len(l.channels) {
		return nil, fmt.Errorf("channel index %d out of range [0, %d): %w", i, len(l.channels), ErrNoSuchAttribute)
	}
	return l.channels[i], nil
}

// Channel returns the channel with the given name or alias.
func (l *ChannelList) Channel(name string) (*Channel, error) {
	if ch, ok := l.byName[name]; ok {
		return ch, nil
	}
	return nil, noAttr("ChannelList", name)
}

// Slice returns the sub-list [i, j).
func (l *ChannelList) Slice(i, j int) (*ChannelList, error) {
	if i < 0 || j > len(l.channels) || i > j {
		return nil, fmt.Errorf("channel slice [%d:%d] out of range for %d channels", i, j, len(l.channels))
	}
	return newChannelList(l.channels[i:j])
}

// ParameterSlice is the same parameter gathered from every channel of a list.
type ParameterSlice struct {
	Name    string
	Members []Identified
}

// Parameter gathers parameter name from every channel. It fails when the list
// is empty or any channel lacks the parameter.
func (l *ChannelList) Parameter(name string) (ParameterSlice, error) {
	if len(l.channels) == 0 {
		return ParameterSlice{}, noAttr("ChannelTuple", name)
	}
	out := ParameterSlice{Name: name, Members: make([]Identified, 0, len(l.channels))}
	for _, ch := range l.channels {
		p, err := ch.Parameter(name)
		if err != nil {
			return ParameterSlice{}, noAttr("ChannelTuple", name)
		}
		out.Members = append(out.Members, p)
	}
	return out, nil
}

// CallResult is the outcome of one channel's function call.
type CallResult struct {
	Channel string
	Value   any
	Err     error
}

// Call invokes fn on every channel in order and collects the per-channel
// results. The returned error joins all per-channel failures.
func (l *ChannelList) Call(ctx context.Context, fn string, args ...any) ([]CallResult, error) {
	if len(l.channels) == 0 {
		return nil, noAttr("ChannelTuple", fn)
	}
	callables := make([]Callable, len(l.channels))
	for i, ch := range l.channels {
		c, err := ch.Function(fn)
		if err != nil {
			return nil, noAttr("ChannelTuple", fn)
		}
		callables[i] = c
	}
	results := make([]CallResult, len(l.channels))
	var errs []error
	for i, c := range callables {
		v, err := c.Call(ctx, args...)
		results[i] = CallResult{Channel: l.channels[i].name, Value: v, Err: err}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return results, errors.Join(errs...)
}

// Broadcast is Call without the per-channel results.
func (l *ChannelList) Broadcast(ctx context.Context, fn string, args ...any) error {
	_, err := l.Call(ctx, fn, args...)
	return err
}

// Function returns a Callable that fans fn out over the list. The call result
// is the []CallResult slice.
func (l *ChannelList) Function(fn string) (Callable, error) {
	if len(l.channels) == 0 {
		return nil, noAttr("ChannelTuple", fn)
	}
	for _, ch := range l.channels {
		if _, err := ch.Function(fn); err != nil {
			return nil, noAttr("ChannelTuple", fn)
		}
	}
	return listCall{list: l, fn: fn}, nil
}

type listCall struct {
	list *ChannelList
	fn   string
}

func (c listCall) Name() string { return c.fn }

func (c listCall) Call(ctx context.Context, args ...any) (any, error) {
	return c.list.Call(ctx, c.fn, args...)
}
