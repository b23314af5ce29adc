package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolve walks a dotted path below the instrument and returns the handle it
// names. Segments may carry an index or a half-open slice on channel lists:
//
//	p1                         parameter of the instrument
//	A.temperature              parameter of channel A
//	channels.temperature       ParameterSlice over all channels
//	channels[0:2].temperature  ParameterSlice over the first two channels
//	channels[3]                a single *Channel
//	channels.turn_on           Callable fanning out over the list
//
// The result is one of Identified, ParameterSlice, Callable, *Channel or
// *ChannelList.
func (in *Instrument) Resolve(path string) (any, error) {
	if path == "" {
		return in, nil
	}
	var cur any = in
	for _, raw := range strings.Split(path, ".") {
		name, sel, err := parseSegment(raw)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", in.name, path, err)
		}
		next, err := step(cur, name)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", in.name, path, err)
		}
		if sel != nil {
			list, ok := next.(*ChannelList)
			if !ok {
				return nil, fmt.Errorf("resolve %s.%s: %q is not a channel list", in.name, path, name)
			}
			next, err = sel.apply(list)
			if err != nil {
				return nil, fmt.Errorf("resolve %s.%s: %w", in.name, path, err)
			}
		}
		cur = next
	}
	return cur, nil
}

func step(cur any, name string) (any, error) {
	switch c := cur.(type) {
	case *Instrument:
		if p, err := c.Parameter(name); err == nil {
			return p, nil
		}
		if l, err := c.ChannelList(name); err == nil {
			return l, nil
		}
		if ch, err := c.Channel(name); err == nil {
			return ch, nil
		}
		if fn, err := c.Function(name); err == nil {
			return fn, nil
		}
		return nil, noAttr("Instrument", name)
	case *Channel:
		if p, err := c.Parameter(name); err == nil {
			return p, nil
		}
		if fn, err := c.Function(name); err == nil {
			return fn, nil
		}
		return nil, noAttr("Channel", name)
	case *ChannelList:
		if ch, err := c.Channel(name); err == nil {
			return ch, nil
		}
		if ps, err := c.Parameter(name); err == nil {
			return ps, nil
		}
		if fn, err := c.Function(name); err == nil {
			return fn, nil
		}
		return nil, noAttr("ChannelTuple", name)
	default:
		return nil, fmt.Errorf("cannot look up %q on %T", name, cur)
	}
}

type selector struct {
	index        int
	lo, hi       int
	isSlice      bool
	hasLo, hasHi bool
}

func (s *selector) apply(l *ChannelList) (any, error) {
	if !s.isSlice {
		i := s.index
		if i < 0 {
			i += l.Len()
		}
		return l.Index(i)
	}
	lo, hi := 0, l.Len()
	if s.hasLo {
		lo = s.lo
	}
	if s.hasHi {
		hi = min(s.hi, l.Len())
	}
	return l.Slice(lo, hi)
}

func parseSegment(seg string) (string, *selector, error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		if seg == "" {
			return "", nil, fmt.Errorf("empty path segment")
		}
		return seg, nil, nil
	}
	if !strings.HasSuffix(seg, "]") || open == 0 {
		return "", nil, fmt.Errorf("malformed segment %q", seg)
	}
	name, body := seg[:open], seg[open+1:len(seg)-1]
	sel := &selector{}
	if lo, hi, ok := strings.Cut(body, ":"); ok {
		sel.isSlice = true
		var err error
		if lo != "" {
			if sel.lo, err = strconv.Atoi(lo); err != nil {
				return "", nil, fmt.Errorf("malformed slice %q: %w", seg, err)
			}
			sel.hasLo = true
		}
		if hi != "" {
			if sel.hi, err = strconv.Atoi(hi); err != nil {
				return "", nil, fmt.Errorf("malformed slice %q: %w", seg, err)
			}
			sel.hasHi = true
		}
		return name, sel, nil
	}
	i, err := strconv.Atoi(body)
	if err != nil {
		return "", nil, fmt.Errorf("malformed index %q: %w", seg, err)
	}
	sel.index = i
	return name, sel, nil
}
