package loop

import (
	"time"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/sweep"
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	defaults []any
}

// WithDefaultMeasurement sets the actions used when a builder without actions
// is passed to Each, or when Default is called.
func WithDefaultMeasurement(actions ...any) Option {
	return func(o *options) { o.defaults = append([]any(nil), actions...) }
}

// Builder accumulates nested sweep levels. Builders are values: Loop returns a
// new Builder and never modifies the receiver.
type Builder struct {
	sweep *sweep.Values
	delay time.Duration
	inner *Builder
	opts  options
}

// New starts a builder sweeping sv with delay after every set.
func New(sv *sweep.Values, delay time.Duration, opts ...Option) *Builder {
	b := &Builder{sweep: sv, delay: delay}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Loop returns a new builder with sv nested at the deepest level.
func (b *Builder) Loop(sv *sweep.Values, delay time.Duration) *Builder {
	head := b.clone()
	deepest := head
	for deepest.inner != nil {
		deepest = deepest.inner
	}
	deepest.inner = &Builder{sweep: sv, delay: delay}
	return head
}

func (b *Builder) clone() *Builder {
	c := *b
	if b.inner != nil {
		c.inner = b.inner.clone()
	}
	return &c
}

func (b *Builder) levels() []*Builder {
	var out []*Builder
	for l := b; l != nil; l = l.inner {
		out = append(out, l)
	}
	return out
}

// Each attaches actions at the innermost level and returns the finished plan.
// The plan is allocated once as a dry run, so shape and naming problems are
// reported here rather than during execution.
func (b *Builder) Each(actions ...any) (*Plan, error) {
	levels := b.levels()
	for _, l := range levels {
		if l.sweep == nil {
			return nil, errdefs.Configurationf("loop has no sweep")
		}
		if l.delay < 0 {
			return nil, errdefs.Configurationf("delay for %s must not be negative, got %s", l.sweep.Identity().FullName(), l.delay)
		}
	}
	if len(actions) == 0 {
		return nil, errdefs.Configurationf("loop over %s has no actions", b.sweep.Identity().FullName())
	}

	r, err := resolveActions(actions, b.opts.defaults)
	if err != nil {
		return nil, err
	}

	last := levels[len(levels)-1]
	p := &Plan{sweep: last.sweep, delay: last.delay, child: r.child, actions: r.actions}
	for i := len(levels) - 2; i >= 0; i-- {
		p = &Plan{sweep: levels[i].sweep, delay: levels[i].delay, child: p}
	}

	if _, err := allocate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Default builds the plan with the default measurement.
func (b *Builder) Default() (*Plan, error) {
	return b.activate(nil)
}

func (b *Builder) activate(fallback []any) (*Plan, error) {
	defaults := b.opts.defaults
	if len(defaults) == 0 {
		defaults = fallback
	}
	if len(defaults) == 0 {
		name := "<nil>"
		if b.sweep != nil {
			name = b.sweep.Identity().FullName()
		}
		return nil, errdefs.Configurationf("loop over %s has no actions and no default measurement", name)
	}
	return b.Each(defaults...)
}
