package loop

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/sweep"
)

// Plan is an immutable loop tree: one sweep level, an optional child loop that
// runs first at every point, and the level's own actions.
type Plan struct {
	sweep   *sweep.Values
	delay   time.Duration
	child   *Plan
	actions []*Action
}

func (p *Plan) Sweep() *sweep.Values { return p.sweep }
func (p *Plan) Delay() time.Duration { return p.delay }
func (p *Plan) Child() *Plan         { return p.child }
func (p *Plan) Actions() []*Action   { return slices.Clone(p.actions) }

// Depth is the maximum number of nested sweep levels.
func (p *Plan) Depth() int {
	d := 0
	if p.child != nil {
		d = p.child.Depth()
	}
	for _, a := range p.actions {
		if a.kind == KindNestedLoop {
			d = max(d, a.loop.Depth())
		}
	}
	return d + 1
}

// Targets lists the full names of every swept quantity and measurable, sorted
// and without duplicates.
func (p *Plan) Targets() []string {
	var out []string
	var walk func(*Plan)
	walk = func(n *Plan) {
		out = append(out, n.sweep.Identity().FullName())
		if n.child != nil {
			walk(n.child)
		}
		for _, a := range n.actions {
			switch a.kind {
			case KindScalar, KindArray, KindMulti:
				out = append(out, a.Target())
			case KindNestedLoop:
				walk(a.loop)
			}
		}
	}
	walk(p)
	slices.Sort(out)
	return slices.Compact(out)
}

// Run executes the plan on e. It is shorthand for e.Run(ctx, p, location), so
// it excludes concurrent runs only of engines sharing e's Config.Locks.
func (p *Plan) Run(ctx context.Context, e *Engine, location string) (*Result, error) {
	return e.Run(ctx, p, location)
}

func (p *Plan) String() string {
	var sb strings.Builder
	p.describe(&sb, 0)
	return sb.String()
}

func (p *Plan) describe(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%sloop %s delay=%s\n", indent, p.sweep, p.delay)
	if p.child != nil {
		p.child.describe(sb, depth+1)
	}
	for _, a := range p.actions {
		if a.kind == KindNestedLoop {
			a.loop.describe(sb, depth+1)
			continue
		}
		fmt.Fprintf(sb, "%s  %s\n", indent, a)
	}
}
