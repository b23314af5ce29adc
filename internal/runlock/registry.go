package runlock

import (
	"context"
	"slices"
	"sync"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
)

type lease struct {
	owner string
	done  chan struct{}
}

// Registry is an in-memory set of active targets.
type Registry struct {
	leases sync.Map // Key: target full name, Value: *lease
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Acquire takes a lease on every target for owner. With wait set, a conflict
// blocks until the holder releases or ctx is done; otherwise it fails with a
// *errdefs.ConcurrentRunError naming the first conflicting target.
//
// The returned release function is idempotent.
func (r *Registry) Acquire(ctx context.Context, owner string, targets []string, wait bool) (func(), error) {
	targets = dedupe(targets)
	for {
		l := &lease{owner: owner, done: make(chan struct{})}
		held, conflict := r.tryAcquire(targets, l)
		if conflict == nil {
			var once sync.Once
			return func() {
				once.Do(func() {
					for _, t := range held {
						r.leases.CompareAndDelete(t, l)
					}
					close(l.done)
				})
			}, nil
		}

		if !wait {
			return nil, &errdefs.ConcurrentRunError{Target: conflict.target, Owner: conflict.lease.owner}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-conflict.lease.done:
		}
	}
}

type conflict struct {
	target string
	lease  *lease
}

func (r *Registry) tryAcquire(targets []string, l *lease) ([]string, *conflict) {
	held := make([]string, 0, len(targets))
	for _, t := range targets {
		existing, loaded := r.leases.LoadOrStore(t, l)
		if loaded {
			for _, h := range held {
				r.leases.CompareAndDelete(h, l)
			}
			// Wake anyone who saw l on a rolled-back target.
			close(l.done)
			return nil, &conflict{target: t, lease: existing.(*lease)}
		}
		held = append(held, t)
	}
	return held, nil
}

// Owner returns the run currently holding target.
func (r *Registry) Owner(target string) (string, bool) {
	v, ok := r.leases.Load(target)
	if !ok {
		return "", false
	}
	return v.(*lease).owner, true
}

// Snapshot returns the active targets grouped by owning run.
func (r *Registry) Snapshot() map[string][]string {
	out := make(map[string][]string)
	r.leases.Range(func(k, v any) bool {
		owner := v.(*lease).owner
		out[owner] = append(out[owner], k.(string))
		return true
	})
	for _, targets := range out {
		slices.Sort(targets)
	}
	return out
}

func dedupe(targets []string) []string {
	out := slices.Clone(targets)
	slices.Sort(out)
	return slices.Compact(out)
}
