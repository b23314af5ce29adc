package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/specialistvlad/sweepgrid/internal/runlock"
	"github.com/specialistvlad/sweepgrid/internal/sink"
)

// DefaultTickInterval is how often the Observer is ticked during waits.
const DefaultTickInterval = 50 * time.Millisecond

// Sink persists a finalized result collection.
type Sink interface {
	Write(ctx context.Context, set *data.Set, label string) (sink.Handle, error)
}

// Config holds the collaborators of an Engine. All fields are optional.
type Config struct {
	// Logger defaults to the logger carried by the run context.
	Logger *slog.Logger
	// Sink receives the result collection when a run is finalized.
	Sink Sink
	// Observer receives lifecycle callbacks and wait ticks.
	Observer Observer
	// Locks is the active-target registry. Engines that must exclude each
	// other share one; nil gives the engine a private registry.
	Locks *runlock.Registry
	// Enqueue makes a run wait for conflicting runs instead of failing.
	Enqueue bool
	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration
	// Label names the run in locations and metadata.
	Label string
}

// Result is the outcome of one run.
type Result struct {
	ID       string
	Label    string
	Data     *data.Set
	Handle   sink.Handle
	Aborted  bool
	Points   int
	Started  time.Time
	Finished time.Time
}

// Engine executes plans.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	active map[string]*Background
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg Config) *Engine {
	if cfg.Locks == nil {
		cfg.Locks = runlock.New()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Engine{cfg: cfg, active: make(map[string]*Background)}
}

// Locks returns the registry the engine acquires targets in.
func (e *Engine) Locks() *runlock.Registry { return e.cfg.Locks }

// Run executes p and blocks until it is finalized. location is passed to the
// sink as a location hint; empty lets the sink choose.
//
// An aborted run returns its partial result with Aborted set and no error. A
// driver failure returns the partial result together with a *errdefs.DriverError.
// A *errdefs.ConcurrentRunError is only raised against runs of engines sharing
// the same Config.Locks.
func (e *Engine) Run(ctx context.Context, p *Plan, location string) (*Result, error) {
	bg, err := e.Start(ctx, p, location)
	if err != nil {
		return nil, err
	}
	return bg.Wait()
}

// Start allocates p, acquires its targets and executes it on a new goroutine.
// Allocation and lock failures are returned synchronously. Targets are only
// exclusive among engines that share Config.Locks; two engines with private
// registries never see each other's runs.
func (e *Engine) Start(ctx context.Context, p *Plan, location string) (*Background, error) {
	alloc, err := allocate(p)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := e.cfg.Logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	logger = logger.With("runID", id)

	targets := p.Targets()
	release, err := e.cfg.Locks.Acquire(ctx, id, targets, e.cfg.Enqueue)
	if err != nil {
		if errors.Is(err, errdefs.ErrConcurrentRun) {
			logger.Warn("Refusing to start run, target already active.", "error", err)
		}
		return nil, err
	}

	alloc.set.ID = id
	alloc.set.Label = e.cfg.Label
	alloc.set.Location = location

	bg := &Background{id: id, halt: make(chan struct{}), done: make(chan struct{})}
	r := &run{
		engine:  e,
		id:      id,
		logger:  logger,
		alloc:   alloc,
		targets: targets,
		halt:    bg.halt,
	}

	e.mu.Lock()
	e.active[id] = bg
	e.mu.Unlock()

	go func() {
		defer close(bg.done)
		defer func() {
			release()
			e.mu.Lock()
			delete(e.active, id)
			e.mu.Unlock()
		}()
		bg.result, bg.err = r.execute(ctx)
	}()
	return bg, nil
}

// Halt asks every active run of this engine to stop at its next step boundary.
func (e *Engine) Halt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, bg := range e.active {
		bg.Halt()
	}
}

// Active returns the ids of runs currently executing on this engine.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Background is a run executing on its own goroutine.
type Background struct {
	id       string
	halt     chan struct{}
	haltOnce sync.Once
	done     chan struct{}
	result   *Result
	err      error
}

func (b *Background) ID() string { return b.id }

// Halt requests a graceful stop. It is safe to call more than once.
func (b *Background) Halt() {
	b.haltOnce.Do(func() { close(b.halt) })
}

// Done is closed once the run has been finalized.
func (b *Background) Done() <-chan struct{} { return b.done }

// Wait blocks until the run is finalized.
func (b *Background) Wait() (*Result, error) {
	<-b.done
	return b.result, b.err
}

type run struct {
	engine  *Engine
	id      string
	logger  *slog.Logger
	alloc   *allocation
	targets []string
	halt    <-chan struct{}
	done    int
}

func (r *run) observer() Observer { return r.engine.cfg.Observer }

func (r *run) execute(ctx context.Context) (*Result, error) {
	cfg := r.engine.cfg
	res := &Result{ID: r.id, Label: cfg.Label, Data: r.alloc.set, Started: time.Now()}

	r.logger.Info("Starting sweep run.", "arrays", r.alloc.set.Len(), "points", r.alloc.points)
	r.observer().RunStarted(ctx, RunInfo{
		ID:      r.id,
		Label:   cfg.Label,
		Targets: r.targets,
		Arrays:  r.alloc.set.Describe(),
		Points:  r.alloc.points,
	})

	err := r.level(ctx, r.alloc.root, nil)
	if errors.Is(err, errAborted) {
		res.Aborted = true
		err = nil
		r.logger.Warn("Sweep run aborted, keeping partial data.", "pointsDone", r.done)
	} else if err != nil {
		r.logger.Error("Sweep run failed.", "error", err)
	}
	res.Points = r.done

	// Finalization must complete even when ctx was the reason for aborting.
	fctx := context.WithoutCancel(ctx)
	if cfg.Sink != nil {
		h, werr := cfg.Sink.Write(fctx, r.alloc.set, cfg.Label)
		if werr != nil {
			r.logger.Error("Failed to write result collection.", "error", werr)
			err = errors.Join(err, fmt.Errorf("write results: %w", werr))
		}
		res.Handle = h
		if h.Location != "" {
			r.alloc.set.Location = h.Location
		}
	}
	res.Finished = time.Now()

	r.observer().RunFinished(fctx, Summary{
		RunID:    r.id,
		Aborted:  res.Aborted,
		Err:      err,
		Duration: res.Finished.Sub(res.Started),
		Location: r.alloc.set.Location,
	})
	r.logger.Info("Sweep run finished.", "aborted", res.Aborted, "pointsDone", r.done, "duration", res.Finished.Sub(res.Started))
	return res, err
}

func (r *run) wait(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d, r.engine.cfg.TickInterval, r.halt, func(until time.Time) {
		r.observer().Tick(ctx, until)
	})
}

// level runs every point of one loop level below the outer index.
func (r *run) level(ctx context.Context, n *execNode, outer []int) error {
	sv := n.plan.sweep
	name := sv.Identity().FullName()
	r.logger.Debug("Entering loop level.", "quantity", name, "outer", outer, "points", sv.Len())

	for i := 0; i < sv.Len(); i++ {
		if err := stopRequested(ctx, r.halt); err != nil {
			return err
		}
		idx := append(slices.Clone(outer), i)
		v := sv.At(i)

		if err := sv.Set(ctx, v); err != nil {
			return r.driverError(ctx, name, "set", idx, err)
		}
		if err := n.set.array.Set(idx, v); err != nil {
			return err
		}
		if err := r.wait(ctx, n.plan.delay); err != nil {
			return err
		}

		if n.child != nil {
			if err := r.level(ctx, n.child, idx); err != nil {
				return err
			}
		}
		for _, s := range n.steps {
			if err := r.step(ctx, s, idx); err != nil {
				return err
			}
		}

		r.done++
		r.observer().PointDone(ctx, Progress{RunID: r.id, Index: idx, Done: r.done, Total: r.alloc.points})
	}
	return nil
}

func (r *run) step(ctx context.Context, s *execStep, idx []int) error {
	a := s.action
	switch a.kind {
	case KindScalar:
		v, err := a.scalar.Get(ctx)
		if err != nil {
			return r.driverError(ctx, a.Target(), "get", idx, err)
		}
		return s.outputs[0].array.Set(idx, v)

	case KindArray:
		vals, err := a.array.GetArray(ctx)
		if err != nil {
			return r.driverError(ctx, a.Target(), "get", idx, err)
		}
		if err := checkShape(a.array.Shape(), vals); err != nil {
			return r.driverError(ctx, a.Target(), "get", idx, err)
		}
		if err := writeOutput(s.outputs[0], s.inner[0], idx, vals); err != nil {
			return r.driverError(ctx, a.Target(), "get", idx, err)
		}
		return nil

	case KindMulti:
		vals, err := a.multi.GetMulti(ctx)
		if err != nil {
			return r.driverError(ctx, a.Target(), "get", idx, err)
		}
		if len(vals) != len(s.outputs) {
			return r.driverError(ctx, a.Target(), "get", idx,
				fmt.Errorf("got %d outputs, want %d: %w", len(vals), len(s.outputs), instrument.ErrShapeMismatch))
		}
		members := a.multi.Members()
		for i, out := range s.outputs {
			if err := checkShape(members[i].Shape, vals[i]); err != nil {
				return r.driverError(ctx, a.Target(), "get", idx, fmt.Errorf("member %s: %w", members[i].Name, err))
			}
			if err := writeOutput(out, s.inner[i], idx, vals[i]); err != nil {
				return r.driverError(ctx, a.Target(), "get", idx, err)
			}
		}
		return nil

	case KindNestedLoop:
		return r.level(ctx, s.nested, idx)

	case KindTask:
		if err := a.task.Fn(ctx); err != nil {
			return r.driverError(ctx, a.Target(), "call", idx, err)
		}
		return nil

	case KindWait:
		return r.wait(ctx, a.delay)
	}
	return fmt.Errorf("unknown action kind %s", a.kind)
}

func writeOutput(out *slot, inner []*slot, idx []int, vals []float64) error {
	for _, sp := range inner {
		if err := sp.array.Set(idx, sp.fill...); err != nil {
			return err
		}
	}
	return out.array.SetBlock(idx, vals)
}

// checkShape rejects a measured block whose length does not match shape.
func checkShape(shape []int, vals []float64) error {
	if want := instrument.Size(shape); len(vals) != want {
		return fmt.Errorf("got %d values for shape %v, want %d: %w", len(vals), shape, want, instrument.ErrShapeMismatch)
	}
	return nil
}

// driverError wraps a collaborator failure. A failure caused by the run being
// cancelled is reported as an abort instead.
func (r *run) driverError(ctx context.Context, target, op string, idx []int, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return errAborted
	}
	r.logger.Error("Driver operation failed.", "target", target, "op", op, "index", idx, "error", err)
	return &errdefs.DriverError{Target: target, Op: op, Index: slices.Clone(idx), Err: err}
}
