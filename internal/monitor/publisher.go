// Package monitor publishes sweep progress to a socket.io server so that live
// dashboards can follow a run.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/loop"
)

// Event names emitted by a Publisher.
const (
	EventRunStarted  = "run_started"
	EventProgress    = "progress"
	EventTick        = "tick"
	EventRunFinished = "run_finished"
)

// DefaultTickInterval limits how often wait ticks are forwarded.
const DefaultTickInterval = 250 * time.Millisecond

// Emitter sends one event with a JSON-compatible payload.
type Emitter interface {
	Emit(event string, payload map[string]any) error
	Close() error
}

// Publisher forwards engine callbacks to an Emitter. It implements
// loop.Observer. Emit failures are logged and never interrupt the run.
type Publisher struct {
	emitter      Emitter
	tickInterval time.Duration

	mu       sync.Mutex
	lastTick time.Time
	runID    string
	now      func() time.Time
}

var _ loop.Observer = (*Publisher)(nil)

// NewPublisher wraps an emitter. tickInterval <= 0 uses DefaultTickInterval.
func NewPublisher(em Emitter, tickInterval time.Duration) *Publisher {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Publisher{emitter: em, tickInterval: tickInterval, now: time.Now}
}

func (p *Publisher) emit(ctx context.Context, event string, payload map[string]any) {
	if err := p.emitter.Emit(event, payload); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish monitor event.", "event", event, "error", err)
	}
}

func (p *Publisher) RunStarted(ctx context.Context, info loop.RunInfo) {
	p.mu.Lock()
	p.runID = info.ID
	p.lastTick = time.Time{}
	p.mu.Unlock()

	arrays := make([]map[string]any, len(info.Arrays))
	for i, a := range info.Arrays {
		arrays[i] = map[string]any{"name": a.Name, "dims": a.Dims, "setpoint": a.Setpoint}
	}
	p.emit(ctx, EventRunStarted, map[string]any{
		"run_id":  info.ID,
		"label":   info.Label,
		"targets": info.Targets,
		"points":  info.Points,
		"arrays":  arrays,
	})
}

// Tick forwards at most one tick per interval.
func (p *Publisher) Tick(ctx context.Context, until time.Time) {
	p.mu.Lock()
	now := p.now()
	if !p.lastTick.IsZero() && now.Sub(p.lastTick) < p.tickInterval {
		p.mu.Unlock()
		return
	}
	p.lastTick = now
	runID := p.runID
	p.mu.Unlock()

	remaining := max(until.Sub(now), 0)
	p.emit(ctx, EventTick, map[string]any{
		"run_id":       runID,
		"until":        until.UTC().Format(time.RFC3339Nano),
		"remaining_ms": remaining.Milliseconds(),
	})
}

func (p *Publisher) PointDone(ctx context.Context, pr loop.Progress) {
	fraction := 0.0
	if pr.Total > 0 {
		fraction = float64(pr.Done) / float64(pr.Total)
	}
	p.emit(ctx, EventProgress, map[string]any{
		"run_id":   pr.RunID,
		"index":    pr.Index,
		"done":     pr.Done,
		"total":    pr.Total,
		"fraction": fraction,
	})
}

func (p *Publisher) RunFinished(ctx context.Context, s loop.Summary) {
	payload := map[string]any{
		"run_id":      s.RunID,
		"aborted":     s.Aborted,
		"duration_ms": s.Duration.Milliseconds(),
		"location":    s.Location,
	}
	if s.Err != nil {
		payload["error"] = s.Err.Error()
	}
	p.emit(ctx, EventRunFinished, payload)
}

// Close closes the underlying emitter.
func (p *Publisher) Close() error {
	return p.emitter.Close()
}

// LogEmitter writes events to a logger instead of a socket.
type LogEmitter struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (l LogEmitter) Emit(event string, payload map[string]any) error {
	if l.Logger == nil {
		return errors.New("monitor: log emitter has no logger")
	}
	l.Logger.Log(context.Background(), l.Level, "Monitor event.", "event", event, "payload", payload)
	return nil
}

func (LogEmitter) Close() error { return nil }
