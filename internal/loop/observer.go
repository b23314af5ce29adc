package loop

import (
	"context"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/data"
)

// RunInfo describes a run that is about to start.
type RunInfo struct {
	ID      string
	Label   string
	Targets []string
	Arrays  []data.Description
	Points  int
}

// Progress is reported after every completed point of every loop level.
type Progress struct {
	RunID string
	Index []int
	Done  int
	Total int
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Aborted  bool
	Err      error
	Duration time.Duration
	Location string
}

// Observer receives run lifecycle callbacks. Tick is called repeatedly while
// the engine waits, with the time the wait will end. Callbacks run on the
// engine goroutine and must not block for long.
type Observer interface {
	RunStarted(ctx context.Context, info RunInfo)
	Tick(ctx context.Context, until time.Time)
	PointDone(ctx context.Context, p Progress)
	RunFinished(ctx context.Context, s Summary)
}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (o Observers) RunStarted(ctx context.Context, info RunInfo) {
	for _, obs := range o {
		obs.RunStarted(ctx, info)
	}
}

func (o Observers) Tick(ctx context.Context, until time.Time) {
	for _, obs := range o {
		obs.Tick(ctx, until)
	}
}

func (o Observers) PointDone(ctx context.Context, p Progress) {
	for _, obs := range o {
		obs.PointDone(ctx, p)
	}
}

func (o Observers) RunFinished(ctx context.Context, s Summary) {
	for _, obs := range o {
		obs.RunFinished(ctx, s)
	}
}

type nopObserver struct{}

func (nopObserver) RunStarted(context.Context, RunInfo)  {}
func (nopObserver) Tick(context.Context, time.Time)      {}
func (nopObserver) PointDone(context.Context, Progress)  {}
func (nopObserver) RunFinished(context.Context, Summary) {}
