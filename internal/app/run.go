package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/loop"
	"github.com/specialistvlad/sweepgrid/internal/monitor"
	"github.com/specialistvlad/sweepgrid/internal/sink"
	"golang.org/x/sync/errgroup"
)

// Plan binds the loaded model to the station and returns the plan together
// with its allocated (empty) result collection. No instrument is touched.
func (a *App) Plan(ctx context.Context) (*loop.Plan, *data.Set, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	plan, err := BuildPlan(a.station, a.model.Loop)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build plan: %w", err)
	}
	set, err := loop.Allocate(plan)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate plan: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Plan built.", "depth", plan.Depth(), "arrays", set.Len())
	return plan, set, nil
}

// Run executes the plan. Cancelling ctx aborts the sweep; the partial result
// is still written and returned with Aborted set.
func (a *App) Run(ctx context.Context) (*loop.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	plan, _, err := a.Plan(ctx)
	if err != nil {
		return nil, err
	}

	observer, closeObserver, err := a.observer(ctx)
	if err != nil {
		return nil, err
	}
	defer closeObserver()

	engine := loop.NewEngine(loop.Config{
		Logger:   a.logger,
		Sink:     a.sink(),
		Observer: observer,
		Locks:    a.locks,
		Enqueue:  a.config.Enqueue,
		Label:    a.label(),
	})

	var health *healthCheckServer
	if a.config.HealthcheckPort > 0 {
		if health, err = a.newHealthCheckServer(ctx, a.config.HealthcheckPort, engine); err != nil {
			return nil, err
		}
	} else {
		a.logger.Debug("Health check server not started: disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	var result *loop.Result
	g.Go(func() error {
		if health != nil {
			defer health.close(ctx)
		}
		a.logger.Info("🚀 Starting sweep...", "plan", plan.Targets())
		res, err := engine.Run(gctx, plan, a.location())
		result = res
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		a.logger.Info("🏁 Sweep finished.", "aborted", res.Aborted, "location", res.Handle.Location, "duration", res.Finished.Sub(res.Started))
		return nil
	})
	if health != nil {
		g.Go(health.serve)
	}
	err = g.Wait()
	a.logger.Debug("App.Run method finished.")
	return result, err
}

func (a *App) sink() loop.Sink {
	disk := sink.NewDisk(a.config.OutDir, "")
	disk.Extra = map[string]string{"plan": a.config.PlanPath}
	var primary sink.Sink = disk
	if a.config.UploadURL != "" {
		primary = &sink.Upload{Disk: disk, BaseURL: a.config.UploadURL}
	}
	return sink.Multi{primary, a.results}
}

// observer connects the socket.io monitor when configured. Without one, debug
// logging gets a log-backed publisher.
func (a *App) observer(ctx context.Context) (loop.Observer, func(), error) {
	if a.config.MonitorURL == "" {
		if !a.logger.Enabled(ctx, slog.LevelDebug) {
			return nil, func() {}, nil
		}
		pub := monitor.NewPublisher(monitor.LogEmitter{Logger: a.logger, Level: slog.LevelDebug}, time.Second)
		return pub, func() {}, nil
	}
	em, err := monitor.Dial(ctx, a.config.MonitorURL, monitor.DialConfig{
		Namespace:          a.config.MonitorNamespace,
		InsecureSkipVerify: a.config.MonitorInsecure,
	})
	if err != nil {
		return nil, nil, err
	}
	pub := monitor.NewPublisher(em, 0)
	return pub, func() { _ = pub.Close() }, nil
}
