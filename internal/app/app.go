package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/runlock"
	"github.com/specialistvlad/sweepgrid/internal/sink"
	"github.com/specialistvlad/sweepgrid/internal/station"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger  *slog.Logger
	config  *Config
	station *station.Station
	model   *config.Model
	locks   *runlock.Registry
	results *sink.Memory
}

// NewApp is the constructor for the main application. It builds an isolated
// logger, loads the station and the plan model. Nothing is bound to
// instruments until Plan or Run is called.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	st, err := loadStation(appConfig.StationPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Station loaded.", "instruments", st.Names())

	model, err := loader.Load(ctx, appConfig.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if model.Run == nil {
		model.Run = &config.RunSettings{}
	}
	logger.Debug("Plan loaded and translated into unified model.", "depth", model.Loop.Depth())

	return &App{
		logger:  logger,
		config:  appConfig,
		station: st,
		model:   model,
		locks:   runlock.New(),
		results: &sink.Memory{},
	}, nil
}

// loadStation reads the YAML inventory, or returns the built-in station with
// one dummy channel instrument "dci" when path is empty.
func loadStation(path string) (*station.Station, error) {
	if path != "" {
		return station.Load(path)
	}
	st := station.New()
	dci, err := station.NewDummyChannelInstrument("dci")
	if err != nil {
		return nil, err
	}
	if err := st.Add(dci); err != nil {
		return nil, err
	}
	st.SetDefaultMeasurement("dci.channels.temperature")
	return st, nil
}

// Station returns the loaded station. This is primarily for testing.
func (a *App) Station() *station.Station { return a.station }

// Model returns the loaded plan model.
func (a *App) Model() *config.Model { return a.model }

// Results returns every collection written by this app, in run order.
func (a *App) Results() *sink.Memory { return a.results }

func (a *App) label() string {
	if a.config.Label != "" {
		return a.config.Label
	}
	return a.model.Run.Label
}

func (a *App) location() string {
	if a.config.Location != "" {
		return a.config.Location
	}
	return a.model.Run.Location
}
