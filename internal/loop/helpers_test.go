package loop

import (
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/specialistvlad/sweepgrid/internal/station"
	"github.com/specialistvlad/sweepgrid/internal/sweep"
	"github.com/stretchr/testify/require"
)

func quietEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return NewEngine(cfg)
}

func dci(t *testing.T) *instrument.Instrument {
	t.Helper()
	in, err := station.NewDummyChannelInstrument("dci")
	require.NoError(t, err)
	return in
}

func resolve[T any](t *testing.T, in *instrument.Instrument, path string) T {
	t.Helper()
	v, err := in.Resolve(path)
	require.NoError(t, err)
	out, ok := v.(T)
	require.True(t, ok, "%s resolved to %T", path, v)
	return out
}

func mustRange(t *testing.T, q instrument.Settable, start, stop, step float64) *sweep.Values {
	t.Helper()
	v, err := sweep.Range(q, start, stop, step)
	require.NoError(t, err)
	return v
}

func mustRun(t *testing.T, e *Engine, p *Plan) *Result {
	t.Helper()
	res, err := p.Run(context.Background(), e, "")
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}
