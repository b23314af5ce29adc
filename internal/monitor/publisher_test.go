package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/data"
	"github.com/specialistvlad/sweepgrid/internal/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	name    string
	payload map[string]any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []event
	err    error
	closed bool
}

func (f *fakeEmitter) Emit(name string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{name, payload})
	return f.err
}

func (f *fakeEmitter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeEmitter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.name
	}
	return out
}

func TestPublisherLifecycle(t *testing.T) {
	em := &fakeEmitter{}
	p := NewPublisher(em, time.Second)
	ctx := context.Background()

	p.RunStarted(ctx, loop.RunInfo{
		ID:     "r1",
		Label:  "cooldown",
		Points: 4,
		Arrays: []data.Description{{Name: "x_set", Dims: []int{4}, Setpoint: true}},
	})
	p.PointDone(ctx, loop.Progress{RunID: "r1", Index: []int{0}, Done: 1, Total: 4})
	p.RunFinished(ctx, loop.Summary{RunID: "r1", Err: errors.New("boom"), Duration: 1500 * time.Millisecond, Location: "2026-01-01/run"})

	require.Equal(t, []string{EventRunStarted, EventProgress, EventRunFinished}, em.names())

	started := em.events[0].payload
	assert.Equal(t, "r1", started["run_id"])
	assert.Equal(t, 4, started["points"])
	arrays := started["arrays"].([]map[string]any)
	require.Len(t, arrays, 1)
	assert.Equal(t, "x_set", arrays[0]["name"])

	assert.InDelta(t, 0.25, em.events[1].payload["fraction"], 1e-12)

	finished := em.events[2].payload
	assert.Equal(t, "boom", finished["error"])
	assert.Equal(t, int64(1500), finished["duration_ms"])
}

func TestTicksAreThrottled(t *testing.T) {
	em := &fakeEmitter{}
	p := NewPublisher(em, 100*time.Millisecond)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()
	until := now.Add(time.Second)

	p.Tick(ctx, until)
	now = now.Add(50 * time.Millisecond)
	p.Tick(ctx, until)
	now = now.Add(60 * time.Millisecond)
	p.Tick(ctx, until)

	require.Equal(t, []string{EventTick, EventTick}, em.names())
	assert.Equal(t, int64(890), em.events[1].payload["remaining_ms"])
}

func TestEmitErrorsDoNotPanic(t *testing.T) {
	em := &fakeEmitter{err: errors.New("socket gone")}
	p := NewPublisher(em, 0)
	assert.NotPanics(t, func() {
		p.PointDone(context.Background(), loop.Progress{})
	})
	require.NoError(t, p.Close())
	assert.True(t, em.closed)
}

func TestDialRejectsRelativeURL(t *testing.T) {
	_, err := Dial(context.Background(), "/socket.io", DialConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")
}
