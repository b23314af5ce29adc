package runlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.Acquire(ctx, "run-1", []string{"dci_p1", "dci_ChanA_temperature", "dci_p1"}, false)
	require.NoError(t, err)

	owner, ok := r.Owner("dci_p1")
	require.True(t, ok)
	assert.Equal(t, "run-1", owner)
	assert.Equal(t, map[string][]string{"run-1": {"dci_ChanA_temperature", "dci_p1"}}, r.Snapshot())

	release()
	release()
	_, ok = r.Owner("dci_p1")
	assert.False(t, ok)
	assert.Empty(t, r.Snapshot())
}

func TestConflictRollsBack(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.Acquire(ctx, "run-1", []string{"b"}, false)
	require.NoError(t, err)
	defer release()

	// "a" sorts before "b" so it is taken first and must be rolled back.
	_, err = r.Acquire(ctx, "run-2", []string{"a", "b"}, false)
	require.ErrorIs(t, err, errdefs.ErrConcurrentRun)

	var cre *errdefs.ConcurrentRunError
	require.ErrorAs(t, err, &cre)
	assert.Equal(t, "b", cre.Target)
	assert.Equal(t, "run-1", cre.Owner)

	_, held := r.Owner("a")
	assert.False(t, held)
}

func TestWaitBlocksUntilReleased(t *testing.T) {
	r := New()
	ctx := context.Background()

	release, err := r.Acquire(ctx, "run-1", []string{"x"}, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		rel, err := r.Acquire(ctx, "run-2", []string{"x"}, true)
		if err == nil {
			close(acquired)
			rel()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second run acquired a held target")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second run never acquired the released target")
	}
	wg.Wait()
}

func TestWaitHonoursContext(t *testing.T) {
	r := New()
	release, err := r.Acquire(context.Background(), "run-1", []string{"x"}, false)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(ctx, "run-2", []string{"x"}, true)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRolledBackLeaseWakesWaiters(t *testing.T) {
	r := New()
	release, err := r.Acquire(context.Background(), "run-c", []string{"b"}, false)
	require.NoError(t, err)
	defer release()

	l := &lease{owner: "run-a", done: make(chan struct{})}
	held, c := r.tryAcquire([]string{"a", "b"}, l)
	require.NotNil(t, c)
	assert.Nil(t, held)
	assert.Equal(t, "b", c.target)
	_, ok := r.Owner("a")
	assert.False(t, ok)
	select {
	case <-l.done:
	default:
		t.Fatal("rolled-back lease was left open")
	}
}

func TestWaitersOnOverlappingTargetsMakeProgress(t *testing.T) {
	r := New()
	hold, err := r.Acquire(context.Background(), "run-c", []string{"b"}, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := r.Acquire(ctx, "run-a", []string{"a", "b"}, true)
			if err == nil {
				release()
			}
			errs <- err
		}()
		go func() {
			defer wg.Done()
			release, err := r.Acquire(ctx, "run-b", []string{"a"}, true)
			if err == nil {
				release()
			}
			errs <- err
		}()
	}
	time.Sleep(5 * time.Millisecond)
	hold()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Empty(t, r.Snapshot())
}
