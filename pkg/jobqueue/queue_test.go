package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, runner Runner) *Queue {
	t.Helper()
	q, err := New(Options{
		Store:   NewStore(t.TempDir()),
		Runner:  runner,
		Workers: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestSubmitRunsJob(t *testing.T) {
	var ran atomic.Int32
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		ran.Add(1)
		assert.Equal(t, "pkg", record.Name)
		assert.Equal(t, "1.0.0", record.Version)
		assert.Equal(t, "x", manifest["k"])
		return nil
	})

	record, created, err := q.Submit(Submission{Name: "pkg", Version: "1.0.0", Manifest: map[string]any{"k": "x"}})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "pkg@1.0.0", record.ID)

	final, err := q.Wait(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
	assert.Empty(t, final.FailureReason)
	assert.Equal(t, int32(1), ran.Load())
	require.NotNil(t, final.EndedAt)
}

func TestSubmitDeduplicatesConcurrent(t *testing.T) {
	release := make(chan struct{})
	var ran atomic.Int32
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		ran.Add(1)
		<-release
		return nil
	})

	const callers = 16
	ids := make([]string, callers)
	createdCount := atomic.Int32{}

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record, created, err := q.Submit(Submission{Name: "pkg", Version: "2.3.1"})
			require.NoError(t, err)
			if created {
				createdCount.Add(1)
			}
			ids[i] = record.ID
		}(i)
	}
	wg.Wait()
	close(release)

	// Exactly one job was created and every caller observed the same id.
	assert.Equal(t, int32(1), createdCount.Load())
	for _, id := range ids {
		assert.Equal(t, "pkg@2.3.1", id)
	}

	final, err := q.Wait(context.Background(), "pkg@2.3.1")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, int32(1), ran.Load())
}

func TestSubmitAfterTerminalStartsFresh(t *testing.T) {
	var calls atomic.Int32
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		if calls.Add(1) == 1 {
			return errors.New("build timeout")
		}
		return nil
	})

	first, created, err := q.Submit(Submission{Name: "pkgC", Version: "0.1.0"})
	require.NoError(t, err)
	assert.True(t, created)

	final, err := q.Wait(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)
	assert.Equal(t, "build timeout", final.FailureReason)

	second, created, err := q.Submit(Submission{Name: "pkgC", Version: "0.1.0"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.RunID, second.RunID)

	final, err = q.Wait(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
}

func TestCloseDrainsInFlightJobs(t *testing.T) {
	started := make(chan struct{})
	q, err := New(Options{
		Store: NewStore(t.TempDir()),
		Runner: func(ctx context.Context, record *Record, manifest map[string]any) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			// The job context stays live through shutdown.
			return ctx.Err()
		},
		Workers: 1,
	})
	require.NoError(t, err)

	record, _, err := q.Submit(Submission{Name: "pkg", Version: "1.0.0"})
	require.NoError(t, err)

	<-started
	require.NoError(t, q.Close())

	final, err := q.Status(record.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
}

func TestStatusUnknownID(t *testing.T) {
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		return nil
	})

	_, err := q.Status("nope@1.0.0")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestWaitRespectsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		<-release
		return nil
	})

	_, _, err := q.Submit(Submission{Name: "slow", Version: "1.0.0"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Wait(ctx, "slow@1.0.0")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReap(t *testing.T) {
	q := newTestQueue(t, func(ctx context.Context, record *Record, manifest map[string]any) error {
		return nil
	})

	record, _, err := q.Submit(Submission{Name: "old", Version: "1.0.0"})
	require.NoError(t, err)
	_, err = q.Wait(context.Background(), record.ID)
	require.NoError(t, err)

	// Cutoff in the future reaps the finished job.
	assert.Equal(t, 1, q.Reap(time.Now().Add(time.Minute)))

	_, err = q.Status(record.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	now := time.Now().UTC().Truncate(time.Second)
	record := &Record{
		ID:        "@types/node@20.1.0",
		Name:      "@types/node",
		Version:   "20.1.0",
		State:     StateQueued,
		CreatedAt: now,
	}
	require.NoError(t, store.Write(record))

	got, err := store.Get("@types/node@20.1.0")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, StateQueued, got.State)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, record.ID, list[0].ID)

	require.NoError(t, store.Delete(record.ID))
	_, err = store.Get(record.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	q, err := New(Options{
		Store:   NewStore(t.TempDir()),
		Runner:  func(ctx context.Context, record *Record, manifest map[string]any) error { <-block; return nil },
		Workers: 1,
		Buffer:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	// Fill the single worker plus the single buffer slot.
	_, _, err = q.Submit(Submission{Name: "a", Version: "1"})
	require.NoError(t, err)

	// Give the worker a chance to pick up the first job.
	require.Eventually(t, func() bool {
		r, err := q.Status("a@1")
		return err == nil && r.State == StateActive
	}, time.Second, 5*time.Millisecond)

	_, _, err = q.Submit(Submission{Name: "b", Version: "1"})
	require.NoError(t, err)

	_, _, err = q.Submit(Submission{Name: "c", Version: "1"})
	assert.ErrorIs(t, err, ErrQueueFull)
}
