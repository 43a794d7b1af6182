package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

type fakeLister struct {
	mu    sync.Mutex
	sites []watch.Site
	err   error
	calls int
}

func (l *fakeLister) Sites(context.Context) ([]watch.Site, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.sites, l.err
}

type fakeChecker struct {
	mu        sync.Mutex
	checked   []int64
	preloads  int
	inFlight  int
	peak      int
	panicOnID int64
	block     time.Duration
}

func (c *fakeChecker) Preload(context.Context, []watch.Site) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preloads++
	return nil
}

func (c *fakeChecker) CheckSite(_ context.Context, site watch.Site) error {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	if c.block > 0 {
		time.Sleep(c.block)
	}
	if site.ID == c.panicOnID {
		panic("bad page")
	}

	c.mu.Lock()
	c.inFlight--
	c.checked = append(c.checked, site.ID)
	c.mu.Unlock()
	return nil
}

func sites(n int) []watch.Site {
	out := make([]watch.Site, n)
	for i := range out {
		out[i] = watch.Site{ID: int64(i + 1), Name: "site", URL: "https://example.com"}
	}
	return out
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func TestRunCycleChecksEverySite(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sites: sites(5)}
	checker := &fakeChecker{}
	s := New(zap.NewNop(), lister, checker, realClock{})

	s.RunCycle(context.Background())

	require.Equal(t, 1, checker.preloads)
	require.Len(t, checker.checked, 5)
}

func TestRunCycleBoundsWorkerPool(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sites: sites(8)}
	checker := &fakeChecker{block: 20 * time.Millisecond}
	s := New(zap.NewNop(), lister, checker, realClock{}, WithMaxWorkers(3))

	s.RunCycle(context.Background())

	require.Len(t, checker.checked, 8)
	require.LessOrEqual(t, checker.peak, 3)
}

func TestRunCyclePanicIsContained(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sites: sites(4)}
	checker := &fakeChecker{panicOnID: 2}
	s := New(zap.NewNop(), lister, checker, realClock{})

	require.NotPanics(t, func() { s.RunCycle(context.Background()) })
	require.Len(t, checker.checked, 3)
}

func TestRunCycleListerFailure(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{err: errors.New("api down")}
	checker := &fakeChecker{}
	s := New(zap.NewNop(), lister, checker, realClock{})

	s.RunCycle(context.Background())
	require.Zero(t, checker.preloads)
	require.Empty(t, checker.checked)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sites: sites(1)}
	checker := &fakeChecker{}
	s := New(zap.NewNop(), lister, checker, realClock{}, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	lister.mu.Lock()
	defer lister.mu.Unlock()
	require.GreaterOrEqual(t, lister.calls, 2)
}
