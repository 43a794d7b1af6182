// Package scheduler drives the continuous poll loop: it refreshes the
// site list every cycle and fans checks out over a bounded worker pool.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/metrics"
	"github.com/rofanlabs/sitewatch/internal/watch"
)

const (
	defaultInterval   = 2 * time.Second
	defaultMaxWorkers = 10
)

// Checker is the per-site pipeline the scheduler dispatches to.
type Checker interface {
	Preload(ctx context.Context, sites []watch.Site) error
	CheckSite(ctx context.Context, site watch.Site) error
}

// SiteLister supplies the current monitoring roster.
type SiteLister interface {
	Sites(ctx context.Context) ([]watch.Site, error)
}

// Scheduler runs check cycles until its context is canceled. The site
// list is re-fetched every cycle so sites can be added or retired without
// a restart.
type Scheduler struct {
	log        *zap.Logger
	lister     SiteLister
	checker    Checker
	clock      watch.Clock
	interval   time.Duration
	maxWorkers int
}

// Option tunes a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the pause between cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxWorkers overrides the worker pool ceiling.
func WithMaxWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// New creates a scheduler polling every 2 seconds with at most 10 workers.
func New(log *zap.Logger, lister SiteLister, checker Checker, clock watch.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:        log,
		lister:     lister,
		checker:    checker,
		clock:      clock,
		interval:   defaultInterval,
		maxWorkers: defaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops cycles until ctx is canceled and returns the cancellation
// cause. A cycle always runs to completion once started.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one pass over every monitored site.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	log := s.log.With(zap.String("cycle_id", cycleID))
	start := s.clock.Now()

	sites, err := s.lister.Sites(ctx)
	if err != nil {
		log.Error("site list refresh failed", zap.Error(err))
		return
	}
	metrics.SitesGauge.Set(float64(len(sites)))
	if len(sites) == 0 {
		log.Debug("no sites configured")
		return
	}

	if err := s.checker.Preload(ctx, sites); err != nil {
		log.Warn("snapshot preload failed", zap.Error(err))
	}

	workers := s.maxWorkers
	if len(sites) < workers {
		workers = len(sites)
	}

	jobs := make(chan watch.Site)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for site := range jobs {
				s.checkSite(ctx, log, site)
			}
		}()
	}

dispatch:
	for _, site := range sites {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- site:
		}
	}
	close(jobs)
	wg.Wait()

	metrics.CyclesTotal.Inc()
	log.Info("cycle complete",
		zap.Int("sites", len(sites)),
		zap.Duration("took", s.clock.Now().Sub(start)))
}

// checkSite runs one check and contains any panic so a single bad page
// cannot take the loop down.
func (s *Scheduler) checkSite(ctx context.Context, log *zap.Logger, site watch.Site) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ChecksTotal.WithLabelValues(metrics.OutcomePanic).Inc()
			log.Error("site check panicked",
				zap.Int64("site_id", site.ID),
				zap.String("site", site.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	start := s.clock.Now()
	err := s.checker.CheckSite(ctx, site)
	metrics.CheckDuration.Observe(s.clock.Now().Sub(start).Seconds())
	if err != nil {
		metrics.ChecksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		log.Error("site check failed",
			zap.Int64("site_id", site.ID),
			zap.String("site", site.Name),
			zap.Error(err))
		return
	}
	metrics.ChecksTotal.WithLabelValues(metrics.OutcomeOK).Inc()
}
