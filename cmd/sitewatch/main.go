// Command sitewatch polls listing pages for roster and contact changes
// and reports them to the backend API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/backend"
	"github.com/rofanlabs/sitewatch/internal/clock/system"
	"github.com/rofanlabs/sitewatch/internal/config"
	"github.com/rofanlabs/sitewatch/internal/extract"
	"github.com/rofanlabs/sitewatch/internal/fetch"
	"github.com/rofanlabs/sitewatch/internal/hash/sha256"
	"github.com/rofanlabs/sitewatch/internal/logging"
	"github.com/rofanlabs/sitewatch/internal/metrics"
	"github.com/rofanlabs/sitewatch/internal/pidlock"
	"github.com/rofanlabs/sitewatch/internal/scheduler"
	"github.com/rofanlabs/sitewatch/internal/tracker"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	lock, err := pidlock.Acquire(cfg.PidFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	rules, err := extract.NewRules(cfg.Rules)
	if err != nil {
		return err
	}
	session, err := fetch.LoadSession(cfg.SessionFile)
	if err != nil {
		return err
	}

	api := backend.New(cfg.APIBaseURL, cfg.APIToken, logger)
	fetcher := fetch.New(logger, rules, fetch.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Session:   session,
	})
	clk := system.New()
	track := tracker.New(logger, fetcher, api, sha256.New(), clk, rules)
	sched := scheduler.New(logger, api, track, clk,
		scheduler.WithInterval(cfg.Interval),
		scheduler.WithMaxWorkers(cfg.MaxWorkers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Router()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("sitewatch starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("interval", cfg.Interval),
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.String("metrics_addr", cfg.MetricsAddr))

	err = sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(serr))
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("sitewatch stopped")
		return nil
	}
	return err
}
