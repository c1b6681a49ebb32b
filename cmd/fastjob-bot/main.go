// fastjob-bot — keeps an employer's FastJobs postings at the top of the
// listing by re-running the portal's paid "bump" action on a schedule.
//
// Each cycle launches a browser, restores the saved session, discovers the
// postings on the listing page and drives the bump confirmation dialog per
// posting. Outcomes and reconciled coin spend are recorded durably; a small
// read-only HTTP API serves the recorded history.
//
// DRY_RUN defaults to true: the bot observes and records what it would do
// without ever clicking confirm.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
	"github.com/SKUMP0/fastjob-bot/internal/bump"
	"github.com/SKUMP0/fastjob-bot/internal/config"
	"github.com/SKUMP0/fastjob-bot/internal/dashboard"
	"github.com/SKUMP0/fastjob-bot/internal/events"
	"github.com/SKUMP0/fastjob-bot/internal/logger"
	"github.com/SKUMP0/fastjob-bot/internal/scheduler"
	"github.com/SKUMP0/fastjob-bot/internal/session"
	"github.com/SKUMP0/fastjob-bot/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(os.Getenv("LOG_JSON") == "true", os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infow("fastjob-bot starting",
		"version", version, "dryRun", cfg.DryRun, "everySeconds", cfg.EverySeconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ─────────────────────────────────────────────────────────────
	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.OpenPostgres(ctx, cfg.DatabaseURL, log)
	} else {
		st, err = store.OpenSQLite(cfg.DBPath, log)
	}
	if err != nil {
		log.Fatalw("opening store failed", "err", err)
	}
	defer st.Close()

	// ── Events (optional) ───────────────────────────────────────────────────
	var publisher bump.Publisher
	if cfg.RedisURL != "" {
		pub, err := events.NewRedisPublisher(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatalw("connecting to Redis failed", "err", err)
		}
		defer pub.Close()
		publisher = pub
		log.Infow("redis event publishing enabled")
	}

	// ── Dashboard (optional) ────────────────────────────────────────────────
	var srv *http.Server
	if cfg.DashboardPort != "" {
		mux := http.NewServeMux()
		dashboard.NewHandler(st, log, version).RegisterRoutes(mux)

		srv = &http.Server{
			Addr:         ":" + cfg.DashboardPort,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Infow("dashboard listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalw("dashboard server error", "err", err)
			}
		}()
	}

	// ── Orchestrator ────────────────────────────────────────────────────────
	orch := &bump.Orchestrator{
		Launcher: &browser.ChromeLauncher{Headless: cfg.Headless, Log: log},
		Store:    st,
		Session: &session.Manager{
			StateFile: cfg.StorageState,
			LoginURL:  cfg.LoginURL,
			Email:     cfg.Email,
			Password:  cfg.Password,
			Log:       log,
		},
		Events:    publisher,
		BaseURL:   cfg.BaseURL,
		DataDir:   cfg.DataDir,
		CompanyID: cfg.CompanyID,
		DryRun:    cfg.DryRun,
		LimitJobs: cfg.LimitJobs,
		Timeouts:  bump.DefaultTimeouts(),
		Log:       log,
	}

	sched := scheduler.New(orch, cfg.EverySeconds, log)
	if err := sched.Start(ctx); err != nil {
		log.Fatalw("starting scheduler failed", "err", err)
	}

	if cfg.EverySeconds == 0 && cfg.DashboardPort == "" {
		log.Infow("single run done, exiting")
		return
	}

	// ── Graceful shutdown ───────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")
	cancel()
	sched.Stop()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("dashboard shutdown error", "err", err)
		}
	}
	log.Infow("stopped")
}
