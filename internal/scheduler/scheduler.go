// Package scheduler wires up the cron job that periodically triggers a bump
// cycle.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is one unit of scheduled work.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler wraps robfig/cron and manages the bump loop. With a zero
// interval it degrades to a single immediate run.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *zap.SugaredLogger
	spec    string // cron spec, e.g. "@every 300s"
	running atomic.Bool
}

// New creates a Scheduler that fires every everySeconds seconds. everySeconds
// of zero means run once and stop.
func New(runner Runner, everySeconds int, log *zap.SugaredLogger) *Scheduler {
	var spec string
	if everySeconds > 0 {
		spec = fmt.Sprintf("@every %ds", everySeconds)
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		log:    log,
		spec:   spec,
	}
}

// Start runs one cycle immediately, then registers the recurring job when an
// interval is configured. The immediate run is synchronous so single-run mode
// completes before Start returns.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runCycle(ctx)

	if s.spec == "" {
		s.log.Infow("no interval configured, single run complete")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.log.Infow("cron started", "spec", s.spec)
	return nil
}

// Stop shuts the scheduler down and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Infow("cron stopped")
}

// runCycle executes one cycle, skipping the tick when the previous cycle is
// still in flight. Cycles must never overlap: two browsers driving the same
// account would double-bump postings.
func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warnw("previous cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	// A panicking cycle must not take the scheduler down with it.
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("bump cycle panicked", "panic", r)
		}
	}()

	s.log.Infow("bump cycle started")
	if err := s.runner.RunCycle(ctx); err != nil {
		s.log.Errorw("bump cycle failed", "err", err)
		return
	}
	s.log.Infow("bump cycle finished")
}
