// Package scheduler triggers pipeline runs for a fixed target list on an
// interval.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/pipeline"
)

type Config struct {
	// Interval between runs. Zero disables the scheduler.
	Interval   time.Duration     `yaml:"interval"`
	Targets    []string          `yaml:"targets"`
	SkipStages []model.StageName `yaml:"skip_stages"`
	RunOnStart bool              `yaml:"run_on_start"`
}

func DefaultConfig() Config {
	return Config{Interval: 0}
}

// Runner is the part of pipeline.Coordinator the scheduler drives.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*model.PipelineRun, error)
}

type Scheduler struct {
	cfg    Config
	runner Runner
	logger logging.Logger

	running atomic.Bool
	dropped atomic.Int64
	runs    atomic.Int64
	wg      sync.WaitGroup
}

func New(cfg Config, runner Runner, logger logging.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "scheduler"}),
	}
}

// Enabled reports whether Start would schedule anything.
func (s *Scheduler) Enabled() bool {
	return s.cfg.Interval > 0 && len(s.cfg.Targets) > 0 && s.runner != nil
}

// Start ticks until ctx is done, then waits for the in-flight run. A tick
// that lands while a run is still going is dropped.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("scheduler disabled")
		<-ctx.Done()
		return
	}
	s.logger.Info("scheduler started",
		logging.Field{Key: "interval", Value: s.cfg.Interval.String()},
		logging.Field{Key: "targets", Value: len(s.cfg.Targets)})

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	if s.cfg.RunOnStart {
		s.trigger(ctx)
	}
	for {
		select {
		case <-ticker.C:
			s.trigger(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		s.logger.Debug("tick dropped, run in flight")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		s.runs.Add(1)
		run, err := s.runner.Run(ctx, pipeline.Request{
			Targets:    s.cfg.Targets,
			SkipStages: s.cfg.SkipStages,
		})
		if err != nil {
			s.logger.Warn("scheduled run rejected", logging.Field{Key: "error", Value: err})
			return
		}
		s.logger.Debug("scheduled run finished", logging.Field{Key: "run_id", Value: run.ID})
	}()
}

// Runs is the number of runs started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Dropped is the number of ticks skipped because a run was in flight.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }
