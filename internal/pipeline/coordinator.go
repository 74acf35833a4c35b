// Package pipeline runs the four-stage observation pipeline: fetch targets,
// diff each snapshot against its predecessor, analyze the batch and report.
// Stage failures are recorded on the run; they never abort it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/diff"
	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/notify"
	"github.com/raysh454/observer/internal/report"
	"github.com/raysh454/observer/internal/tracker"
)

var (
	ErrNoTargets    = errors.New("pipeline: at least one target is required")
	ErrUnknownStage = errors.New("pipeline: unknown stage")
)

// Fetcher fetches every target, capturing per-target failures in the
// returned snapshots. An error means fetching could not run at all.
type Fetcher interface {
	FetchAll(ctx context.Context, targets []string) ([]*model.Snapshot, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, b analyzer.Batch) analyzer.Outcome
}

// RunSink receives every completed run.
type RunSink interface {
	Save(ctx context.Context, run *model.PipelineRun) error
}

// Deps are the collaborators a Coordinator drives. Snapshots, Diffs,
// Notifier, Sink and Metrics are optional.
type Deps struct {
	Fetcher   Fetcher
	Snapshots *tracker.SnapshotStore
	Diffs     *tracker.DiffStore
	Engine    *diff.Engine
	Analyzer  Analyzer
	Reporter  report.Reporter
	Notifier  notify.Notifier
	Sink      RunSink
	Metrics   *Metrics
}

// Request asks for one run over Targets, skipping the named stages.
type Request struct {
	Targets    []string          `json:"targets"`
	SkipStages []model.StageName `json:"skip_stages"`
}

type Coordinator struct {
	cfg     Config
	deps    Deps
	history *History
	hub     *Hub
	logger  logging.Logger
}

func NewCoordinator(cfg Config, deps Deps, logger logging.Logger) *Coordinator {
	cfg = cfg.withDefaults()
	if deps.Engine == nil {
		deps.Engine = diff.NewEngine(diff.DefaultThresholds())
	}
	return &Coordinator{
		cfg:     cfg,
		deps:    deps,
		history: NewHistory(cfg.HistoryCapacity),
		hub:     NewHub(64),
		logger:  logging.OrNop(logger).With(logging.Field{Key: "component", Value: "pipeline"}),
	}
}

func (c *Coordinator) History() *History { return c.history }

// Subscribe streams run events; call the returned function to stop.
func (c *Coordinator) Subscribe() (<-chan RunEvent, func()) { return c.hub.Subscribe() }

// runState carries stage outputs forward within one run.
type runState struct {
	targets   []string
	snapshots []*model.Snapshot
	diffs     []*model.DiffResult
	analysis  *model.AnalysisResult
}

// stageOutput is what a stage hands back: the payload recorded on the
// run plus whatever later stages consume.
type stageOutput struct {
	record    any
	snapshots []*model.Snapshot
	diffs     []*model.DiffResult
	analysis  *model.AnalysisResult
}

// stageFunc receives a copy of the run state so an abandoned stage never
// races with the run loop.
type stageFunc func(ctx context.Context, st runState) (stageOutput, error)

// Run executes one pipeline run and returns it once every stage has
// resolved. Only request validation errors are returned; stage failures
// are recorded on the run.
func (c *Coordinator) Run(ctx context.Context, req Request) (*model.PipelineRun, error) {
	targets, skip, err := validate(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		Timestamp: started.UTC(),
		Targets:   targets,
		Stages:    make([]model.StageResult, len(StageOrder)),
	}
	for i, name := range StageOrder {
		run.Stages[i] = model.StageResult{Name: name, Status: model.StagePending}
	}

	logger := c.logger.With(logging.Field{Key: "run_id", Value: run.ID})
	logger.Info("pipeline run started",
		logging.Field{Key: "targets", Value: len(targets)},
		logging.Field{Key: "skip", Value: req.SkipStages})
	c.hub.Publish(RunEvent{RunID: run.ID, Type: EventRunStarted, Timestamp: run.Timestamp, Targets: targets})

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.RunDeadline)
	defer cancel()

	st := &runState{targets: targets}
	for i, name := range StageOrder {
		stage := &run.Stages[i]

		if reason := c.skipReason(runCtx, name, skip, st); reason != "" {
			c.resolve(logger, stage, model.StageSkipped)
			stage.Reason = reason
			c.publishStage(run.ID, stage)
			continue
		}

		out, ok := c.exec(runCtx, logger, run, stage, c.stageFunc(name, run.ID), c.stageTimeout(name), *st)
		if !ok {
			continue
		}
		if out.snapshots != nil {
			st.snapshots = out.snapshots
		}
		if out.diffs != nil {
			st.diffs = out.diffs
		}
		if out.analysis != nil {
			st.analysis = out.analysis
			c.notify(runCtx, logger, out.analysis)
		}
	}

	run.Summary = summarize(run, st, time.Since(started))
	c.history.Push(run)
	c.deps.Metrics.observeRun()
	c.sink(ctx, logger, run)

	summary := run.Summary
	c.hub.Publish(RunEvent{RunID: run.ID, Type: EventRunCompleted, Timestamp: time.Now().UTC(), Summary: &summary})
	logger.Info("pipeline run completed",
		logging.Field{Key: "duration_ms", Value: summary.TotalDurationMs},
		logging.Field{Key: "stages_completed", Value: summary.StagesCompleted},
		logging.Field{Key: "stages_failed", Value: summary.StagesFailed},
		logging.Field{Key: "anomalies", Value: summary.AnomaliesDetected})
	return run, nil
}

func validate(req Request) ([]string, map[model.StageName]bool, error) {
	skip := make(map[model.StageName]bool, len(req.SkipStages))
	for _, s := range req.SkipStages {
		name := model.StageName(strings.ToLower(strings.TrimSpace(string(s))))
		if !ValidStage(name) {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStage, s)
		}
		skip[name] = true
	}

	seen := make(map[string]bool, len(req.Targets))
	targets := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, nil, ErrNoTargets
	}
	return targets, skip, nil
}

func (c *Coordinator) skipReason(ctx context.Context, name model.StageName, skip map[model.StageName]bool, st *runState) string {
	if skip[name] {
		return ReasonRequested
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ReasonDeadline
		}
		return ReasonCanceled
	}
	if name == model.StageDiff && len(st.snapshots) == 0 {
		return ReasonNoFetchResult
	}
	return ""
}

func (c *Coordinator) stageTimeout(name model.StageName) time.Duration {
	switch name {
	case model.StageAnalyze:
		return c.cfg.AnalyzeTimeout
	case model.StageReport:
		return c.cfg.ReportTimeout
	}
	return 0
}

// exec runs fn behind a recover boundary and bounded by timeout and ctx.
// A stage that outlives its context is recorded as failed and abandoned.
func (c *Coordinator) exec(ctx context.Context, logger logging.Logger, run *model.PipelineRun, stage *model.StageResult, fn stageFunc, timeout time.Duration, st runState) (stageOutput, bool) {
	c.resolve(logger, stage, model.StageRunning)
	c.publishStage(run.ID, stage)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		out stageOutput
		err error
	}
	done := make(chan result, 1)
	started := time.Now()
	name := stage.Name

	go func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("stage %s panicked: %v", name, r)}
			}
			done <- res
		}()
		res.out, res.err = fn(ctx, st)
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		select {
		case res = <-done:
		default:
			res = result{err: fmt.Errorf("stage %s: %w", name, ctx.Err())}
		}
	}

	stage.DurationMs = time.Since(started).Milliseconds()
	if res.err != nil {
		stage.Error = res.err.Error()
		if res.out.record != nil {
			stage.Result = res.out.record
		}
		c.resolve(logger, stage, model.StageFailed)
		logger.Warn("pipeline stage failed",
			logging.Field{Key: "stage", Value: string(stage.Name)},
			logging.Field{Key: "error", Value: res.err})
	} else {
		stage.Result = res.out.record
		c.resolve(logger, stage, model.StageSuccess)
	}
	c.deps.Metrics.observeStage(*stage)
	c.publishStage(run.ID, stage)
	return res.out, res.err == nil
}

func (c *Coordinator) resolve(logger logging.Logger, stage *model.StageResult, to model.StageStatus) {
	if err := Transition(stage, to); err != nil {
		logger.Error("stage state machine violated", logging.Field{Key: "error", Value: err})
	}
}

func (c *Coordinator) publishStage(runID string, stage *model.StageResult) {
	c.hub.Publish(RunEvent{
		RunID:     runID,
		Type:      EventStageChanged,
		Timestamp: time.Now().UTC(),
		Stage:     stage.Name,
		Status:    stage.Status,
		Error:     stage.Error,
		Reason:    stage.Reason,
	})
}

func (c *Coordinator) notify(ctx context.Context, logger logging.Logger, result *model.AnalysisResult) {
	if c.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NotifyTimeout)
	defer cancel()
	if err := c.deps.Notifier.Notify(ctx, result); err != nil {
		logger.Warn("analysis notification failed",
			logging.Field{Key: "analysis_id", Value: result.ID},
			logging.Field{Key: "error", Value: err})
	}
}

func (c *Coordinator) sink(ctx context.Context, logger logging.Logger, run *model.PipelineRun) {
	if c.deps.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.deps.Sink.Save(ctx, run); err != nil {
		logger.Warn("failed to archive run", logging.Field{Key: "error", Value: err})
	}
}

func summarize(run *model.PipelineRun, st *runState, elapsed time.Duration) model.RunSummary {
	s := model.RunSummary{TotalDurationMs: elapsed.Milliseconds()}
	for _, stage := range run.Stages {
		switch stage.Status {
		case model.StageSuccess:
			s.StagesCompleted++
		case model.StageFailed:
			s.StagesFailed++
		}
	}
	for _, d := range st.diffs {
		s.ChangesDetected = s.ChangesDetected || d.HasChanges
		s.AnomaliesDetected = s.AnomaliesDetected || len(d.Anomalies) > 0
	}
	return s
}
