package pipeline

import (
	"context"
	"errors"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/report"
)

func (c *Coordinator) stageFunc(name model.StageName, runID string) stageFunc {
	switch name {
	case model.StageFetch:
		return c.fetchStage
	case model.StageDiff:
		return c.diffStage
	case model.StageAnalyze:
		return c.analyzeStage
	case model.StageReport:
		return func(ctx context.Context, st runState) (stageOutput, error) {
			return c.reportStage(ctx, runID, st)
		}
	}
	return func(context.Context, runState) (stageOutput, error) {
		return stageOutput{}, ErrUnknownStage
	}
}

func (c *Coordinator) fetchStage(ctx context.Context, st runState) (stageOutput, error) {
	if c.deps.Fetcher == nil {
		return stageOutput{}, errors.New("no fetcher configured")
	}
	snaps, err := c.deps.Fetcher.FetchAll(ctx, st.targets)
	if err != nil {
		return stageOutput{}, err
	}
	c.deps.Metrics.observeSnapshots(snaps)

	summaries := make([]model.FetchSummary, 0, len(snaps))
	for _, s := range snaps {
		summaries = append(summaries, model.FetchSummary{
			URL:           s.URL,
			SnapshotID:    s.ID,
			StatusCode:    s.StatusCode,
			ElapsedMs:     s.ElapsedMs,
			ContentLength: s.ContentLength,
			Fingerprint:   s.Fingerprint,
			Error:         s.Error,
		})
	}
	return stageOutput{record: summaries, snapshots: snaps}, nil
}

// diffStage compares each fetched snapshot with the one stored before it.
func (c *Coordinator) diffStage(ctx context.Context, st runState) (stageOutput, error) {
	results := make([]*model.DiffResult, 0, len(st.snapshots))
	for _, cur := range st.snapshots {
		if err := ctx.Err(); err != nil {
			return stageOutput{}, err
		}
		var prev *model.Snapshot
		if c.deps.Snapshots != nil {
			if p, ok := c.deps.Snapshots.Predecessor(cur.URL, cur.ID); ok {
				prev = p
			}
		}
		res := c.deps.Engine.Diff(cur, prev)
		if c.deps.Diffs != nil {
			c.deps.Diffs.Append(res)
		}
		results = append(results, res)
	}
	c.deps.Metrics.observeDiffs(results)
	return stageOutput{record: results, diffs: results}, nil
}

// analyzeStage always succeeds when an analyzer is configured: unparsable
// replies and unreachable models come back as degraded results.
func (c *Coordinator) analyzeStage(ctx context.Context, st runState) (stageOutput, error) {
	if c.deps.Analyzer == nil {
		return stageOutput{}, errors.New("no analyzer configured")
	}
	out := c.deps.Analyzer.Analyze(ctx, analyzer.Batch{
		Snapshots: st.snapshots,
		Diffs:     st.diffs,
	})
	return stageOutput{record: out.Result, analysis: out.Result}, nil
}

func (c *Coordinator) reportStage(ctx context.Context, runID string, st runState) (stageOutput, error) {
	if c.deps.Reporter == nil {
		return stageOutput{}, errors.New("no reporter configured")
	}
	rep, err := c.deps.Reporter.Generate(ctx, report.Input{
		RunID:     runID,
		Snapshots: st.snapshots,
		Diffs:     st.diffs,
		Analysis:  st.analysis,
	})
	if err != nil {
		// an undelivered report is still recorded on the failed stage
		if rep != nil {
			return stageOutput{record: rep}, err
		}
		return stageOutput{}, err
	}
	return stageOutput{record: rep}, nil
}
