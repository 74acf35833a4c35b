// Package analyzer forwards fetch and diff results to an external
// text-generation model and normalizes its untrusted reply into an
// AnalysisResult. Every call yields a valid result: unparsable replies and
// unreachable models degrade to a neutral observation.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/ringbuf"
)

// SystemInstruction asks the model for the reply shape Parse understands.
const SystemInstruction = `You analyse website monitoring data. Respond with a single JSON object and nothing else:
{"findings":[{"category":string,"severity":"info"|"warning"|"critical","description":string,"recommendation":string}],
"trend_summary":{"direction":"stable"|"improving"|"degrading","confidence":number between 0 and 1,"key_metrics":object},
"insights":[string],"anomaly_detected":boolean,"action_required":boolean}`

// Batch is the fetch and diff output of one pipeline run.
type Batch struct {
	Snapshots []*model.Snapshot
	Diffs     []*model.DiffResult
}

// Adapter runs analyses and keeps the bounded Analysis History.
type Adapter struct {
	cfg     Config
	gen     Generator
	history *ringbuf.Queue[*model.AnalysisResult]
	logger  logging.Logger
}

// NewAdapter returns an Adapter. gen may be nil, in which case every
// analysis is unavailable.
func NewAdapter(cfg Config, gen Generator, logger logging.Logger) *Adapter {
	cfg = cfg.withDefaults()
	return &Adapter{
		cfg:     cfg,
		gen:     gen,
		history: ringbuf.New[*model.AnalysisResult](cfg.HistoryCapacity),
		logger:  logging.OrNop(logger).With(logging.Field{Key: "component", Value: "analyzer"}),
	}
}

// Analyze sends b to the model and records the result in history. It never
// fails; the Outcome kind says which path produced the result.
func (a *Adapter) Analyze(ctx context.Context, b Batch) Outcome {
	result := &model.AnalysisResult{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		Target:          batchLabel(b),
		Type:            analysisType(b.Diffs),
		AnomalyDetected: hasAnomalies(b.Diffs),
	}

	out := a.analyze(ctx, b, result)
	a.history.Push(out.Result)

	a.logger.Info("analysis recorded",
		logging.Field{Key: "analysis_id", Value: result.ID},
		logging.Field{Key: "outcome", Value: out.Kind.String()},
		logging.Field{Key: "type", Value: string(result.Type)},
		logging.Field{Key: "findings", Value: len(result.Findings)})
	return out
}

func (a *Adapter) analyze(ctx context.Context, b Batch, result *model.AnalysisResult) Outcome {
	prompt, err := a.buildPrompt(b, result.Type)
	if err != nil {
		return a.unavailable(result, fmt.Errorf("build prompt: %w", err))
	}

	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return a.unavailable(result, err)
	}

	if err := Parse(raw, result); err != nil {
		a.logger.Warn("analysis reply not parseable, degrading",
			logging.Field{Key: "error", Value: err})
		fallback(result)
		result.Status = model.AnalysisDegraded
		result.RawAnalysis = raw
		return Outcome{Kind: OutcomeDegraded, Result: result, Raw: raw}
	}
	return Outcome{Kind: OutcomeParsed, Result: result}
}

func (a *Adapter) generate(ctx context.Context, prompt string) (raw string, err error) {
	if a.gen == nil {
		return "", errors.New("analyzer: no generator configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer: generator panic: %v", r)
		}
	}()
	return a.gen.Generate(callCtx, SystemInstruction, prompt)
}

func (a *Adapter) unavailable(result *model.AnalysisResult, err error) Outcome {
	if errors.Is(err, ErrMissingCredential) {
		a.logger.Warn("analysis unavailable: no API credential configured")
	} else {
		a.logger.Warn("analysis unavailable", logging.Field{Key: "error", Value: err})
	}
	fallback(result)
	result.Status = model.AnalysisUnavailable
	result.Error = err.Error()
	return Outcome{Kind: OutcomeUnavailable, Result: result, Err: err}
}

// History returns at most limit analysis results, most recent first. A
// limit of zero or less returns all of them.
func (a *Adapter) History(limit int) []*model.AnalysisResult {
	return a.history.Head(limit)
}

// Latest returns the most recent analysis result.
func (a *Adapter) Latest() (*model.AnalysisResult, bool) {
	return a.history.Latest()
}

// ─── batch context ──────────────────────────────────────────────────────

type targetContext struct {
	URL           string               `json:"url"`
	StatusCode    int                  `json:"status_code"`
	ElapsedMs     int64                `json:"elapsed_ms"`
	ContentLength int                  `json:"content_length"`
	FetchError    string               `json:"fetch_error,omitempty"`
	HasChanges    *bool                `json:"has_changes,omitempty"`
	Summary       *model.ChangeSummary `json:"summary,omitempty"`
	Changes       []model.Change       `json:"changes,omitempty"`
	Anomalies     []model.Anomaly      `json:"anomalies,omitempty"`
}

type trendContext struct {
	Timestamp  time.Time            `json:"timestamp"`
	Direction  model.TrendDirection `json:"direction"`
	Confidence float64              `json:"confidence"`
}

type batchContext struct {
	AnalysisType model.AnalysisType `json:"analysis_type"`
	Targets      []targetContext    `json:"targets"`
	RecentTrends []trendContext     `json:"recent_trends,omitempty"`
}

func (a *Adapter) buildPrompt(b Batch, typ model.AnalysisType) (string, error) {
	payload := batchContext{
		AnalysisType: typ,
		Targets:      targetContexts(b),
	}
	if a.cfg.TrendContext > 0 {
		for _, prev := range a.history.Head(a.cfg.TrendContext) {
			payload.RecentTrends = append(payload.RecentTrends, trendContext{
				Timestamp:  prev.Timestamp,
				Direction:  prev.Trend.Direction,
				Confidence: prev.Trend.Confidence,
			})
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return "Analyse the following monitoring batch and respond with the JSON object described.\n\n" + string(data), nil
}

func targetContexts(b Batch) []targetContext {
	byURL := make(map[string]*model.DiffResult, len(b.Diffs))
	for _, d := range b.Diffs {
		if d != nil {
			byURL[d.URL] = d
		}
	}

	out := make([]targetContext, 0, max(len(b.Snapshots), len(b.Diffs)))
	seen := make(map[string]bool, len(b.Snapshots))
	for _, s := range b.Snapshots {
		if s == nil {
			continue
		}
		tc := targetContext{
			URL:           s.URL,
			StatusCode:    s.StatusCode,
			ElapsedMs:     s.ElapsedMs,
			ContentLength: s.ContentLength,
			FetchError:    s.Error,
		}
		if d, ok := byURL[s.URL]; ok {
			withDiff(&tc, d)
		}
		seen[s.URL] = true
		out = append(out, tc)
	}
	for _, d := range b.Diffs {
		if d == nil || seen[d.URL] {
			continue
		}
		tc := targetContext{URL: d.URL}
		withDiff(&tc, d)
		out = append(out, tc)
	}
	return out
}

func withDiff(tc *targetContext, d *model.DiffResult) {
	changed := d.HasChanges
	summary := d.Summary
	tc.HasChanges = &changed
	tc.Summary = &summary
	tc.Changes = d.Changes
	tc.Anomalies = d.Anomalies
}

func batchLabel(b Batch) string {
	urls := map[string]bool{}
	var last string
	for _, s := range b.Snapshots {
		if s != nil {
			urls[s.URL] = true
			last = s.URL
		}
	}
	for _, d := range b.Diffs {
		if d != nil {
			urls[d.URL] = true
			last = d.URL
		}
	}
	if len(urls) == 1 {
		return last
	}
	return fmt.Sprintf("batch:%d targets", len(urls))
}

// analysisType is anomaly when any diff flagged an anomaly, diff when any
// target changed, trend otherwise.
func analysisType(diffs []*model.DiffResult) model.AnalysisType {
	if hasAnomalies(diffs) {
		return model.AnalysisAnomaly
	}
	for _, d := range diffs {
		if d != nil && d.HasChanges {
			return model.AnalysisDiff
		}
	}
	return model.AnalysisTrend
}

func hasAnomalies(diffs []*model.DiffResult) bool {
	for _, d := range diffs {
		if d != nil && len(d.Anomalies) > 0 {
			return true
		}
	}
	return false
}
