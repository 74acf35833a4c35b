package analyzer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/testutil"
)

func sampleBatch() analyzer.Batch {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return analyzer.Batch{
		Snapshots: []*model.Snapshot{
			{URL: "https://a.example", StatusCode: 200, ElapsedMs: 120, ContentLength: 10, Timestamp: now},
			{URL: "https://b.example", StatusCode: 0, Error: "connection refused", Timestamp: now},
		},
		Diffs: []*model.DiffResult{
			{URL: "https://a.example", HasChanges: true, Changes: []model.Change{}, Anomalies: []model.Anomaly{}},
			{URL: "https://b.example", HasChanges: true, Anomalies: []model.Anomaly{
				{Kind: model.AnomalyStatusError, Severity: model.SeverityWarning, Message: "fetch failed"},
			}},
		},
	}
}

// ─── Outcomes ─────────────────────────────────────────────────────────────

func TestAnalyze_UnparsableReplyDegrades(t *testing.T) {
	t.Parallel()

	gen := &testutil.StubGenerator{Reply: "I cannot comply."}
	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, &testutil.DummyLogger{})

	out := a.Analyze(context.Background(), sampleBatch())

	require.Equal(t, analyzer.OutcomeDegraded, out.Kind)
	require.NotNil(t, out.Result)
	res := out.Result
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
	assert.Equal(t, analyzer.FallbackDescription, res.Findings[0].Description)
	assert.Equal(t, analyzer.FallbackRecommendation, res.Findings[0].Recommendation)
	assert.Equal(t, model.TrendStable, res.Trend.Direction)
	assert.Equal(t, 0.5, res.Trend.Confidence)
	assert.Equal(t, "I cannot comply.", res.RawAnalysis)
	assert.Equal(t, "I cannot comply.", out.Raw)
	assert.Equal(t, model.AnalysisDegraded, res.Status)
	assert.True(t, out.Degraded())
}

func TestAnalyze_ParsedReply(t *testing.T) {
	t.Parallel()

	gen := &testutil.StubGenerator{Reply: `{"findings":[{"category":"availability","severity":"warning","description":"b is down","recommendation":"check b"}],"trend_summary":{"direction":"degrading","confidence":0.8},"insights":["b unreachable"],"action_required":true}`}
	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, nil)

	out := a.Analyze(context.Background(), sampleBatch())

	require.Equal(t, analyzer.OutcomeParsed, out.Kind)
	res := out.Result
	assert.Equal(t, model.AnalysisParsed, res.Status)
	assert.Equal(t, model.AnalysisAnomaly, res.Type)
	assert.Equal(t, "batch:2 targets", res.Target)
	assert.True(t, res.AnomalyDetected, "batch anomaly must survive a reply that omits it")
	assert.True(t, res.ActionRequired)
	assert.Empty(t, res.RawAnalysis)
	assert.NotEmpty(t, res.ID)

	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "https://b.example")
	assert.Contains(t, prompt, "connection refused")
	assert.Contains(t, prompt, `"analysis_type": "anomaly"`)
}

func TestAnalyze_MissingCredentialIsUnavailable(t *testing.T) {
	t.Parallel()

	gen, err := analyzer.NewGenerator(analyzer.Config{Provider: analyzer.ProviderAnthropic}, &testutil.DummyWebClient{}, nil)
	require.NoError(t, err, "a missing key is not a construction error")

	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, nil)
	out := a.Analyze(context.Background(), sampleBatch())

	require.Equal(t, analyzer.OutcomeUnavailable, out.Kind)
	assert.ErrorIs(t, out.Err, analyzer.ErrMissingCredential)
	assert.Equal(t, model.AnalysisUnavailable, out.Result.Status)
	assert.NotEmpty(t, out.Result.Error)
	require.Len(t, out.Result.Findings, 1)
	assert.Equal(t, model.TrendStable, out.Result.Trend.Direction)
}

func TestAnalyze_TransportErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	gen := &testutil.StubGenerator{Err: errors.New("dial tcp: connection refused")}
	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, nil)

	out := a.Analyze(context.Background(), sampleBatch())
	assert.Equal(t, analyzer.OutcomeUnavailable, out.Kind)
	assert.Contains(t, out.Result.Error, "connection refused")
}

func TestAnalyze_TimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	cfg := analyzer.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	gen := &testutil.StubGenerator{Reply: "{}", Delay: time.Second}
	a := analyzer.NewAdapter(cfg, gen, nil)

	start := time.Now()
	out := a.Analyze(context.Background(), sampleBatch())
	assert.Equal(t, analyzer.OutcomeUnavailable, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAnalyze_NilGenerator(t *testing.T) {
	t.Parallel()

	a := analyzer.NewAdapter(analyzer.DefaultConfig(), nil, nil)
	out := a.Analyze(context.Background(), analyzer.Batch{})
	assert.Equal(t, analyzer.OutcomeUnavailable, out.Kind)
	assert.NotNil(t, out.Result)
	assert.Equal(t, model.AnalysisTrend, out.Result.Type)
}

type panickyGenerator struct{}

func (panickyGenerator) Generate(context.Context, string, string) (string, error) {
	panic("boom")
}

func TestAnalyze_GeneratorPanicIsContained(t *testing.T) {
	t.Parallel()

	a := analyzer.NewAdapter(analyzer.DefaultConfig(), panickyGenerator{}, nil)
	out := a.Analyze(context.Background(), sampleBatch())
	assert.Equal(t, analyzer.OutcomeUnavailable, out.Kind)
	assert.Contains(t, out.Result.Error, "boom")
}

// ─── Type and label ───────────────────────────────────────────────────────

func TestAnalyze_TypePrecedence(t *testing.T) {
	t.Parallel()

	gen := &testutil.StubGenerator{Reply: "{}"}
	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, nil)

	changed := analyzer.Batch{Diffs: []*model.DiffResult{{URL: "https://a.example", HasChanges: true}}}
	assert.Equal(t, model.AnalysisDiff, a.Analyze(context.Background(), changed).Result.Type)
	assert.Equal(t, "https://a.example", a.Analyze(context.Background(), changed).Result.Target)

	quiet := analyzer.Batch{Diffs: []*model.DiffResult{{URL: "https://a.example"}}}
	assert.Equal(t, model.AnalysisTrend, a.Analyze(context.Background(), quiet).Result.Type)
}

// ─── History ──────────────────────────────────────────────────────────────

func TestHistory_BoundedMostRecentFirst(t *testing.T) {
	t.Parallel()

	cfg := analyzer.DefaultConfig()
	cfg.HistoryCapacity = 3
	gen := &testutil.StubGenerator{Reply: "{}"}
	a := analyzer.NewAdapter(cfg, gen, nil)

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, a.Analyze(context.Background(), analyzer.Batch{}).Result.ID)
	}

	hist := a.History(0)
	require.Len(t, hist, 3)
	assert.Equal(t, ids[3], hist[0].ID)
	assert.Equal(t, ids[1], hist[2].ID)
	assert.Len(t, a.History(2), 2)

	latest, ok := a.Latest()
	require.True(t, ok)
	assert.Equal(t, ids[3], latest.ID)
}

func TestAnalyze_SendsRecentTrends(t *testing.T) {
	t.Parallel()

	gen := &testutil.StubGenerator{Reply: `{"trend_summary":{"direction":"improving","confidence":0.9}}`}
	a := analyzer.NewAdapter(analyzer.DefaultConfig(), gen, nil)

	a.Analyze(context.Background(), analyzer.Batch{})
	assert.NotContains(t, gen.LastPrompt(), "recent_trends")

	a.Analyze(context.Background(), analyzer.Batch{})
	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "recent_trends")
	assert.True(t, strings.Contains(prompt, `"direction": "improving"`))
}
