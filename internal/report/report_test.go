package report_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/report"
	"github.com/raysh454/observer/internal/testutil"
)

func input() report.Input {
	return report.Input{
		RunID: "run-1",
		Snapshots: []*model.Snapshot{
			{URL: "https://a.example", StatusCode: 200, ElapsedMs: 120},
			{URL: "https://b.example", StatusCode: 0, Error: "connection refused"},
		},
		Diffs: []*model.DiffResult{
			{URL: "https://a.example", HasChanges: true, Changes: []model.Change{{Kind: model.ChangeAdded}}},
			{URL: "https://b.example", HasChanges: true, Anomalies: []model.Anomaly{
				{Kind: model.AnomalyEmptyContent, Severity: model.SeverityCritical},
				{Kind: model.AnomalyStatusError, Severity: model.SeverityWarning},
			}},
		},
		Analysis: &model.AnalysisResult{
			Status:   model.AnalysisDegraded,
			Findings: []model.Finding{{Category: "observation", Severity: model.SeverityInfo, Description: "observation recorded", Recommendation: "continue monitoring"}},
			Trend:    model.TrendSummary{Direction: model.TrendStable, Confidence: 0.5},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	rep := report.Build(input(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "2 targets: 2 changed, 1 with anomalies (1 critical)", rep.Headline)
	require.Len(t, rep.Targets, 2)
	assert.Equal(t, 1, rep.Targets[0].Changes)
	assert.Equal(t, model.SeverityCritical, rep.Targets[1].MaxSeverity)
	assert.Equal(t, model.AnalysisDegraded, rep.AnalysisStatus)
	assert.Contains(t, rep.Markdown, "| https://b.example | fetch error |")
	assert.Contains(t, rep.Markdown, "observation recorded")
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	rep := report.Build(report.Input{RunID: "r"}, time.Now())
	assert.Equal(t, "no targets observed", rep.Headline)
	assert.Empty(t, rep.Targets)
	assert.Nil(t, rep.Trend)
	assert.False(t, strings.Contains(rep.Markdown, "Findings"))
}

func TestGenerate_NoWebhook(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	r := report.New(report.DefaultConfig(), wc, nil)

	rep, err := r.Generate(context.Background(), input())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.Markdown)
	assert.Zero(t, wc.RequestCount())
}

func TestGenerate_WebhookDelivery(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	r := report.New(report.Config{WebhookURL: "https://hooks.example/report"}, wc, nil)

	_, err := r.Generate(context.Background(), input())
	require.NoError(t, err)
	require.Equal(t, 1, wc.RequestCount())
	assert.Equal(t, http.MethodPost, wc.Requests[0].Method)
	assert.Contains(t, string(wc.Requests[0].Body), `"run_id":"run-1"`)
}

func TestGenerate_WebhookFailure(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	wc.SetResponse("https://hooks.example/report", testutil.DummyResponse{Status: http.StatusInternalServerError})
	r := report.New(report.Config{WebhookURL: "https://hooks.example/report"}, wc, nil)

	rep, err := r.Generate(context.Background(), input())
	require.Error(t, err)
	assert.NotNil(t, rep, "the undelivered report is still returned")
}
