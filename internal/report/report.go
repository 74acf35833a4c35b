// Package report turns the output of one pipeline run into a summary
// report and optionally delivers it to a webhook.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/webclient"
)

type Config struct {
	// WebhookURL receives the report as JSON; empty keeps it local.
	WebhookURL string `yaml:"webhook_url"`

	// Timeout bounds the report stage.
	Timeout time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// Input is everything the earlier stages of a run produced. Any field may
// be empty when its stage was skipped or failed.
type Input struct {
	RunID     string
	Snapshots []*model.Snapshot
	Diffs     []*model.DiffResult
	Analysis  *model.AnalysisResult
}

type TargetLine struct {
	URL         string         `json:"url"`
	StatusCode  int            `json:"status_code"`
	ElapsedMs   int64          `json:"elapsed_ms"`
	HasChanges  bool           `json:"has_changes"`
	Changes     int            `json:"changes"`
	Anomalies   int            `json:"anomalies"`
	MaxSeverity model.Severity `json:"max_severity,omitempty"`
	FetchError  string         `json:"fetch_error,omitempty"`
}

type Report struct {
	RunID          string               `json:"run_id"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Headline       string               `json:"headline"`
	Targets        []TargetLine         `json:"targets"`
	AnalysisStatus model.AnalysisStatus `json:"analysis_status,omitempty"`
	Findings       []model.Finding      `json:"findings,omitempty"`
	Trend          *model.TrendSummary  `json:"trend,omitempty"`
	Markdown       string               `json:"markdown"`
}

type Reporter interface {
	Generate(ctx context.Context, in Input) (*Report, error)
}

// MarkdownReporter renders a Markdown summary and POSTs the report to the
// configured webhook.
type MarkdownReporter struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

func New(cfg Config, wc webclient.WebClient, logger logging.Logger) *MarkdownReporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &MarkdownReporter{
		cfg:    cfg,
		wc:     wc,
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "report"}),
	}
}

// Generate builds the report. Delivery failures are returned as errors
// together with the report that could not be delivered.
func (r *MarkdownReporter) Generate(ctx context.Context, in Input) (*Report, error) {
	rep := Build(in, time.Now().UTC())
	if r.cfg.WebhookURL == "" {
		return rep, nil
	}
	if err := r.deliver(ctx, rep); err != nil {
		return rep, err
	}
	r.logger.Info("report delivered",
		logging.Field{Key: "run_id", Value: rep.RunID},
		logging.Field{Key: "targets", Value: len(rep.Targets)})
	return rep, nil
}

func (r *MarkdownReporter) deliver(ctx context.Context, rep *Report) error {
	if r.wc == nil {
		return fmt.Errorf("report: webclient is nil")
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	resp, err := r.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     r.cfg.WebhookURL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("report: deliver: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("report: deliver: status %d", resp.StatusCode)
	}
	return nil
}

// Build assembles a report from in without side effects.
func Build(in Input, now time.Time) *Report {
	rep := &Report{
		RunID:       in.RunID,
		GeneratedAt: now,
		Targets:     targetLines(in),
	}
	if in.Analysis != nil {
		rep.AnalysisStatus = in.Analysis.Status
		rep.Findings = in.Analysis.Findings
		trend := in.Analysis.Trend
		rep.Trend = &trend
	}
	rep.Headline = headline(rep.Targets)
	rep.Markdown = markdown(rep)
	return rep
}

func targetLines(in Input) []TargetLine {
	diffs := make(map[string]*model.DiffResult, len(in.Diffs))
	for _, d := range in.Diffs {
		if d != nil {
			diffs[d.URL] = d
		}
	}

	lines := make([]TargetLine, 0, len(in.Snapshots))
	for _, s := range in.Snapshots {
		if s == nil {
			continue
		}
		line := TargetLine{
			URL:        s.URL,
			StatusCode: s.StatusCode,
			ElapsedMs:  s.ElapsedMs,
			FetchError: s.Error,
		}
		if d, ok := diffs[s.URL]; ok {
			line.HasChanges = d.HasChanges
			line.Changes = len(d.Changes)
			line.Anomalies = len(d.Anomalies)
			line.MaxSeverity = d.MaxSeverity()
		}
		lines = append(lines, line)
	}
	return lines
}

func headline(lines []TargetLine) string {
	if len(lines) == 0 {
		return "no targets observed"
	}
	var changed, anomalous, critical int
	for _, l := range lines {
		if l.HasChanges {
			changed++
		}
		if l.Anomalies > 0 {
			anomalous++
		}
		if l.MaxSeverity == model.SeverityCritical {
			critical++
		}
	}
	h := fmt.Sprintf("%d targets: %d changed, %d with anomalies", len(lines), changed, anomalous)
	if critical > 0 {
		h += fmt.Sprintf(" (%d critical)", critical)
	}
	return h
}

func markdown(rep *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Observation report %s\n\n", rep.RunID)
	fmt.Fprintf(&sb, "_%s_\n\n**%s**\n\n", rep.GeneratedAt.Format(time.RFC3339), rep.Headline)

	if len(rep.Targets) > 0 {
		sb.WriteString("| Target | Status | Latency | Changed | Anomalies |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, l := range rep.Targets {
			status := fmt.Sprintf("%d", l.StatusCode)
			if l.FetchError != "" {
				status = "fetch error"
			}
			anomalies := fmt.Sprintf("%d", l.Anomalies)
			if l.MaxSeverity != "" {
				anomalies += " (" + string(l.MaxSeverity) + ")"
			}
			fmt.Fprintf(&sb, "| %s | %s | %dms | %t | %s |\n", l.URL, status, l.ElapsedMs, l.HasChanges, anomalies)
		}
		sb.WriteString("\n")
	}

	if rep.Trend != nil {
		fmt.Fprintf(&sb, "Trend: %s (confidence %.2f), analysis %s\n\n", rep.Trend.Direction, rep.Trend.Confidence, rep.AnalysisStatus)
	}
	if len(rep.Findings) > 0 {
		sb.WriteString("## Findings\n\n")
		for _, f := range rep.Findings {
			fmt.Fprintf(&sb, "- **%s** [%s] %s. %s\n", f.Category, f.Severity, f.Description, f.Recommendation)
		}
	}
	return sb.String()
}
