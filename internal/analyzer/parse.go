package analyzer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/raysh454/observer/internal/model"
)

// Fallback values for replies that cannot be parsed.
const (
	FallbackCategory       = "observation"
	FallbackDescription    = "observation recorded"
	FallbackRecommendation = "continue monitoring"
	FallbackConfidence     = 0.5
)

type replyFinding struct {
	Category       string `json:"category"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

type replyTrend struct {
	Direction  string         `json:"direction"`
	Confidence *float64       `json:"confidence"`
	KeyMetrics map[string]any `json:"key_metrics"`
}

// reply is the JSON shape the model is instructed to return.
type reply struct {
	Findings        []replyFinding `json:"findings"`
	TrendSummary    *replyTrend    `json:"trend_summary"`
	Trend           *replyTrend    `json:"trend"`
	Insights        []string       `json:"insights"`
	AnomalyDetected bool           `json:"anomaly_detected"`
	ActionRequired  bool           `json:"action_required"`
}

var errNotObject = errors.New("reply is not a JSON object")

// StripFences removes a surrounding markdown code fence, with or without a
// language tag.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// the language tag ends at the first newline or at the opening brace
	switch i := strings.IndexAny(s, "{\n"); {
	case i < 0:
		s = ""
	case s[i] == '\n':
		s = s[i+1:]
	default:
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Parse maps a model reply onto result. An anomaly already flagged on
// result stays flagged. On failure result is left untouched and the error
// is returned.
func Parse(raw string, result *model.AnalysisResult) error {
	body := StripFences(raw)
	if !strings.HasPrefix(body, "{") {
		return errNotObject
	}

	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return err
	}

	result.Findings = make([]model.Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		category := strings.TrimSpace(f.Category)
		if category == "" {
			category = "general"
		}
		result.Findings = append(result.Findings, model.Finding{
			Category:       category,
			Severity:       model.ParseSeverity(strings.ToLower(strings.TrimSpace(f.Severity))),
			Description:    f.Description,
			Recommendation: f.Recommendation,
		})
	}

	trend := r.TrendSummary
	if trend == nil {
		trend = r.Trend
	}
	result.Trend = normalizeTrend(trend)

	result.Insights = make([]string, 0, len(r.Insights))
	for _, in := range r.Insights {
		if in = strings.TrimSpace(in); in != "" {
			result.Insights = append(result.Insights, in)
		}
	}

	result.AnomalyDetected = result.AnomalyDetected || r.AnomalyDetected
	result.ActionRequired = r.ActionRequired
	result.Status = model.AnalysisParsed
	return nil
}

func normalizeTrend(t *replyTrend) model.TrendSummary {
	out := model.TrendSummary{
		Direction:  model.TrendStable,
		Confidence: FallbackConfidence,
		KeyMetrics: map[string]any{},
	}
	if t == nil {
		return out
	}
	out.Direction = model.ParseTrendDirection(strings.ToLower(strings.TrimSpace(t.Direction)))
	if t.Confidence != nil {
		out.Confidence = min(max(*t.Confidence, 0), 1)
	}
	if t.KeyMetrics != nil {
		out.KeyMetrics = t.KeyMetrics
	}
	return out
}

// fallback fills result with the neutral observation used whenever the
// model's reply is unusable.
func fallback(result *model.AnalysisResult) {
	result.Findings = []model.Finding{{
		Category:       FallbackCategory,
		Severity:       model.SeverityInfo,
		Description:    FallbackDescription,
		Recommendation: FallbackRecommendation,
	}}
	result.Trend = model.TrendSummary{
		Direction:  model.TrendStable,
		Confidence: FallbackConfidence,
		KeyMetrics: map[string]any{},
	}
	result.Insights = []string{}
}
