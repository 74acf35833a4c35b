package model

import "time"

type AnalysisType string

const (
	AnalysisDiff    AnalysisType = "diff"
	AnalysisAnomaly AnalysisType = "anomaly"
	AnalysisTrend   AnalysisType = "trend"
)

type TrendDirection string

const (
	TrendStable    TrendDirection = "stable"
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
)

// ParseTrendDirection maps free text onto a TrendDirection, defaulting to stable.
func ParseTrendDirection(s string) TrendDirection {
	switch TrendDirection(s) {
	case TrendImproving, TrendDegrading:
		return TrendDirection(s)
	}
	return TrendStable
}

// AnalysisStatus records which path produced an AnalysisResult.
type AnalysisStatus string

const (
	AnalysisParsed      AnalysisStatus = "parsed"
	AnalysisDegraded    AnalysisStatus = "degraded"
	AnalysisUnavailable AnalysisStatus = "unavailable"
)

type Finding struct {
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

type TrendSummary struct {
	Direction  TrendDirection `json:"direction"`
	Confidence float64        `json:"confidence"`
	KeyMetrics map[string]any `json:"key_metrics"`
}

// AnalysisResult is the normalized model output for one pipeline batch.
type AnalysisResult struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Target          string         `json:"target"`
	Type            AnalysisType   `json:"type"`
	Status          AnalysisStatus `json:"status"`
	Findings        []Finding      `json:"findings"`
	Trend           TrendSummary   `json:"trend"`
	Insights        []string       `json:"insights"`
	AnomalyDetected bool           `json:"anomaly_detected"`
	ActionRequired  bool           `json:"action_required"`

	// RawAnalysis keeps the unparsed model reply when parsing failed.
	RawAnalysis string `json:"raw_analysis,omitempty"`

	// Error describes a transport or credential failure.
	Error string `json:"error,omitempty"`
}
