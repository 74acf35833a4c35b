package model

import "time"

// Severity is shared by changes, anomalies and findings.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity maps free text onto a Severity; unknown values become info.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityWarning, SeverityCritical:
		return Severity(s)
	}
	switch s {
	case "high", "error", "severe":
		return SeverityCritical
	case "medium", "warn":
		return SeverityWarning
	}
	return SeverityInfo
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

type AnomalyKind string

const (
	AnomalyStatusError        AnomalyKind = "status_error"
	AnomalyLatencySpike       AnomalyKind = "latency_spike"
	AnomalyEmptyContent       AnomalyKind = "empty_content"
	AnomalyMajorContentChange AnomalyKind = "major_content_change"
)

// Change is one structural difference between consecutive snapshots.
type Change struct {
	Kind        ChangeKind `json:"kind"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
}

// Anomaly is a detected condition, independent of whether content changed.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	Message    string      `json:"message"`
	Severity   Severity    `json:"severity"`
	DetectedAt time.Time   `json:"detected_at"`
}

// ChangeSummary condenses the numeric side of a comparison.
type ChangeSummary struct {
	ContentChanged      bool    `json:"content_changed"`
	StatusChanged       bool    `json:"status_changed"`
	SizeChangePercent   float64 `json:"size_change_percent"`
	ResponseTimeDeltaMs int64   `json:"response_time_delta_ms"`
}

// DiffResult compares a snapshot with the one stored before it for the same
// target. PreviousTimestamp is nil when there was no predecessor.
type DiffResult struct {
	URL                 string        `json:"url"`
	Timestamp           time.Time     `json:"timestamp"`
	PreviousTimestamp   *time.Time    `json:"previous_timestamp"`
	HasChanges          bool          `json:"has_changes"`
	Summary             ChangeSummary `json:"summary"`
	Changes             []Change      `json:"changes"`
	Anomalies           []Anomaly     `json:"anomalies"`
	CurrentFingerprint  string        `json:"current_fingerprint"`
	PreviousFingerprint string        `json:"previous_fingerprint,omitempty"`
}

// MaxSeverity returns the highest anomaly severity, or "" when there are none.
func (d *DiffResult) MaxSeverity() Severity {
	var top Severity
	for _, a := range d.Anomalies {
		if severityRank(a.Severity) > severityRank(top) {
			top = a.Severity
		}
	}
	return top
}

func severityRank(s Severity) int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}
