package model

import "time"

// StageName identifies one of the four pipeline stages.
type StageName string

const (
	StageFetch   StageName = "fetch"
	StageDiff    StageName = "diff"
	StageAnalyze StageName = "analyze"
	StageReport  StageName = "report"
)

type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// Terminal reports whether s is one of success, failed or skipped.
func (s StageStatus) Terminal() bool {
	return s == StageSuccess || s == StageFailed || s == StageSkipped
}

type StageResult struct {
	Name       StageName   `json:"name"`
	Status     StageStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Result     any         `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`

	// Reason explains a skip.
	Reason string `json:"reason,omitempty"`
}

type RunSummary struct {
	TotalDurationMs   int64 `json:"total_duration_ms"`
	StagesCompleted   int   `json:"stages_completed"`
	StagesFailed      int   `json:"stages_failed"`
	ChangesDetected   bool  `json:"changes_detected"`
	AnomaliesDetected bool  `json:"anomalies_detected"`
}

// PipelineRun is one end-to-end execution of the coordinator.
type PipelineRun struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Targets   []string      `json:"targets"`
	Stages    []StageResult `json:"stages"`
	Summary   RunSummary    `json:"summary"`
}

// Stage returns the result recorded for name, if any.
func (r *PipelineRun) Stage(name StageName) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// FetchSummary is the fetch stage payload for one target.
type FetchSummary struct {
	URL           string `json:"url"`
	SnapshotID    string `json:"snapshot_id"`
	StatusCode    int    `json:"status_code"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	ContentLength int    `json:"content_length"`
	Fingerprint   string `json:"fingerprint"`
	Error         string `json:"error,omitempty"`
}
