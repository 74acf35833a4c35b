package server

import "github.com/raysh454/observer/internal/model"

// RunRequest triggers one pipeline run.
type RunRequest struct {
	Targets    []string `json:"targets" example:"https://example.com"`
	SkipStages []string `json:"skip_stages" example:"report"`
}

// TargetSummary is the latest known state of one observed target.
type TargetSummary struct {
	URL            string              `json:"url" example:"https://example.com/"`
	Snapshots      int                 `json:"snapshots" example:"3"`
	LatestSnapshot *model.SnapshotMeta `json:"latest_snapshot,omitempty"`
	LatestDiff     *model.DiffResult   `json:"latest_diff,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
