package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/observer/internal/archive"
	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/utils"
)

// Pipeline runs

// handleCreateRun godoc
// @Summary Trigger a pipeline run
// @Description Runs fetch, diff, analyze and report over the targets and returns the completed run.
// @Tags pipeline
// @Accept json
// @Produce json
// @Param request body RunRequest true "targets and stages to skip"
// @Success 200 {object} model.PipelineRun
// @Failure 400 {object} ErrorResponse
// @Router /pipeline/runs [post]
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding run request", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	targets, err := utils.CanonicalizeTargets(body.Targets, utils.TargetOptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target: "+err.Error())
		return
	}
	skip := make([]model.StageName, 0, len(body.SkipStages))
	for _, name := range body.SkipStages {
		skip = append(skip, model.StageName(name))
	}

	// The run outlives a disconnected client; RunDeadline bounds it.
	run, err := s.deps.Coordinator.Run(context.WithoutCancel(r.Context()), pipeline.Request{
		Targets:    targets,
		SkipStages: skip,
	})
	switch {
	case errors.Is(err, pipeline.ErrNoTargets), errors.Is(err, pipeline.ErrUnknownStage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("running pipeline", logging.Field{Key: "error", Value: err})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("pipeline run served",
		logging.Field{Key: "run_id", Value: run.ID},
		logging.Field{Key: "targets", Value: len(run.Targets)})
	writeJSON(w, http.StatusOK, run)
}

// handleListRuns godoc
// @Summary List recent pipeline runs
// @Tags pipeline
// @Produce json
// @Param limit query int false "maximum runs"
// @Success 200 {array} model.PipelineRun
// @Router /pipeline/runs [get]
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Coordinator.History().List(queryLimit(r, 0)))
}

// handleGetRun godoc
// @Summary Get one pipeline run
// @Tags pipeline
// @Produce json
// @Param runID path string true "run id"
// @Success 200 {object} model.PipelineRun
// @Failure 404 {object} ErrorResponse
// @Router /pipeline/runs/{runID} [get]
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if run, ok := s.deps.Coordinator.History().Get(runID); ok {
		writeJSON(w, http.StatusOK, run)
		return
	}
	if s.deps.Archive != nil {
		run, err := s.deps.Archive.Get(r.Context(), runID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, run)
			return
		case !errors.Is(err, archive.ErrRunNotFound):
			s.logger.Warn("reading run archive", logging.Field{Key: "run_id", Value: runID}, logging.Field{Key: "error", Value: err})
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeError(w, http.StatusNotFound, "run not found")
}

// Targets

// handleListTargets godoc
// @Summary Latest state of every observed target
// @Tags targets
// @Produce json
// @Success 200 {array} TargetSummary
// @Router /targets [get]
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	seen := map[string]bool{}
	for _, u := range s.deps.Snapshots.Targets() {
		seen[u] = true
	}
	for _, u := range s.deps.Diffs.Targets() {
		seen[u] = true
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	out := make([]TargetSummary, 0, len(urls))
	for _, u := range urls {
		ts := TargetSummary{URL: u, Snapshots: len(s.deps.Snapshots.List(u))}
		if snap, ok := s.deps.Snapshots.Latest(u); ok {
			meta := snap.Meta()
			ts.LatestSnapshot = &meta
		}
		if d, ok := s.deps.Diffs.Latest(u); ok {
			ts.LatestDiff = d
		}
		out = append(out, ts)
	}
	writeJSON(w, http.StatusOK, out)
}

// targetParam canonicalizes ?url= so lookups match stored keys.
func targetParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return "", false
	}
	u, err := utils.Canonicalize(raw, utils.TargetOptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url: "+err.Error())
		return "", false
	}
	return u, true
}

// handleListSnapshots godoc
// @Summary Retained snapshots of one target, newest first
// @Tags targets
// @Produce json
// @Param url query string true "target url"
// @Param limit query int false "maximum snapshots"
// @Param content query bool false "include page content"
// @Success 200 {array} model.SnapshotMeta
// @Failure 400 {object} ErrorResponse
// @Router /targets/snapshots [get]
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	u, ok := targetParam(w, r)
	if !ok {
		return
	}
	snaps := s.deps.Snapshots.List(u)
	if limit := queryLimit(r, 0); limit > 0 && limit < len(snaps) {
		snaps = snaps[:limit]
	}
	if r.URL.Query().Get("content") == "true" {
		writeJSON(w, http.StatusOK, snaps)
		return
	}
	metas := make([]model.SnapshotMeta, 0, len(snaps))
	for _, snap := range snaps {
		metas = append(metas, snap.Meta())
	}
	writeJSON(w, http.StatusOK, metas)
}

// handleListDiffs godoc
// @Summary Retained diff results of one target, newest first
// @Tags targets
// @Produce json
// @Param url query string true "target url"
// @Param limit query int false "maximum diffs"
// @Success 200 {array} model.DiffResult
// @Failure 400 {object} ErrorResponse
// @Router /targets/diffs [get]
func (s *Server) handleListDiffs(w http.ResponseWriter, r *http.Request) {
	u, ok := targetParam(w, r)
	if !ok {
		return
	}
	diffs := s.deps.Diffs.List(u)
	if limit := queryLimit(r, 0); limit > 0 && limit < len(diffs) {
		diffs = diffs[:limit]
	}
	writeJSON(w, http.StatusOK, diffs)
}

// Analysis

// handleListAnalysis godoc
// @Summary Recent analysis results, newest first
// @Tags analysis
// @Produce json
// @Param limit query int false "maximum results"
// @Success 200 {array} model.AnalysisResult
// @Router /analysis [get]
func (s *Server) handleListAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analysis == nil {
		writeJSON(w, http.StatusOK, []*model.AnalysisResult{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Analysis.History(queryLimit(r, 0)))
}

// WebSockets

// handlePipelineWS streams every RunEvent until the client goes away.
func (s *Server) handlePipelineWS(w http.ResponseWriter, r *http.Request) {
	// Subscribed before the handshake completes so no event is missed.
	events, unsubscribe := s.deps.Coordinator.Subscribe()
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err})
		return
	}
	defer conn.Close()

	// Reads only detect the close; clients never send.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("pipeline stream opened")
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-gone:
			s.logger.Info("pipeline stream closed")
			return
		case <-r.Context().Done():
			return
		}
	}
}
