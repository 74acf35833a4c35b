// Package diff compares consecutive snapshots of a target and flags
// anomalies. The engine holds no state: the same inputs always produce the
// same DiffResult.
package diff

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/observer/internal/model"
)

// Location labels used in Change entries.
const (
	LocationContent        = "content"
	LocationTitle          = "title"
	LocationErrorIndicator = "error_indicator"
	LocationHealthStatus   = "health_status"
)

type Engine struct {
	thresholds Thresholds
}

// NewEngine returns an Engine using t. Zero fields fall back to
// DefaultThresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t.withDefaults()}
}

func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Diff compares current against previous, which may be nil when the target
// has no stored predecessor. Timestamps on the result come from the
// snapshots so repeated calls are identical.
func (e *Engine) Diff(current, previous *model.Snapshot) *model.DiffResult {
	res := &model.DiffResult{
		URL:                current.URL,
		Timestamp:          current.Timestamp,
		HasChanges:         true,
		Summary:            model.ChangeSummary{ContentChanged: true},
		Changes:            []model.Change{},
		Anomalies:          []model.Anomaly{},
		CurrentFingerprint: current.Fingerprint,
	}

	if previous != nil {
		prevTS := previous.Timestamp
		res.PreviousTimestamp = &prevTS
		res.PreviousFingerprint = previous.Fingerprint
		res.HasChanges = current.Fingerprint != previous.Fingerprint
		res.Summary = model.ChangeSummary{
			ContentChanged:      res.HasChanges,
			StatusChanged:       current.StatusCode != previous.StatusCode,
			SizeChangePercent:   sizeChangePercent(current.ContentLength, previous.ContentLength),
			ResponseTimeDeltaMs: current.ElapsedMs - previous.ElapsedMs,
		}
		if res.HasChanges && current.Content != "" && previous.Content != "" {
			res.Changes = e.structural(current, previous)
		}
	}

	res.Anomalies = e.anomalies(current, previous, res.Summary.SizeChangePercent)
	return res
}

func sizeChangePercent(cur, prev int) float64 {
	return float64(cur-prev) / float64(max(prev, 1)) * 100
}

// structural is the cheap directional comparison: net line counts with
// go-diff churn, title changes, and error/health indicator substrings.
// Churn is only computed while both sides stay within ChurnMaxLines.
func (e *Engine) structural(current, previous *model.Snapshot) []model.Change {
	changes := []model.Change{}

	curLines := countLines(current.Content)
	prevLines := countLines(previous.Content)
	churn := ""
	if max(curLines, prevLines) <= e.thresholds.ChurnMaxLines {
		inserted, deleted := lineChurn(previous.Content, current.Content)
		churn = fmt.Sprintf(" (%d inserted, %d deleted)", inserted, deleted)
	}

	switch delta := curLines - prevLines; {
	case delta > 0:
		changes = append(changes, model.Change{
			Kind:        model.ChangeAdded,
			Location:    LocationContent,
			Description: fmt.Sprintf("net +%d lines%s", delta, churn),
			Severity:    model.SeverityInfo,
		})
	case delta < 0:
		sev := model.SeverityInfo
		if -delta > e.thresholds.LineDropWarn {
			sev = model.SeverityWarning
		}
		changes = append(changes, model.Change{
			Kind:        model.ChangeRemoved,
			Location:    LocationContent,
			Description: fmt.Sprintf("net %d lines%s", delta, churn),
			Severity:    sev,
		})
	default:
		changes = append(changes, model.Change{
			Kind:        model.ChangeModified,
			Location:    LocationContent,
			Description: fmt.Sprintf("content changed, line count unchanged at %d%s", curLines, churn),
			Severity:    model.SeverityInfo,
		})
	}

	if current.Title != previous.Title && (current.Title != "" || previous.Title != "") {
		changes = append(changes, model.Change{
			Kind:        model.ChangeModified,
			Location:    LocationTitle,
			Description: fmt.Sprintf("title changed from %q to %q", previous.Title, current.Title),
			Severity:    model.SeverityInfo,
		})
	}

	cur := strings.ToLower(current.Content)
	prev := strings.ToLower(previous.Content)

	for _, ind := range e.thresholds.ErrorIndicators {
		needle := strings.ToLower(ind)
		if needle == "" {
			continue
		}
		if strings.Contains(cur, needle) && !strings.Contains(prev, needle) {
			changes = append(changes, model.Change{
				Kind:        model.ChangeAdded,
				Location:    LocationErrorIndicator,
				Description: fmt.Sprintf("error indicator %q appeared", ind),
				Severity:    model.SeverityCritical,
			})
		}
	}
	for _, ind := range e.thresholds.HealthIndicators {
		needle := strings.ToLower(ind)
		if needle == "" {
			continue
		}
		if strings.Contains(prev, needle) && !strings.Contains(cur, needle) {
			changes = append(changes, model.Change{
				Kind:        model.ChangeRemoved,
				Location:    LocationHealthStatus,
				Description: fmt.Sprintf("health indicator %q disappeared", ind),
				Severity:    model.SeverityWarning,
			})
		}
	}

	return changes
}

func (e *Engine) anomalies(current, previous *model.Snapshot, sizePct float64) []model.Anomaly {
	out := []model.Anomaly{}
	add := func(kind model.AnomalyKind, sev model.Severity, msg string) {
		out = append(out, model.Anomaly{
			Kind:       kind,
			Message:    msg,
			Severity:   sev,
			DetectedAt: current.Timestamp,
		})
	}

	if current.StatusCode != http.StatusOK {
		sev := model.SeverityWarning
		if current.StatusCode >= 500 {
			sev = model.SeverityCritical
		}
		msg := fmt.Sprintf("unexpected status code %d", current.StatusCode)
		if current.StatusCode == 0 {
			msg = "fetch failed"
			if current.Error != "" {
				msg += ": " + current.Error
			}
		}
		add(model.AnomalyStatusError, sev, msg)
	}

	if current.ElapsedMs > e.thresholds.LatencyWarnMs {
		add(model.AnomalyLatencySpike, model.SeverityWarning,
			fmt.Sprintf("response took %dms (threshold %dms)", current.ElapsedMs, e.thresholds.LatencyWarnMs))
	}

	if current.ContentLength == 0 {
		add(model.AnomalyEmptyContent, model.SeverityCritical, "response body is empty")
	}

	if previous != nil {
		if abs := math.Abs(sizePct); abs > e.thresholds.SizeWarnPercent {
			sev := model.SeverityWarning
			if abs > e.thresholds.SizeCriticalPercent {
				sev = model.SeverityCritical
			}
			add(model.AnomalyMajorContentChange, sev,
				fmt.Sprintf("content size changed by %.1f%%", sizePct))
		}
	}

	return out
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

// lineChurn counts inserted and deleted lines between a and b using a
// line-mode diff.
func lineChurn(a, b string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	ac, bc, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ac, bc, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += textLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += textLines(d.Text)
		}
	}
	return inserted, deleted
}

func textLines(s string) int {
	n := strings.Count(s, "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
