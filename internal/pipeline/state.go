package pipeline

import (
	"errors"
	"fmt"

	"github.com/raysh454/observer/internal/model"
)

// StageOrder is the fixed order every run resolves its stages in.
var StageOrder = []model.StageName{
	model.StageFetch,
	model.StageDiff,
	model.StageAnalyze,
	model.StageReport,
}

// Skip reasons recorded on skipped stages.
const (
	ReasonRequested     = "skipped by request"
	ReasonDeadline      = "run deadline exceeded"
	ReasonCanceled      = "run canceled"
	ReasonNoFetchResult = "no fetch results"
)

var ErrIllegalTransition = errors.New("pipeline: illegal stage transition")

var transitions = map[model.StageStatus][]model.StageStatus{
	model.StagePending: {model.StageRunning, model.StageSkipped},
	model.StageRunning: {model.StageSuccess, model.StageFailed},
}

// ValidStage reports whether name is one of the four stages.
func ValidStage(name model.StageName) bool {
	for _, s := range StageOrder {
		if s == name {
			return true
		}
	}
	return false
}

// CanTransition reports whether a stage may move from one status to another.
func CanTransition(from, to model.StageStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves stage to status to, or returns ErrIllegalTransition and
// leaves it unchanged.
func Transition(stage *model.StageResult, to model.StageStatus) error {
	if !CanTransition(stage.Status, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, stage.Name, stage.Status, to)
	}
	stage.Status = to
	return nil
}
