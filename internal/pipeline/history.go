package pipeline

import (
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/ringbuf"
)

// History keeps the most recent completed runs.
type History struct {
	q *ringbuf.Queue[*model.PipelineRun]
}

func NewHistory(capacity int) *History {
	return &History{q: ringbuf.New[*model.PipelineRun](capacity)}
}

func (h *History) Push(run *model.PipelineRun) {
	h.q.Push(run)
}

// List returns at most limit runs, most recent first; limit <= 0 means all.
func (h *History) List(limit int) []*model.PipelineRun {
	return h.q.Head(limit)
}

// Get finds a retained run by id.
func (h *History) Get(id string) (*model.PipelineRun, bool) {
	for _, run := range h.q.Items() {
		if run.ID == id {
			return run, true
		}
	}
	return nil, false
}

func (h *History) Len() int { return h.q.Len() }
