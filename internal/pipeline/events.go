package pipeline

import (
	"sync"
	"time"

	"github.com/raysh454/observer/internal/model"
)

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventStageChanged EventType = "stage_changed"
	EventRunCompleted EventType = "run_completed"
)

// RunEvent reports progress of one run.
type RunEvent struct {
	RunID     string            `json:"run_id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Stage     model.StageName   `json:"stage,omitempty"`
	Status    model.StageStatus `json:"status,omitempty"`
	Error     string            `json:"error,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Targets   []string          `json:"targets,omitempty"`
	Summary   *model.RunSummary `json:"summary,omitempty"`
}

// Hub fans run events out to subscribers. Slow subscribers miss events
// rather than stall a run.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan RunEvent
	nextID int
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[int]chan RunEvent), buffer: buffer}
}

// Subscribe returns a channel of events and a function that unsubscribes
// and closes it.
func (h *Hub) Subscribe() (<-chan RunEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan RunEvent, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev RunEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		// Non-blocking send; drop if buffer is full.
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
