package builtin

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viamrobotics/footstepnav/services/navigation"
)

// maxHistory bounds the number of runs remembered.
const maxHistory = 256

// history records the status of runs, newest first.
type history struct {
	mu   sync.Mutex
	runs []navigation.RunStatus
}

func newHistory() *history {
	return &history{}
}

// start records a new in-progress run and returns its ID.
func (h *history) start(strategy navigation.Strategy, reason navigation.RunReason, pathLength int, now time.Time) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := navigation.RunStatus{
		ID:         uuid.New(),
		Strategy:   strategy,
		Reason:     reason,
		State:      navigation.RunStateInProgress,
		PathLength: pathLength,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	// prepend so that lower indices are newer
	h.runs = append([]navigation.RunStatus{status}, h.runs...)
	if len(h.runs) > maxHistory {
		h.runs = h.runs[:maxHistory]
	}
	return status.ID
}

// finish moves the run with the given ID into a terminal state. Runs that already ended are left
// untouched.
func (h *history) finish(id uuid.UUID, state navigation.RunState, reason string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.runs {
		if h.runs[i].ID != id {
			continue
		}
		if h.runs[i].Done() {
			return
		}
		h.runs[i].State = state
		h.runs[i].Err = reason
		h.runs[i].UpdatedAt = now
		return
	}
}

func (h *history) list() []navigation.RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	runs := make([]navigation.RunStatus, len(h.runs))
	copy(runs, h.runs)
	return runs
}
