package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/housedesk-backend/internal/data/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

type HookKind string

const (
	HookWrite      HookKind = "write"
	HookConflict   HookKind = "conflict"
	HookRetry      HookKind = "retry"
	HookTransition HookKind = "transition"
	HookDenied     HookKind = "denied"
)

// HookEvent is one signal. Only the fields relevant to Kind are set.
type HookEvent struct {
	Kind     HookKind
	Op       string
	Status   string
	Duration time.Duration
	From     requests.Status
	To       requests.Status
	Override bool
	Reason   string
}

// HooksRecorder keeps every hook signal in arrival order. Safe for use from
// concurrent transitions.
type HooksRecorder struct {
	mu     sync.Mutex
	events []HookEvent
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) add(e HookEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *HooksRecorder) WriteDone(op, status string, dur time.Duration) {
	h.add(HookEvent{Kind: HookWrite, Op: op, Status: status, Duration: dur})
}

func (h *HooksRecorder) Conflict(op string) { h.add(HookEvent{Kind: HookConflict, Op: op}) }
func (h *HooksRecorder) Retry(op string)    { h.add(HookEvent{Kind: HookRetry, Op: op}) }

func (h *HooksRecorder) Transitioned(from, to requests.Status, override bool) {
	h.add(HookEvent{Kind: HookTransition, From: from, To: to, Override: override})
}

func (h *HooksRecorder) Denied(reason string) {
	h.add(HookEvent{Kind: HookDenied, Reason: reason})
}

// Of returns a copy of the events of one kind.
func (h *HooksRecorder) Of(kind HookKind) []HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HookEvent
	for _, e := range h.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
