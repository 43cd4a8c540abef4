package sessions

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a trace event.
type EventKind string

// Trace event kinds. Skipped marks a stage bypassed by the optional-stage
// policy rather than one that ran.
const (
	EventStarted  EventKind = "started"
	EventThinking EventKind = "thinking"
	EventResult   EventKind = "result"
	EventError    EventKind = "error"
	EventSkipped  EventKind = "skipped"
)

// TraceEvent is one timestamped entry in a session's trace. Events are
// immutable once appended; append order is the only valid read order.
type TraceEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Stage     string          `json:"stage"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent creates a trace event with the current time and a JSON-encoded
// payload. Payloads that fail to encode are recorded as their string form so
// tracing never blocks the caller.
func NewEvent(stage string, kind EventKind, payload any) TraceEvent {
	ev := TraceEvent{
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Kind:      kind,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			data, _ = json.Marshal(slog.AnyValue(payload).String())
		}
		ev.Payload = data
	}
	return ev
}

// Recorder accumulates trace events per session for live display. Append is
// side-effect only and never fails the caller; recording problems are logged
// and swallowed.
type Recorder interface {
	Append(sessionID uuid.UUID, ev TraceEvent)
	Read(sessionID uuid.UUID) []TraceEvent
	Drop(sessionID uuid.UUID)
}

type memoryRecorder struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]TraceEvent
	logger *slog.Logger
}

// NewRecorder creates an in-memory trace recorder. Durable trace history
// rides along with the session record at each checkpoint; the recorder only
// serves the live view between checkpoints.
func NewRecorder(logger *slog.Logger) Recorder {
	return &memoryRecorder{
		events: make(map[uuid.UUID][]TraceEvent),
		logger: logger.With("system", "trace"),
	}
}

func (r *memoryRecorder) Append(sessionID uuid.UUID, ev TraceEvent) {
	if sessionID == uuid.Nil {
		r.logger.Warn("trace event dropped: no session id", "stage", ev.Stage, "kind", ev.Kind)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[sessionID] = append(r.events[sessionID], ev)
}

func (r *memoryRecorder) Read(sessionID uuid.UUID) []TraceEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[sessionID]
	out := make([]TraceEvent, len(events))
	copy(out, events)
	return out
}

func (r *memoryRecorder) Drop(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, sessionID)
}
