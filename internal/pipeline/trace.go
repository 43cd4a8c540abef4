package pipeline

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/sessions"
)

// Trace is a stage-scoped view over the session trace recorder. Stages use
// it to surface live progress; every method is side-effect only and never
// fails the stage.
type Trace struct {
	rec       sessions.Recorder
	sessionID uuid.UUID
	stage     string
}

func newTrace(rec sessions.Recorder, sessionID uuid.UUID, stage string) *Trace {
	return &Trace{rec: rec, sessionID: sessionID, stage: stage}
}

type thinkingPayload struct {
	Step string `json:"step"`
	Text string `json:"text"`
}

// Started records that the stage began executing.
func (t *Trace) Started() {
	t.rec.Append(t.sessionID, sessions.NewEvent(t.stage, sessions.EventStarted, nil))
}

// Thinking records an intermediate reasoning step, keyed so the UI can group
// updates within a stage.
func (t *Trace) Thinking(step, text string) {
	t.rec.Append(t.sessionID, sessions.NewEvent(
		t.stage,
		sessions.EventThinking,
		thinkingPayload{Step: step, Text: text},
	))
}

// Result records the stage's committed output.
func (t *Trace) Result(output json.RawMessage) {
	t.rec.Append(t.sessionID, sessions.NewEvent(t.stage, sessions.EventResult, output))
}

// Failed records the stage's failure reason.
func (t *Trace) Failed(reason string) {
	t.rec.Append(t.sessionID, sessions.NewEvent(
		t.stage,
		sessions.EventError,
		map[string]string{"reason": reason},
	))
}

// Skipped records that the stage was bypassed.
func (t *Trace) Skipped(reason string) {
	t.rec.Append(t.sessionID, sessions.NewEvent(
		t.stage,
		sessions.EventSkipped,
		map[string]string{"reason": reason},
	))
}
