// Package sessions implements session state for analysis runs: the
// WorkflowState threaded through pipeline stages, the append-only trace of
// stage events, and durable session persistence.
package sessions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

// Session lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status permits no further stage execution
// without an explicit resume.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StageStatus records how a single stage resolved.
type StageStatus string

// Stage resolution states recorded in WorkflowState.
const (
	StageSuccess StageStatus = "success"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// InputKind distinguishes the two accepted input document roles.
type InputKind string

// Accepted input roles.
const (
	InputInvoice     InputKind = "invoice"
	InputSpreadsheet InputKind = "spreadsheet"
)

// InputFile references an uploaded input document by its registered id and
// blob storage key. The session never holds file bytes.
type InputFile struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Kind        InputKind `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"storage_key"`
	Text        string    `json:"text,omitempty"`
}

// StageResult is the committed outcome of one stage, stored in WorkflowState
// under the stage's key. Output holds the stage's structured output for
// successful stages; skipped and failed stages leave it empty.
type StageResult struct {
	Status      StageStatus     `json:"status"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// WorkflowState is the accumulated state threaded through all stages of one
// run: per-stage outputs keyed by stage name plus run metadata. Stage outputs
// are append-only; once a stage's key is written it is never replaced.
type WorkflowState struct {
	SessionID    uuid.UUID              `json:"session_id"`
	Inputs       []InputFile            `json:"inputs"`
	Outputs      map[string]StageResult `json:"outputs"`
	CurrentStage int                    `json:"current_stage"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// NewWorkflowState creates an empty state for the given session and inputs.
func NewWorkflowState(sessionID uuid.UUID, inputs []InputFile) WorkflowState {
	now := time.Now().UTC()
	return WorkflowState{
		SessionID: sessionID,
		Inputs:    inputs,
		Outputs:   make(map[string]StageResult),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Commit writes a stage result under the given key. Returns ErrStageConflict
// if the key is already present; committed stage outputs are never replaced.
func (s *WorkflowState) Commit(stage string, result StageResult) error {
	if _, exists := s.Outputs[stage]; exists {
		return fmt.Errorf("%w: %s", ErrStageConflict, stage)
	}
	s.Outputs[stage] = result
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Result returns the committed result for a stage, if present.
func (s *WorkflowState) Result(stage string) (StageResult, bool) {
	r, ok := s.Outputs[stage]
	return r, ok
}

// Succeeded reports whether the stage committed a successful output.
func (s *WorkflowState) Succeeded(stage string) bool {
	r, ok := s.Outputs[stage]
	return ok && r.Status == StageSuccess
}

// InputsOfKind returns the input files with the given role, in upload order.
func (s *WorkflowState) InputsOfKind(kind InputKind) []InputFile {
	var files []InputFile
	for _, in := range s.Inputs {
		if in.Kind == kind {
			files = append(files, in)
		}
	}
	return files
}

// HasInput reports whether any input of the given role was supplied.
func (s *WorkflowState) HasInput(kind InputKind) bool {
	return len(s.InputsOfKind(kind)) > 0
}

// Session is the durable record of one run: the workflow state, the ordered
// trace, and the overall status. Owned by the Store; the engine works on a
// transient copy and checkpoints it back after each stage.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	State         WorkflowState `json:"state"`
	Trace         []TraceEvent  `json:"trace"`
	Status        Status        `json:"status"`
	FailureStage  string        `json:"failure_stage,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// New creates a pending session with an empty workflow state over the given inputs.
func New(inputs []InputFile) *Session {
	id := uuid.New()
	state := NewWorkflowState(id, inputs)
	return &Session{
		ID:        id,
		State:     state,
		Trace:     []TraceEvent{},
		Status:    StatusPending,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.CreatedAt,
	}
}

// Metadata is the summary form of a session returned by list operations.
type Metadata struct {
	ID           uuid.UUID `json:"id"`
	Status       Status    `json:"status"`
	CurrentStage int       `json:"current_stage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Meta returns the session's summary metadata.
func (s *Session) Meta() Metadata {
	return Metadata{
		ID:           s.ID,
		Status:       s.Status,
		CurrentStage: s.State.CurrentStage,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
