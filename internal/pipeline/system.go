// Package pipeline implements the staged analysis workflow: the engine that
// drives stages over a session's workflow state, the stages themselves, and
// the session-facing operations exposed over HTTP.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/documents"
	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/pagination"
)

// StartInput is one input document for a new session. Data carries uploaded
// file bytes; Text carries pasted content directly and skips blob storage.
type StartInput struct {
	Kind        sessions.InputKind
	Filename    string
	ContentType string
	Data        []byte
	Text        string
}

// StartCommand carries the inputs for a new analysis session.
type StartCommand struct {
	Inputs []StartInput
}

// StageReport describes one stage's position in a session run.
type StageReport struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusReport is the live status view of a session.
type StatusReport struct {
	ID            uuid.UUID       `json:"id"`
	Status        sessions.Status `json:"status"`
	CurrentStage  string          `json:"current_stage,omitempty"`
	Stages        []StageReport   `json:"stages"`
	FailureStage  string          `json:"failure_stage,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RunResult is the final output view of a completed session.
type RunResult struct {
	SessionID   uuid.UUID                       `json:"session_id"`
	Verdict     string                          `json:"verdict,omitempty"`
	Outputs     map[string]sessions.StageResult `json:"outputs"`
	CompletedAt time.Time                       `json:"completed_at"`
}

// System defines the public contract for session workflow operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Start(ctx context.Context, cmd StartCommand) (*sessions.Session, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[sessions.Metadata], error)
	Find(ctx context.Context, id uuid.UUID) (*sessions.Session, error)
	Status(ctx context.Context, id uuid.UUID) (*StatusReport, error)
	Result(ctx context.Context, id uuid.UUID) (*RunResult, error)
	Trace(ctx context.Context, id uuid.UUID) ([]sessions.TraceEvent, error)
	Resume(ctx context.Context, id uuid.UUID) (*sessions.Session, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type service struct {
	rt         *Runtime
	runner     *Runner
	stages     []Stage
	documents  documents.System
	pagination pagination.Config
	logger     *slog.Logger
}

// New creates the session workflow System over the given runtime, runner,
// and document registry.
func New(
	rt *Runtime,
	runner *Runner,
	stages []Stage,
	docs documents.System,
	pagination pagination.Config,
) System {
	return &service{
		rt:         rt,
		runner:     runner,
		stages:     stages,
		documents:  docs,
		pagination: pagination,
		logger:     rt.Logger.With("system", "pipeline"),
	}
}

func (s *service) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, s.pagination, maxUploadSize)
}

// Start registers the input documents, creates a pending session, and
// launches its run in the background.
func (s *service) Start(ctx context.Context, cmd StartCommand) (*sessions.Session, error) {
	inputs, err := s.registerInputs(ctx, cmd.Inputs)
	if err != nil {
		return nil, err
	}

	hasInvoice := false
	for _, in := range inputs {
		if in.Kind == sessions.InputInvoice {
			hasInvoice = true
			break
		}
	}
	if !hasInvoice {
		return nil, ErrNoInvoice
	}

	sess := sessions.New(inputs)
	if err := s.rt.Store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if err := s.runner.Start(sess.ID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session started", "session_id", sess.ID, "inputs", len(inputs))
	return sess, nil
}

// registerInputs stores uploaded files through the document registry and
// extracts their text payloads. Pasted text inputs bypass storage.
func (s *service) registerInputs(ctx context.Context, in []StartInput) ([]sessions.InputFile, error) {
	var inputs []sessions.InputFile
	for _, input := range in {
		if len(input.Data) == 0 {
			if input.Text == "" {
				return nil, fmt.Errorf("%w: input %s is empty", documents.ErrInvalidFile, input.Filename)
			}
			inputs = append(inputs, sessions.InputFile{
				Kind:        input.Kind,
				Filename:    input.Filename,
				ContentType: "text/plain",
				Text:        input.Text,
			})
			continue
		}

		doc, err := s.documents.Create(ctx, documents.CreateCommand{
			Data:        input.Data,
			Filename:    input.Filename,
			ContentType: input.ContentType,
		})
		if err != nil {
			return nil, err
		}

		file := sessions.InputFile{
			DocumentID:  doc.ID,
			Kind:        input.Kind,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			StorageKey:  doc.StorageKey,
		}

		if !extract.IsImage(doc.ContentType) {
			text, err := s.rt.Extractor.Text(doc.Filename, doc.ContentType, input.Data)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", doc.Filename, err)
			}
			file.Text = text
		}

		inputs = append(inputs, file)
	}
	return inputs, nil
}

func (s *service) List(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[sessions.Metadata], error) {
	page.Normalize(s.pagination)

	metas, err := s.rt.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	result := pagination.Paginate(metas, page)
	return &result, nil
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	return s.rt.Store.Load(ctx, id)
}

// Status reports per-stage progress for a session. Stage statuses derive
// from committed outputs; the stage the engine is on reports as running.
func (s *service) Status(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	sess, err := s.rt.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ID:            sess.ID,
		Status:        sess.Status,
		FailureStage:  sess.FailureStage,
		FailureReason: sess.FailureReason,
		UpdatedAt:     sess.UpdatedAt,
	}

	for i, stage := range s.stages {
		name := stage.Name()
		entry := StageReport{Name: name, Status: "pending"}

		switch {
		case sess.FailureStage == name:
			entry.Status = string(sessions.StageFailed)
		case sess.Status == sessions.StatusRunning && sess.State.CurrentStage == i:
			entry.Status = "running"
		default:
			if result, ok := sess.State.Result(name); ok {
				entry.Status = string(result.Status)
			}
		}

		if sess.Status == sessions.StatusRunning && sess.State.CurrentStage == i {
			report.CurrentStage = name
		}
		report.Stages = append(report.Stages, entry)
	}

	return report, nil
}

// Result returns the committed outputs of a completed session. Returns
// ErrRunNotComplete for sessions in any other state.
func (s *service) Result(ctx context.Context, id uuid.UUID) (*RunResult, error) {
	sess, err := s.rt.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status != sessions.StatusCompleted {
		return nil, fmt.Errorf("%w: session is %s", sessions.ErrRunNotComplete, sess.Status)
	}

	result := &RunResult{
		SessionID:   sess.ID,
		Outputs:     sess.State.Outputs,
		CompletedAt: sess.UpdatedAt,
	}

	if report, err := stageOutput[ReconcileReport](&sess.State, string(prompts.StageReconcile)); err == nil {
		result.Verdict = string(report.Result.Verdict)
	}

	return result, nil
}

// Trace returns the session's trace: the persisted history plus any live
// events from a run in flight.
func (s *service) Trace(ctx context.Context, id uuid.UUID) ([]sessions.TraceEvent, error) {
	sess, err := s.rt.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	events := sess.Trace
	if s.runner.Running(id) {
		var last time.Time
		if len(events) > 0 {
			last = events[len(events)-1].Timestamp
		}
		for _, ev := range s.rt.Trace.Read(id) {
			if ev.Timestamp.After(last) {
				events = append(events, ev)
			}
		}
	}

	return events, nil
}

// Resume relaunches a failed or pending session from its last checkpoint.
func (s *service) Resume(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	sess, err := s.rt.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case s.runner.Running(id) || sess.Status == sessions.StatusRunning:
		return nil, fmt.Errorf("%w: %s", ErrSessionRunning, id)
	case sess.Status == sessions.StatusCompleted:
		return nil, fmt.Errorf("%w: %s", ErrSessionComplete, id)
	}

	if err := s.runner.Start(id); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session resumed", "session_id", id, "from_stage", sess.State.CurrentStage)
	return sess, nil
}

// Cancel requests cooperative cancellation of a session's run in flight.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	if _, err := s.rt.Store.Load(ctx, id); err != nil {
		return err
	}

	if err := s.runner.Cancel(id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "session cancellation requested", "session_id", id)
	return nil
}
