package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/sessions"
)

// CancelCheck reports whether a cooperative cancellation has been requested.
// The engine consults it between stages only; a stage that has started always
// runs to completion or timeout.
type CancelCheck func() bool

// Engine executes the staged analysis workflow for one session at a time.
// After every stage it checkpoints the full session record, so a later run
// resumes from the first stage without a committed output.
type Engine struct {
	rt     *Runtime
	stages []Stage
}

// NewEngine creates an Engine over the given stages in execution order.
func NewEngine(rt *Runtime, stages []Stage) *Engine {
	return &Engine{rt: rt, stages: stages}
}

// Run executes the workflow for a session from its current checkpoint.
// Completed sessions cannot be re-run; failed and pending sessions resume
// from the first stage without a committed output.
func (e *Engine) Run(ctx context.Context, id uuid.UUID, cancelled CancelCheck) (*sessions.Session, error) {
	sess, err := e.rt.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case sessions.StatusRunning:
		return nil, fmt.Errorf("%w: %s", ErrSessionRunning, id)
	case sessions.StatusCompleted:
		return nil, fmt.Errorf("%w: %s", ErrSessionComplete, id)
	}

	// Durable trace history lives on the session record. Live events from
	// this run accumulate in the recorder and are appended at checkpoints.
	e.rt.Trace.Drop(sess.ID)
	base := sess.Trace

	sess.Status = sessions.StatusRunning
	sess.FailureStage = ""
	sess.FailureReason = ""
	if err := e.checkpoint(ctx, sess, base); err != nil {
		return nil, err
	}

	e.rt.Logger.InfoContext(ctx, "run started", "session_id", sess.ID)

	for i, stage := range e.stages {
		name := stage.Name()
		if _, done := sess.State.Result(name); done {
			continue
		}

		if cancelled != nil && cancelled() {
			return e.fail(ctx, sess, base, name, ErrRunCancelled)
		}

		sess.State.CurrentStage = i
		trace := newTrace(e.rt.Trace, sess.ID, name)

		if reason, skip := e.shouldSkip(sess, stage); skip {
			if err := e.commitSkip(ctx, sess, base, trace, name, reason); err != nil {
				return nil, err
			}
			continue
		}

		if err := e.checkPrerequisites(sess, stage); err != nil {
			trace.Failed(err.Error())
			return e.fail(ctx, sess, base, name, err)
		}

		trace.Started()
		output, err := e.process(ctx, sess, stage, trace)
		if err != nil {
			if errors.Is(err, ErrSkipStage) {
				if err := e.commitSkip(ctx, sess, base, trace, name, err.Error()); err != nil {
					return nil, err
				}
				continue
			}
			trace.Failed(err.Error())
			return e.fail(ctx, sess, base, name, err)
		}

		if err := sess.State.Commit(name, sessions.StageResult{
			Status:      sessions.StageSuccess,
			Output:      output,
			CompletedAt: time.Now().UTC(),
		}); err != nil {
			return e.fail(ctx, sess, base, name, err)
		}

		trace.Result(output)
		if err := e.checkpoint(ctx, sess, base); err != nil {
			return nil, err
		}

		e.rt.Logger.InfoContext(ctx, "stage complete", "session_id", sess.ID, "stage", name)
	}

	sess.Status = sessions.StatusCompleted
	if err := e.checkpoint(ctx, sess, base); err != nil {
		return nil, err
	}

	e.rt.Logger.InfoContext(ctx, "run complete", "session_id", sess.ID)
	return sess, nil
}

// process runs one stage under the configured per-stage timeout.
func (e *Engine) process(
	ctx context.Context,
	sess *sessions.Session,
	stage Stage,
	trace *Trace,
) (output []byte, err error) {
	stageCtx := ctx
	if e.rt.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, e.rt.StageTimeout)
		defer cancel()
	}

	output, err = stage.Process(stageCtx, &sess.State, e.rt, trace)
	if err != nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s after %s", ErrStageTimeout, stage.Name(), e.rt.StageTimeout)
	}
	if err != nil && !errors.Is(err, ErrSkipStage) {
		return nil, fmt.Errorf("%w: %s: %w", ErrStageExecution, stage.Name(), err)
	}
	return output, err
}

// shouldSkip applies the optional-document policy: stages that need a
// spreadsheet are skipped when none was uploaded, and a stage whose
// prerequisite was skipped is skipped in turn.
func (e *Engine) shouldSkip(sess *sessions.Session, stage Stage) (string, bool) {
	if stage.NeedsSpreadsheet() && !sess.State.HasInput(sessions.InputSpreadsheet) {
		return "no spreadsheet document provided", true
	}

	for _, req := range stage.Requires() {
		if result, ok := sess.State.Result(req); ok && result.Status == sessions.StageSkipped {
			return fmt.Sprintf("prerequisite stage %s was skipped", req), true
		}
	}

	return "", false
}

func (e *Engine) checkPrerequisites(sess *sessions.Session, stage Stage) error {
	for _, req := range stage.Requires() {
		if !sess.State.Succeeded(req) {
			return fmt.Errorf("%w: %s needs %s", ErrMissingPrerequisite, stage.Name(), req)
		}
	}
	return nil
}

func (e *Engine) commitSkip(
	ctx context.Context,
	sess *sessions.Session,
	base []sessions.TraceEvent,
	trace *Trace,
	name, reason string,
) error {
	if err := sess.State.Commit(name, sessions.StageResult{
		Status:      sessions.StageSkipped,
		CompletedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	trace.Skipped(reason)
	e.rt.Logger.InfoContext(ctx, "stage skipped", "session_id", sess.ID, "stage", name, "reason", reason)
	return e.checkpoint(ctx, sess, base)
}

// fail marks the session failed at the given stage and checkpoints. Failed
// stages commit no output, so a resume re-runs them.
func (e *Engine) fail(
	ctx context.Context,
	sess *sessions.Session,
	base []sessions.TraceEvent,
	stage string,
	cause error,
) (*sessions.Session, error) {
	sess.Status = sessions.StatusFailed
	sess.FailureStage = stage
	sess.FailureReason = cause.Error()

	if err := e.checkpoint(ctx, sess, base); err != nil {
		return nil, errors.Join(cause, err)
	}

	e.rt.Logger.WarnContext(
		ctx, "run failed",
		"session_id", sess.ID,
		"stage", stage,
		"reason", cause.Error(),
	)
	return sess, cause
}

// checkpoint persists the session record with the trace accumulated so far.
func (e *Engine) checkpoint(ctx context.Context, sess *sessions.Session, base []sessions.TraceEvent) error {
	live := e.rt.Trace.Read(sess.ID)
	sess.Trace = make([]sessions.TraceEvent, 0, len(base)+len(live))
	sess.Trace = append(sess.Trace, base...)
	sess.Trace = append(sess.Trace, live...)
	sess.UpdatedAt = time.Now().UTC()

	if err := e.rt.Store.Save(ctx, sess); err != nil {
		return fmt.Errorf("checkpoint session %s: %w", sess.ID, err)
	}
	return nil
}
