package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/sessions"
)

// Stage is one step of the analysis workflow. Process reads prior stage
// outputs from the workflow state and returns this stage's structured output;
// the engine owns committing results, checkpointing, and trace bookkeeping.
type Stage interface {
	Name() string
	Requires() []string
	NeedsSpreadsheet() bool
	Process(ctx context.Context, st *sessions.WorkflowState, rt *Runtime, trace *Trace) (json.RawMessage, error)
}

// DefaultStages returns the workflow stages in execution order.
func DefaultStages() []Stage {
	return []Stage{
		&invoiceStage{},
		&spreadsheetStage{},
		&reconcileStage{},
		&reclassifyStage{},
		&amortizeStage{},
	}
}

// stageOutput decodes a prior stage's committed output into its typed form.
func stageOutput[T any](st *sessions.WorkflowState, stage string) (*T, error) {
	result, ok := st.Result(stage)
	if !ok || result.Status != sessions.StageSuccess {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrerequisite, stage)
	}

	var out T
	if err := json.Unmarshal(result.Output, &out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", stage, err)
	}

	return &out, nil
}
