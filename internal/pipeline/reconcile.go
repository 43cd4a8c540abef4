package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/reconcile"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/formatting"
)

// ReconcileReport is the committed output of the reconciliation stage. The
// verdict and match results are computed deterministically; the model
// contributes the narrative summary and recommendations.
type ReconcileReport struct {
	Result          reconcile.Result `json:"result"`
	Summary         string           `json:"summary"`
	Recommendations []string         `json:"recommendations"`
}

type reconcileResponse struct {
	Verdict         string   `json:"verdict"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

type reconcileStage struct{}

func (s *reconcileStage) Name() string { return string(prompts.StageReconcile) }

func (s *reconcileStage) Requires() []string {
	return []string{string(prompts.StageInvoice), string(prompts.StageSpreadsheet)}
}

func (s *reconcileStage) NeedsSpreadsheet() bool { return true }

// Process compares invoice line items against spreadsheet rows. The match
// pass and verdict are computed locally so they are reproducible; the model
// narrates the outcome.
func (s *reconcileStage) Process(
	ctx context.Context,
	st *sessions.WorkflowState,
	rt *Runtime,
	trace *Trace,
) (json.RawMessage, error) {
	invoice, err := stageOutput[InvoiceAnalysis](st, string(prompts.StageInvoice))
	if err != nil {
		return nil, err
	}

	sheet, err := stageOutput[SheetAnalysis](st, string(prompts.StageSpreadsheet))
	if err != nil {
		return nil, err
	}

	trace.Thinking(
		"parsing",
		fmt.Sprintf(
			"comparing %d invoice lines against %d spreadsheet rows",
			len(invoice.LineItems), len(sheet.Rows),
		),
	)

	result := reconcile.Reconcile(invoiceLines(invoice), sheetLines(sheet), rt.Tolerance)

	trace.Thinking(
		"comparison",
		fmt.Sprintf(
			"%d matched, %d unmatched invoice lines, %d unmatched spreadsheet rows",
			len(result.Matches), len(result.UnmatchedInvoice), len(result.UnmatchedSheet),
		),
	)

	report := ReconcileReport{Result: result, Summary: result.Summary}

	prompt, err := prompts.Compose(prompts.StageReconcile, "Match results", result)
	if err != nil {
		return nil, err
	}

	resp, err := rt.Inference.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed, err := formatting.Parse[reconcileResponse](resp); err == nil {
		if parsed.Summary != "" {
			report.Summary = parsed.Summary
		}
		report.Recommendations = parsed.Recommendations
	} else {
		rt.Logger.WarnContext(ctx, "reconciliation narrative unusable", "error", err)
	}

	trace.Thinking("verdict", fmt.Sprintf("reconciliation verdict: %s", result.Verdict))

	return json.Marshal(report)
}

func invoiceLines(a *InvoiceAnalysis) []reconcile.Line {
	lines := make([]reconcile.Line, 0, len(a.LineItems))
	for _, item := range a.LineItems {
		lines = append(lines, reconcile.Line{
			Identifier:  item.Identifier,
			Description: item.Description,
			Amount:      item.AmountCents,
		})
	}
	return lines
}

func sheetLines(a *SheetAnalysis) []reconcile.Line {
	lines := make([]reconcile.Line, 0, len(a.Rows))
	for _, row := range a.Rows {
		lines = append(lines, reconcile.Line{
			Identifier:  row.Identifier,
			Description: row.Description,
			Amount:      row.AmountCents,
		})
	}
	return lines
}
