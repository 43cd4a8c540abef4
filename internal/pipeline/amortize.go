package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/amortize"
	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/formatting"
)

// AmortizationReport is the committed output of the amortization stage.
type AmortizationReport struct {
	Terms      FinancingTerms     `json:"terms"`
	Schedule   *amortize.Schedule `json:"schedule"`
	Consistent bool               `json:"consistent"`
	Findings   []string           `json:"findings,omitempty"`
	Summary    string             `json:"summary,omitempty"`
}

type amortizeResponse struct {
	Consistent bool     `json:"consistent"`
	Findings   []string `json:"findings"`
	Summary    string   `json:"summary"`
}

type amortizeStage struct{}

func (s *amortizeStage) Name() string { return string(prompts.StageAmortize) }

func (s *amortizeStage) Requires() []string {
	return []string{string(prompts.StageSpreadsheet)}
}

func (s *amortizeStage) NeedsSpreadsheet() bool { return true }

// Process computes the amortization schedule from the financing terms the
// spreadsheet stage extracted, falling back to configured defaults for rate
// and period count when the sheet only states a principal. Sheets with no
// financing data at all skip the stage.
func (s *amortizeStage) Process(
	ctx context.Context,
	st *sessions.WorkflowState,
	rt *Runtime,
	trace *Trace,
) (json.RawMessage, error) {
	sheet, err := stageOutput[SheetAnalysis](st, string(prompts.StageSpreadsheet))
	if err != nil {
		return nil, err
	}

	terms, err := s.resolveTerms(sheet, rt)
	if err != nil {
		return nil, err
	}

	trace.Thinking(
		"schedule",
		fmt.Sprintf(
			"computing %d-period schedule for %s",
			terms.Periods, formatting.FormatAmount(terms.PrincipalCents),
		),
	)

	schedule, err := amortize.Compute(terms.PrincipalCents, terms.RatePerPeriod, terms.Periods)
	if err != nil {
		return nil, fmt.Errorf("compute schedule: %w", err)
	}

	report := AmortizationReport{
		Terms:      terms,
		Schedule:   schedule,
		Consistent: true,
	}

	prompt, err := prompts.Compose(prompts.StageAmortize, "Amortization schedule", report)
	if err != nil {
		return nil, err
	}

	resp, err := rt.Inference.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed, err := formatting.Parse[amortizeResponse](resp); err == nil {
		report.Consistent = parsed.Consistent
		report.Findings = parsed.Findings
		report.Summary = parsed.Summary
	} else {
		rt.Logger.WarnContext(ctx, "amortization review unusable", "error", err)
	}

	trace.Thinking(
		"review",
		fmt.Sprintf("total interest %s", formatting.FormatAmount(schedule.TotalInterest)),
	)

	return json.Marshal(report)
}

func (s *amortizeStage) resolveTerms(sheet *SheetAnalysis, rt *Runtime) (FinancingTerms, error) {
	if sheet.Financing != nil {
		return *sheet.Financing, nil
	}

	if rt.Loan.Periods <= 0 {
		return FinancingTerms{}, fmt.Errorf("%w: no financing terms in spreadsheet", ErrSkipStage)
	}

	principal := sheet.GrandTotalCents
	if principal <= 0 {
		return FinancingTerms{}, fmt.Errorf("%w: no principal amount available", ErrSkipStage)
	}

	return FinancingTerms{
		Principal:      formatting.FormatAmount(principal),
		PrincipalCents: principal,
		RatePerPeriod:  rt.Loan.RatePerPeriod,
		Periods:        rt.Loan.Periods,
	}, nil
}
