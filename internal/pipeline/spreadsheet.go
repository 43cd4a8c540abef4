package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/formatting"
)

// SheetRow is one extracted spreadsheet data row.
type SheetRow struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

// FinancingTerms are amortization terms extracted from a spreadsheet.
type FinancingTerms struct {
	Principal      string  `json:"principal"`
	PrincipalCents int64   `json:"principal_cents"`
	RatePerPeriod  float64 `json:"rate_per_period"`
	Periods        int     `json:"periods"`
}

// SheetAnalysis is the committed output of the spreadsheet analysis stage.
type SheetAnalysis struct {
	SheetKind       string          `json:"sheet_kind"`
	Rows            []SheetRow      `json:"rows"`
	GrandTotal      string          `json:"grand_total,omitempty"`
	GrandTotalCents int64           `json:"grand_total_cents"`
	Financing       *FinancingTerms `json:"financing,omitempty"`
}

type sheetResponse struct {
	SheetKind string `json:"sheet_kind"`
	Rows      []struct {
		Identifier  string `json:"identifier"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	} `json:"rows"`
	GrandTotal string `json:"grand_total"`
	Financing  struct {
		Principal string `json:"principal"`
		Rate      string `json:"rate"`
		Periods   string `json:"periods"`
	} `json:"financing"`
}

type spreadsheetStage struct{}

func (s *spreadsheetStage) Name() string           { return string(prompts.StageSpreadsheet) }
func (s *spreadsheetStage) Requires() []string     { return nil }
func (s *spreadsheetStage) NeedsSpreadsheet() bool { return true }

// Process extracts payment rows and any financing terms from the uploaded
// spreadsheet.
func (s *spreadsheetStage) Process(
	ctx context.Context,
	st *sessions.WorkflowState,
	rt *Runtime,
	trace *Trace,
) (json.RawMessage, error) {
	in := st.InputsOfKind(sessions.InputSpreadsheet)[0]

	trace.Thinking("analysis", fmt.Sprintf("analyzing spreadsheet %s", in.Filename))

	resp, err := s.analyze(ctx, rt, in)
	if err != nil {
		return nil, err
	}

	parsed, err := formatting.Parse[sheetResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("parse spreadsheet response: %w", err)
	}

	trace.Thinking(
		"sheet_detection",
		fmt.Sprintf("detected %s sheet with %d data rows", parsed.SheetKind, len(parsed.Rows)),
	)

	analysis := buildSheetAnalysis(parsed)

	if analysis.Financing != nil {
		trace.Thinking(
			"amortization_extraction",
			fmt.Sprintf(
				"financing terms: principal %s over %d periods",
				formatting.FormatAmount(analysis.Financing.PrincipalCents),
				analysis.Financing.Periods,
			),
		)
	}

	return json.Marshal(analysis)
}

func (s *spreadsheetStage) analyze(
	ctx context.Context,
	rt *Runtime,
	in sessions.InputFile,
) (string, error) {
	if extract.IsImage(in.ContentType) {
		data, err := downloadBlob(ctx, rt, in.StorageKey)
		if err != nil {
			return "", err
		}

		prompt, err := prompts.Compose(prompts.StageSpreadsheet, "", nil)
		if err != nil {
			return "", err
		}

		return rt.Inference.Vision(ctx, prompt, []string{rt.Extractor.DataURI(in.ContentType, data)})
	}

	if in.Text == "" {
		return "", fmt.Errorf("spreadsheet %s has no extracted text", in.Filename)
	}

	prompt, err := prompts.ComposeText(prompts.StageSpreadsheet, "Spreadsheet contents", in.Text)
	if err != nil {
		return "", err
	}

	return rt.Inference.Analyze(ctx, prompt)
}

func buildSheetAnalysis(resp sheetResponse) SheetAnalysis {
	analysis := SheetAnalysis{
		SheetKind:  resp.SheetKind,
		GrandTotal: resp.GrandTotal,
	}

	for _, row := range resp.Rows {
		r := SheetRow{
			Identifier:  row.Identifier,
			Description: row.Description,
			Amount:      row.Amount,
		}
		if cents, err := formatting.ParseAmount(row.Amount); err == nil {
			r.AmountCents = cents
		} else if cents, err := formatting.ExtractAmount(row.Amount); err == nil {
			r.AmountCents = cents
		}
		analysis.Rows = append(analysis.Rows, r)
	}

	if cents, err := formatting.ParseAmount(resp.GrandTotal); err == nil {
		analysis.GrandTotalCents = cents
	} else {
		for _, row := range analysis.Rows {
			analysis.GrandTotalCents += row.AmountCents
		}
	}

	analysis.Financing = parseFinancing(resp)
	return analysis
}

// parseFinancing parses financing terms from the model response. Rates may be
// stated as a percentage ("0.5%") or a decimal fraction ("0.005"); values
// above a plausible fractional rate are treated as percentages.
func parseFinancing(resp sheetResponse) *FinancingTerms {
	principal, err := formatting.ParseAmount(resp.Financing.Principal)
	if err != nil {
		return nil
	}

	periods, err := strconv.Atoi(strings.TrimSpace(resp.Financing.Periods))
	if err != nil || periods <= 0 {
		return nil
	}

	rateText := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(resp.Financing.Rate), "%"))
	rate, err := strconv.ParseFloat(rateText, 64)
	if err != nil || rate < 0 {
		return nil
	}
	if strings.Contains(resp.Financing.Rate, "%") || rate >= 1 {
		rate /= 100
	}

	return &FinancingTerms{
		Principal:      resp.Financing.Principal,
		PrincipalCents: principal,
		RatePerPeriod:  rate,
		Periods:        periods,
	}
}
