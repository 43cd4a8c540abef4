package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/internal/taxonomy"
	"github.com/ledgerline/ledgerline/pkg/formatting"
)

// Assignment is one line item's expense category assignment.
type Assignment struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Rationale   string `json:"rationale,omitempty"`
}

// ReclassReport is the committed output of the reclassification stage.
// Categories come from the deterministic taxonomy; the model may refine an
// assignment only to another category within the same taxonomy version.
type ReclassReport struct {
	TaxonomyVersion string       `json:"taxonomy_version"`
	Assignments     []Assignment `json:"assignments"`
}

type reclassifyResponse struct {
	Assignments []struct {
		Identifier string `json:"identifier"`
		Category   string `json:"category"`
		Rationale  string `json:"rationale"`
	} `json:"assignments"`
}

type reclassifyStage struct{}

func (s *reclassifyStage) Name() string { return string(prompts.StageReclassify) }

func (s *reclassifyStage) Requires() []string {
	return []string{string(prompts.StageInvoice)}
}

func (s *reclassifyStage) NeedsSpreadsheet() bool { return false }

// Process assigns an expense category to every invoice line item. The
// taxonomy classifier provides the baseline assignment; the model may refine
// it and supplies the rationale. Model categories outside the taxonomy are
// discarded in favor of the baseline.
func (s *reclassifyStage) Process(
	ctx context.Context,
	st *sessions.WorkflowState,
	rt *Runtime,
	trace *Trace,
) (json.RawMessage, error) {
	invoice, err := stageOutput[InvoiceAnalysis](st, string(prompts.StageInvoice))
	if err != nil {
		return nil, err
	}

	trace.Thinking(
		"classification",
		fmt.Sprintf(
			"classifying %d line items against taxonomy %s",
			len(invoice.LineItems), rt.Taxonomy.Version,
		),
	)

	report := ReclassReport{TaxonomyVersion: rt.Taxonomy.Version}
	for _, item := range invoice.LineItems {
		report.Assignments = append(report.Assignments, Assignment{
			Identifier:  item.Identifier,
			Description: item.Description,
			Category:    rt.Taxonomy.Classify(item.Description),
		})
	}

	payload := struct {
		Taxonomy  taxonomy.Taxonomy `json:"taxonomy"`
		LineItems []Assignment      `json:"line_items"`
	}{Taxonomy: rt.Taxonomy, LineItems: report.Assignments}

	prompt, err := prompts.Compose(prompts.StageReclassify, "Taxonomy and line items", payload)
	if err != nil {
		return nil, err
	}

	resp, err := rt.Inference.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed, err := formatting.Parse[reclassifyResponse](resp); err == nil {
		s.refine(&report, parsed, rt)
	} else {
		rt.Logger.WarnContext(ctx, "reclassification refinement unusable", "error", err)
	}

	trace.Thinking("review", fmt.Sprintf("assigned %d categories", len(report.Assignments)))

	return json.Marshal(report)
}

func (s *reclassifyStage) refine(report *ReclassReport, resp reclassifyResponse, rt *Runtime) {
	valid := make(map[string]bool, len(rt.Taxonomy.Rules)+1)
	valid[taxonomy.Uncategorized] = true
	for _, rule := range rt.Taxonomy.Rules {
		valid[rule.Category] = true
	}

	byID := make(map[string]int, len(report.Assignments))
	for i, a := range report.Assignments {
		byID[a.Identifier] = i
	}

	for _, refined := range resp.Assignments {
		i, ok := byID[refined.Identifier]
		if !ok {
			continue
		}
		if valid[refined.Category] {
			report.Assignments[i].Category = refined.Category
		}
		report.Assignments[i].Rationale = refined.Rationale
	}
}
