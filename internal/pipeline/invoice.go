package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ledgerline/ledgerline/internal/extract"
	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/formatting"
)

// InvoiceLine is one extracted invoice line item. Amount fields keep both the
// literal document text and the parsed value in cents.
type InvoiceLine struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	Quantity    string `json:"quantity,omitempty"`
	UnitPrice   string `json:"unit_price,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Confidence  string `json:"confidence"`
}

// InvoiceAnalysis is the committed output of the invoice analysis stage.
type InvoiceAnalysis struct {
	Vendor        string        `json:"vendor"`
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   string        `json:"invoice_date"`
	Currency      string        `json:"currency"`
	LineItems     []InvoiceLine `json:"line_items"`
	Subtotal      string        `json:"subtotal,omitempty"`
	Tax           string        `json:"tax,omitempty"`
	Total         string        `json:"total,omitempty"`
	TotalCents    int64         `json:"total_cents"`
}

type invoiceResponse struct {
	Vendor        string `json:"vendor"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	Currency      string `json:"currency"`
	LineItems     []struct {
		Identifier  string `json:"identifier"`
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		UnitPrice   string `json:"unit_price"`
		Amount      string `json:"amount"`
		Confidence  string `json:"confidence"`
	} `json:"line_items"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type invoiceStage struct{}

func (s *invoiceStage) Name() string           { return string(prompts.StageInvoice) }
func (s *invoiceStage) Requires() []string     { return nil }
func (s *invoiceStage) NeedsSpreadsheet() bool { return false }

// Process extracts structured line items from the uploaded invoice. Image
// invoices go to the vision model; text and PDF invoices use the text layer
// extracted at upload time.
func (s *invoiceStage) Process(
	ctx context.Context,
	st *sessions.WorkflowState,
	rt *Runtime,
	trace *Trace,
) (json.RawMessage, error) {
	inputs := st.InputsOfKind(sessions.InputInvoice)
	if len(inputs) == 0 {
		return nil, ErrNoInvoice
	}
	in := inputs[0]

	trace.Thinking("workflow", fmt.Sprintf("analyzing invoice document %s", in.Filename))

	resp, err := s.analyze(ctx, rt, trace, in)
	if err != nil {
		return nil, err
	}

	parsed, err := formatting.Parse[invoiceResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("parse invoice response: %w", err)
	}

	trace.Thinking(
		"extraction",
		fmt.Sprintf("extracted %d line items from %s", len(parsed.LineItems), parsed.Vendor),
	)

	analysis := buildInvoiceAnalysis(parsed)

	trace.Thinking(
		"analysis",
		fmt.Sprintf("invoice total %s", formatting.FormatAmount(analysis.TotalCents)),
	)

	return json.Marshal(analysis)
}

func (s *invoiceStage) analyze(
	ctx context.Context,
	rt *Runtime,
	trace *Trace,
	in sessions.InputFile,
) (string, error) {
	if extract.IsImage(in.ContentType) {
		trace.Thinking("extraction", "reading invoice image with vision model")

		data, err := downloadBlob(ctx, rt, in.StorageKey)
		if err != nil {
			return "", err
		}

		prompt, err := prompts.Compose(prompts.StageInvoice, "", nil)
		if err != nil {
			return "", err
		}

		return rt.Inference.Vision(ctx, prompt, []string{rt.Extractor.DataURI(in.ContentType, data)})
	}

	if in.Text == "" {
		return "", fmt.Errorf("invoice %s has no extracted text", in.Filename)
	}

	prompt, err := prompts.ComposeText(prompts.StageInvoice, "Invoice document", in.Text)
	if err != nil {
		return "", err
	}

	return rt.Inference.Analyze(ctx, prompt)
}

func buildInvoiceAnalysis(resp invoiceResponse) InvoiceAnalysis {
	analysis := InvoiceAnalysis{
		Vendor:        resp.Vendor,
		InvoiceNumber: resp.InvoiceNumber,
		InvoiceDate:   resp.InvoiceDate,
		Currency:      resp.Currency,
		Subtotal:      resp.Subtotal,
		Tax:           resp.Tax,
		Total:         resp.Total,
	}

	for _, item := range resp.LineItems {
		line := InvoiceLine{
			Identifier:  item.Identifier,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			Confidence:  item.Confidence,
		}
		if cents, err := formatting.ParseAmount(item.Amount); err == nil {
			line.AmountCents = cents
		} else if cents, err := formatting.ExtractAmount(item.Amount); err == nil {
			line.AmountCents = cents
		}
		analysis.LineItems = append(analysis.LineItems, line)
	}

	if cents, err := formatting.ParseAmount(resp.Total); err == nil {
		analysis.TotalCents = cents
	} else {
		for _, line := range analysis.LineItems {
			analysis.TotalCents += line.AmountCents
		}
	}

	return analysis
}

func downloadBlob(ctx context.Context, rt *Runtime, key string) ([]byte, error) {
	body, err := rt.Storage.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
