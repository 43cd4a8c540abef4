package prompts

const invoiceSpec = `Respond with a JSON object matching this exact structure:

{
  "vendor": "<name>",
  "invoice_number": "<number>",
  "invoice_date": "<date as written>",
  "currency": "<symbol or code>",
  "line_items": [
    {
      "identifier": "<line number or item code>",
      "description": "<description>",
      "quantity": "<quantity or empty>",
      "unit_price": "<amount as written or empty>",
      "amount": "<extended amount as written>",
      "confidence": "<HIGH|MEDIUM|LOW>"
    }
  ],
  "subtotal": "<amount as written or empty>",
  "tax": "<amount as written or empty>",
  "total": "<amount as written or empty>"
}

Field constraints:
- line_items: One entry per billed line, in document order. Do not include
  subtotal, tax, or total rows as line items.
- amount fields: Report exactly as printed, including currency symbols and
  separators. Use an empty string for values absent from the document.
- confidence: HIGH when the line is fully legible and unambiguous, MEDIUM
  when a field required interpretation, LOW when any field is a guess.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Never invent line items or amounts not present in the document`

const spreadsheetSpec = `Respond with a JSON object matching this exact structure:

{
  "sheet_kind": "<payments|amortization|mixed>",
  "rows": [
    {
      "identifier": "<row label or reference>",
      "description": "<description>",
      "amount": "<amount as written>"
    }
  ],
  "grand_total": "<amount as written or empty>",
  "financing": {
    "principal": "<amount as written or empty>",
    "rate": "<periodic rate as written or empty>",
    "periods": "<count or empty>"
  }
}

Field constraints:
- sheet_kind: payments for a ledger of paid line items, amortization for a
  payment schedule, mixed when both are present.
- rows: One entry per data row, in sheet order. Exclude header, blank,
  subtotal, and grand-total rows.
- financing: Populate only when the sheet contains an amortization schedule;
  otherwise leave every field empty.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Report amounts exactly as printed; do not recompute derived values`

const reconcileSpec = `Respond with a JSON object matching this exact structure:

{
  "verdict": "<YES|NO>",
  "summary": "<one-paragraph assessment>",
  "recommendations": ["<recommendation>"]
}

Field constraints:
- verdict: YES only when every invoice line has a matching spreadsheet row
  within tolerance and no material rows are unmatched on either side.
- summary: Plain-language assessment referencing the specific lines that
  drove the verdict.
- recommendations: One actionable item per discrepancy. Empty array when the
  verdict is YES and nothing needs follow-up.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Base the verdict strictly on the match results provided in the prompt`

const reclassifySpec = `Respond with a JSON object matching this exact structure:

{
  "assignments": [
    {
      "identifier": "<line identifier>",
      "category": "<category from the taxonomy>",
      "rationale": "<one sentence>"
    }
  ]
}

Field constraints:
- assignments: Exactly one entry per provided line item, in the order given.
- category: Must be a category name from the provided taxonomy, or
  uncategorized when nothing fits.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Never invent categories outside the provided taxonomy`

const amortizeSpec = `Respond with a JSON object matching this exact structure:

{
  "consistent": true,
  "total_payment": "<amount>",
  "total_interest": "<amount>",
  "findings": ["<finding>"],
  "summary": "<one-paragraph assessment>"
}

Field constraints:
- consistent: true only when every period agrees with the financing terms
  and the final balance is zero.
- findings: One entry per deviating period, naming the period and the
  deviation. Empty array when consistent is true.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Verify against the schedule provided in the prompt; do not recompute from
  scratch`

var specs = map[Stage]string{
	StageInvoice:     invoiceSpec,
	StageSpreadsheet: spreadsheetSpec,
	StageReconcile:   reconcileSpec,
	StageReclassify:  reclassifySpec,
	StageAmortize:    amortizeSpec,
}

// Spec returns the structured output specification for a workflow stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
