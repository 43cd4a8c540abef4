// Package reconcile implements the numeric cross-check between invoice line
// items and spreadsheet rows. Reconcile is a pure function: identical inputs
// produce identical results, including match order.
package reconcile

import (
	"fmt"
	"math"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Verdict is the overall reconciliation outcome.
type Verdict string

// Reconciliation verdicts. The set is closed: inconclusive comparisons
// resolve to No with an explanatory summary.
const (
	VerdictYes Verdict = "Yes"
	VerdictNo  Verdict = "No"
)

// Line is one comparable entry from either source: an invoice line item or a
// spreadsheet row. Amount is in integer cents.
type Line struct {
	Identifier  string `json:"identifier,omitempty"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Match pairs an invoice line with its best spreadsheet counterpart.
type Match struct {
	Invoice         Line  `json:"invoice"`
	Sheet           Line  `json:"sheet"`
	Delta           int64 `json:"delta"`
	WithinTolerance bool  `json:"within_tolerance"`
}

// Result is the immutable outcome of one reconciliation.
type Result struct {
	Matches          []Match `json:"matches"`
	UnmatchedInvoice []Line  `json:"unmatched_invoice"`
	UnmatchedSheet   []Line  `json:"unmatched_sheet"`
	Verdict          Verdict `json:"verdict"`
	Summary          string  `json:"summary"`
}

// similarityThreshold is the minimum description similarity for two lines
// without matching identifiers to be considered the same item.
const similarityThreshold = 0.55

// Reconcile pairs invoice lines with spreadsheet lines and classifies each
// pair against the tolerance.
//
// Pairing is two-pass: exact identifier matches first, then best description
// similarity among the remaining lines. When several candidates are equally
// plausible for one invoice line, the smallest amount delta wins; remaining
// ties resolve to the earliest input position, keeping the result
// deterministic. Unpaired lines on either side are reported as unmatched.
//
// The verdict is Yes iff every pair is within tolerance and no unmatched line
// on either side carries a nonzero amount.
func Reconcile(invoice, sheet []Line, tol Tolerance) Result {
	result := Result{
		Matches:          []Match{},
		UnmatchedInvoice: []Line{},
		UnmatchedSheet:   []Line{},
	}

	sheetUsed := make([]bool, len(sheet))

	type pairing struct {
		invoiceIdx int
		sheetIdx   int
	}
	var pairs []pairing

	// pass 1: explicit identifiers
	for i, inv := range invoice {
		if inv.Identifier == "" {
			continue
		}
		for j, row := range sheet {
			if sheetUsed[j] || row.Identifier == "" {
				continue
			}
			if strings.EqualFold(inv.Identifier, row.Identifier) {
				sheetUsed[j] = true
				pairs = append(pairs, pairing{i, j})
				break
			}
		}
	}

	paired := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		paired[p.invoiceIdx] = true
	}

	// pass 2: description similarity over the remainder
	dmp := diffmatchpatch.New()
	for i, inv := range invoice {
		if paired[i] {
			continue
		}

		best := -1
		bestScore := 0.0
		bestDelta := int64(math.MaxInt64)

		for j, row := range sheet {
			if sheetUsed[j] {
				continue
			}

			score := similarity(dmp, inv.Description, row.Description)
			if score < similarityThreshold {
				continue
			}

			delta := absDelta(inv.Amount, row.Amount)
			if score > bestScore || (score == bestScore && delta < bestDelta) {
				best = j
				bestScore = score
				bestDelta = delta
			}
		}

		if best >= 0 {
			sheetUsed[best] = true
			pairs = append(pairs, pairing{i, best})
			paired[i] = true
		}
	}

	// emit matches in invoice input order
	byInvoice := make(map[int]int, len(pairs))
	for _, p := range pairs {
		byInvoice[p.invoiceIdx] = p.sheetIdx
	}

	for i, inv := range invoice {
		j, ok := byInvoice[i]
		if !ok {
			result.UnmatchedInvoice = append(result.UnmatchedInvoice, inv)
			continue
		}

		delta := absDelta(inv.Amount, sheet[j].Amount)
		result.Matches = append(result.Matches, Match{
			Invoice:         inv,
			Sheet:           sheet[j],
			Delta:           delta,
			WithinTolerance: delta <= tol.Effective(maxAmount(inv.Amount, sheet[j].Amount)),
		})
	}

	for j, row := range sheet {
		if !sheetUsed[j] {
			result.UnmatchedSheet = append(result.UnmatchedSheet, row)
		}
	}

	result.Verdict, result.Summary = verdict(result)
	return result
}

// ReconcileTotals compares two grand totals as a single-line reconciliation,
// mirroring the amount-level check performed on invoice and spreadsheet
// totals.
func ReconcileTotals(invoiceTotal, sheetTotal int64, tol Tolerance) Result {
	return Reconcile(
		[]Line{{Description: "invoice total", Amount: invoiceTotal}},
		[]Line{{Description: "spreadsheet total", Amount: sheetTotal}},
		tol,
	)
}

func verdict(r Result) (Verdict, string) {
	outOfTolerance := 0
	for _, m := range r.Matches {
		if !m.WithinTolerance {
			outOfTolerance++
		}
	}

	unmatched := 0
	for _, l := range r.UnmatchedInvoice {
		if l.Amount != 0 {
			unmatched++
		}
	}
	for _, l := range r.UnmatchedSheet {
		if l.Amount != 0 {
			unmatched++
		}
	}

	if outOfTolerance == 0 && unmatched == 0 {
		return VerdictYes, fmt.Sprintf(
			"All %d matched line(s) agree within tolerance. Amounts are reconciled; proceed with processing.",
			len(r.Matches),
		)
	}

	return VerdictNo, fmt.Sprintf(
		"%d matched line(s) exceed tolerance and %d line(s) have no counterpart with a nonzero amount. Review source documents and resolve discrepancies before proceeding.",
		outOfTolerance, unmatched,
	)
}

// similarity scores two descriptions in [0,1] as one minus the normalized
// Levenshtein distance of their lowercased forms.
func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	a = normalizeDescription(a)
	b = normalizeDescription(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)

	longest := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(distance)/float64(longest)
}

func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func absDelta(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func maxAmount(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
