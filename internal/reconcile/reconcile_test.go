package reconcile_test

import (
	"reflect"
	"testing"

	"github.com/ledgerline/ledgerline/internal/reconcile"
)

func line(id, desc string, amount int64) reconcile.Line {
	return reconcile.Line{Identifier: id, Description: desc, Amount: amount}
}

func TestReconcileExactIdentifiers(t *testing.T) {
	invoice := []reconcile.Line{
		line("1", "consulting services", 10000),
		line("2", "cloud hosting", 25000),
	}
	sheet := []reconcile.Line{
		line("2", "hosting payment", 25000),
		line("1", "consulting payment", 10000),
	}

	result := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())

	if len(result.Matches) != 2 {
		t.Fatalf("Matches = %d, want 2", len(result.Matches))
	}
	// matches emit in invoice input order
	if result.Matches[0].Invoice.Identifier != "1" || result.Matches[1].Invoice.Identifier != "2" {
		t.Errorf("matches out of invoice order: %+v", result.Matches)
	}
	if result.Matches[0].Sheet.Identifier != "1" {
		t.Errorf("identifier pairing broken: invoice 1 paired with sheet %s", result.Matches[0].Sheet.Identifier)
	}
	if result.Verdict != reconcile.VerdictYes {
		t.Errorf("Verdict = %s, want Yes", result.Verdict)
	}
}

func TestReconcileDescriptionFallback(t *testing.T) {
	invoice := []reconcile.Line{line("", "Monthly Cloud Hosting", 25000)}
	sheet := []reconcile.Line{
		line("", "office supplies", 3000),
		line("", "monthly cloud hosting", 25000),
	}

	result := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())

	if len(result.Matches) != 1 {
		t.Fatalf("Matches = %d, want 1", len(result.Matches))
	}
	if result.Matches[0].Sheet.Description != "monthly cloud hosting" {
		t.Errorf("matched %q, want the similar description", result.Matches[0].Sheet.Description)
	}
	if len(result.UnmatchedSheet) != 1 || result.UnmatchedSheet[0].Description != "office supplies" {
		t.Errorf("UnmatchedSheet = %+v", result.UnmatchedSheet)
	}
}

func TestReconcileToleranceBoundary(t *testing.T) {
	// percent basis: 1% of the larger amount, 50 cent floor
	tol := reconcile.Tolerance{Basis: reconcile.BasisPercent, Value: 1.0, Epsilon: 50}

	tests := []struct {
		name    string
		invoice int64
		sheet   int64
		within  bool
	}{
		{"equal", 100000, 100000, true},
		{"delta equals tolerance", 100000, 99000, true},
		{"delta one over tolerance", 100000, 98999, false},
		{"five percent off", 100000, 105000, false},
		{"epsilon floor", 100, 140, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := reconcile.ReconcileTotals(tt.invoice, tt.sheet, tol)
			if len(result.Matches) != 1 {
				t.Fatalf("Matches = %d, want 1", len(result.Matches))
			}
			if result.Matches[0].WithinTolerance != tt.within {
				t.Errorf(
					"WithinTolerance(%d vs %d) = %v, want %v",
					tt.invoice, tt.sheet, result.Matches[0].WithinTolerance, tt.within,
				)
			}
		})
	}
}

func TestReconcileAbsoluteTolerance(t *testing.T) {
	tol := reconcile.Tolerance{Basis: reconcile.BasisAbsolute, Value: 500}

	result := reconcile.ReconcileTotals(100000, 100500, tol)
	if !result.Matches[0].WithinTolerance {
		t.Error("delta equal to absolute tolerance should be within")
	}

	result = reconcile.ReconcileTotals(100000, 100501, tol)
	if result.Matches[0].WithinTolerance {
		t.Error("delta above absolute tolerance should not be within")
	}
}

func TestReconcileVerdictNo(t *testing.T) {
	invoice := []reconcile.Line{
		line("1", "consulting", 100000),
		line("2", "extra work", 5000),
	}
	sheet := []reconcile.Line{line("1", "consulting", 105000)}

	result := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())

	if result.Verdict != reconcile.VerdictNo {
		t.Errorf("Verdict = %s, want No", result.Verdict)
	}
	if len(result.UnmatchedInvoice) != 1 {
		t.Errorf("UnmatchedInvoice = %d, want 1", len(result.UnmatchedInvoice))
	}
}

func TestReconcileUnmatchedZeroAmountsDoNotFail(t *testing.T) {
	invoice := []reconcile.Line{line("1", "consulting", 100000)}
	sheet := []reconcile.Line{
		line("1", "consulting", 100000),
		line("", "subtotal marker", 0),
	}

	result := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())
	if result.Verdict != reconcile.VerdictYes {
		t.Errorf("Verdict = %s, want Yes when unmatched lines carry zero amounts", result.Verdict)
	}
}

func TestReconcileDeterministic(t *testing.T) {
	invoice := []reconcile.Line{
		line("", "network services", 10000),
		line("", "network service", 10050),
	}
	sheet := []reconcile.Line{
		line("", "network services", 10000),
		line("", "network servicing", 10050),
	}

	first := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())
	for range 10 {
		again := reconcile.Reconcile(invoice, sheet, reconcile.DefaultTolerance())
		if !reflect.DeepEqual(first, again) {
			t.Fatal("Reconcile is not deterministic for identical inputs")
		}
	}
}

func TestToleranceEffective(t *testing.T) {
	tests := []struct {
		name   string
		tol    reconcile.Tolerance
		larger int64
		want   int64
	}{
		{"percent of larger", reconcile.Tolerance{Basis: reconcile.BasisPercent, Value: 1.0, Epsilon: 50}, 100000, 1000},
		{"epsilon floor wins", reconcile.Tolerance{Basis: reconcile.BasisPercent, Value: 1.0, Epsilon: 50}, 100, 50},
		{"absolute ignores larger", reconcile.Tolerance{Basis: reconcile.BasisAbsolute, Value: 500}, 100000, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tol.Effective(tt.larger); got != tt.want {
				t.Errorf("Effective(%d) = %d, want %d", tt.larger, got, tt.want)
			}
		})
	}
}
