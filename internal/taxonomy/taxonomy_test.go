package taxonomy_test

import (
	"errors"
	"testing"

	"github.com/ledgerline/ledgerline/internal/taxonomy"
)

func TestLoad(t *testing.T) {
	tax, err := taxonomy.Load(taxonomy.DefaultVersion)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tax.Version != taxonomy.DefaultVersion {
		t.Errorf("Version = %s, want %s", tax.Version, taxonomy.DefaultVersion)
	}
	if len(tax.Rules) == 0 {
		t.Error("taxonomy has no rules")
	}
}

func TestLoadUnknownVersion(t *testing.T) {
	if _, err := taxonomy.Load("v999"); !errors.Is(err, taxonomy.ErrUnknownVersion) {
		t.Errorf("Load() error = %v, want %v", err, taxonomy.ErrUnknownVersion)
	}
}

func TestClassify(t *testing.T) {
	tax, err := taxonomy.Load(taxonomy.DefaultVersion)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		description string
		want        string
	}{
		{"Consulting engagement, 40 hours", "professional_services"},
		{"ANNUAL SOFTWARE LICENSE", "software"},
		{"Cloud hosting, March", "software"},
		{"Dell laptop x2", "hardware"},
		{"Copy paper, 10 reams", "office_supplies"},
		{"Freight to warehouse", "shipping"},
		{"Sales tax", "taxes_and_fees"},
		{"Loan interest, period 3", "financing"},
		{"Miscellaneous adjustment", taxonomy.Uncategorized},
		{"", taxonomy.Uncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := tax.Classify(tt.description); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	tax, err := taxonomy.Load(taxonomy.DefaultVersion)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// "software support services" matches both professional_services and
	// software; rule order decides.
	if got := tax.Classify("software support services"); got != "professional_services" {
		t.Errorf("Classify() = %s, want professional_services", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	tax, err := taxonomy.Load(taxonomy.DefaultVersion)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first := tax.Classify("managed cloud subscription")
	for range 100 {
		if got := tax.Classify("managed cloud subscription"); got != first {
			t.Fatalf("Classify() = %s, previously %s", got, first)
		}
	}
}
