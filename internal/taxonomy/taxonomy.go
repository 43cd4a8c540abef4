// Package taxonomy provides the versioned category taxonomy used to
// reclassify invoice line items. Classification is deterministic: identical
// descriptions and taxonomy version always yield the same category.
package taxonomy

import (
	"errors"
	"strings"
)

// ErrUnknownVersion is returned when no taxonomy exists for the requested version.
var ErrUnknownVersion = errors.New("unknown taxonomy version")

// Uncategorized is assigned when no rule matches a description.
const Uncategorized = "uncategorized"

// Rule maps keywords to a category. Rules are evaluated in declaration
// order; the first rule with a matching keyword wins.
type Rule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Taxonomy is an ordered rule set identified by version.
type Taxonomy struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// DefaultVersion is the taxonomy used when none is configured.
const DefaultVersion = "v1"

var versions = map[string]Taxonomy{
	"v1": {
		Version: "v1",
		Rules: []Rule{
			{Category: "professional_services", Keywords: []string{"consult", "service", "support", "maintenance", "labor", "hourly"}},
			{Category: "software", Keywords: []string{"software", "license", "subscription", "saas", "hosting", "cloud"}},
			{Category: "hardware", Keywords: []string{"hardware", "equipment", "device", "server", "laptop", "workstation"}},
			{Category: "office_supplies", Keywords: []string{"supplies", "paper", "toner", "stationery", "office"}},
			{Category: "shipping", Keywords: []string{"shipping", "freight", "delivery", "postage", "handling"}},
			{Category: "taxes_and_fees", Keywords: []string{"tax", "fee", "surcharge", "duty", "tariff"}},
			{Category: "financing", Keywords: []string{"interest", "loan", "principal", "installment", "amortization", "financing"}},
		},
	},
}

// Load returns the taxonomy for the given version.
func Load(version string) (Taxonomy, error) {
	t, ok := versions[version]
	if !ok {
		return Taxonomy{}, ErrUnknownVersion
	}
	return t, nil
}

// Classify assigns a category to a line item description. Matching is
// case-insensitive substring containment over the rule keywords, first match
// wins. Descriptions that match no rule are Uncategorized.
func (t Taxonomy) Classify(description string) string {
	desc := strings.ToLower(description)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Category
			}
		}
	}
	return Uncategorized
}
