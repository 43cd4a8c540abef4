package formatting

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoAmount is returned when no numeric amount can be found in the input.
var ErrNoAmount = errors.New("no amount found")

var (
	currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")
	numberPattern    = regexp.MustCompile(`[-+]?\d*\.?\d+`)
)

// ParseAmount parses a single currency amount (e.g. "$1,234.56") into integer
// cents. Currency symbols, commas, and surrounding whitespace are tolerated.
func ParseAmount(s string) (int64, error) {
	cleaned := currencyStripper.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, ErrNoAmount
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return toCents(value), nil
}

// ExtractAmount scans free-form text for numeric values and returns the
// largest one found as integer cents. Model responses frequently embed the
// main amount among smaller figures (line items, percentages), so largest-wins
// is the extraction rule.
func ExtractAmount(text string) (int64, error) {
	cleaned := currencyStripper.Replace(text)

	matches := numberPattern.FindAllString(cleaned, -1)
	if len(matches) == 0 {
		return 0, ErrNoAmount
	}

	best := math.Inf(-1)
	for _, m := range matches {
		if v, err := strconv.ParseFloat(m, 64); err == nil && v > best {
			best = v
		}
	}

	if math.IsInf(best, -1) {
		return 0, ErrNoAmount
	}
	return toCents(best), nil
}

// FormatAmount renders integer cents as a dollar string with thousands
// separators, e.g. 123456789 -> "$1,234,567.89".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	dollars := cents / 100
	remainder := cents % 100

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(dollars), remainder)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

func toCents(value float64) int64 {
	return int64(math.Round(value * 100))
}
