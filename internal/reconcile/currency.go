package reconcile

import (
	"strconv"
	"strings"
)

// CleanCurrency parses a raw spreadsheet cell into a number. It tolerates
// currency symbols, thousands separators, and accountant-style parenthesized
// negatives: "(1,234.56)" parses as -1234.56. Unparseable values yield 0;
// bad cells are a data-quality condition, never an error.
func CleanCurrency(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
