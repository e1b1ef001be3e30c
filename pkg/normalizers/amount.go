package normalizers

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount parses a raw extracted amount string into a non-negative decimal.
// It accepts Brazilian ("1.234,56", "R$ 1.234,56") and plain/US
// ("1234.56", "1,234.56") formats. Unparsable or absent input yields zero,
// never an error; downstream rules treat a zero amount as "not comparable"
// rather than as a real amount.
func Amount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	// Drop currency symbols, letters and spaces; keep digits, separators
	// and the sign.
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	s = strings.TrimPrefix(s, "-")
	if s == "" || strings.Contains(s, "-") {
		return decimal.Zero
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56 - dots group thousands, comma is the decimal mark
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			// 1234,5 or 1234,56
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234,567
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// A single dot with exactly three trailing digits reads as a
		// Brazilian thousands group ("1.234" = 1234); one or two trailing
		// digits read as cents.
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}
