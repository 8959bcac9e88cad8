package listing

import (
	"math"
	"strconv"
	"strings"
)

// groupDigits renders n with a space every three digits: 45000 → "45 000".
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}

// formatAmount renders a numeric amount grouped with a unit suffix, or a
// free-text amount as is. An absent amount renders as "".
func formatAmount(a Amount, unit string) string {
	if n, ok := a.Number(); ok {
		return groupDigits(int64(math.Round(n))) + " " + unit
	}
	return a.text
}

// FormatPrice renders a price: 25000 → "25 000 $".
func FormatPrice(a Amount) string {
	return formatAmount(a, "$")
}

// FormatMileage renders a mileage: 32000 → "32 000 km".
func FormatMileage(a Amount) string {
	return formatAmount(a, "km")
}
