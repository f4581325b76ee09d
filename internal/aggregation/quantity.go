package aggregation

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// ExtractLeadingNumber parses the numeric component of a free-text quantity
// string such as "1,200kg" or "10 박스". Thousands separators are stripped
// and full-width digits folded before parsing. The trailing unit text is
// display-only and ignored. Returns 0 when no leading numeric run exists;
// never fails.
func ExtractLeadingNumber(raw string) float64 {
	s := strings.TrimSpace(width.Fold.String(raw))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	end := 0
	seenDigit := false
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot && seenDigit:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
			// leading sign only
		default:
			goto done
		}
		end = i + 1
	}
done:
	if !seenDigit {
		return 0
	}

	// A trailing dot ("12.") is not part of the numeric run.
	run := strings.TrimSuffix(s[:end], ".")

	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0
	}
	return v
}
