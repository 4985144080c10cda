package amount

import (
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Threshold is the smallest value treated as a plausible monetary amount.
// Smaller runs are usually counts, dates or times.
const Threshold = 1000

// digitRun matches up to six ASCII digits; longer runs are split by the engine
// ("1234567" yields "123456" and "7").
var digitRun = regexp.MustCompile(`\d{1,6}`)

// Extract picks the most likely amount from normalized text.
// It prefers the largest run >= Threshold and falls back to the largest run overall.
func Extract(normalized string) (int64, bool) {
	runs := digitRun.FindAllString(normalized, -1)
	if len(runs) == 0 {
		return 0, false
	}

	var best, bestPlausible int64
	plausible := false
	for _, run := range runs {
		n, err := strconv.ParseInt(run, 10, 64)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
		if n >= Threshold && (!plausible || n > bestPlausible) {
			bestPlausible = n
			plausible = true
		}
	}

	if plausible {
		return bestPlausible, true
	}
	return best, true
}

// FromText normalizes raw OCR output and extracts an amount from it
func FromText(raw string) (int64, bool) {
	return Extract(Normalize(raw))
}

// Half returns floor(n/2)
func Half(n int64) int64 {
	return decimal.NewFromInt(n).Div(decimal.NewFromInt(2)).Floor().IntPart()
}

// FormatYen renders n with thousands separators, e.g. 12500 -> "12,500"
func FormatYen(n int64) string {
	return humanize.Comma(n)
}
