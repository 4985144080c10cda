package amount

import (
	"strings"
	"unicode"
)

// Marker is the token the currency glyph is folded into
const Marker = '円'

// normalizeSteps run in order; comma folding must precede separator removal
// so that a folded full-width comma is removed too.
var normalizeSteps = []func(rune) rune{
	foldFullWidthDigit,
	foldFullWidthComma,
	foldCurrencyGlyph,
	dropSeparator,
	dropSpace,
}

// Normalize canonicalizes raw OCR text for amount matching
func Normalize(text string) string {
	for _, step := range normalizeSteps {
		text = strings.Map(step, text)
	}
	return text
}

func foldFullWidthDigit(r rune) rune {
	if r >= '０' && r <= '９' {
		return r - '０' + '0'
	}
	return r
}

func foldFullWidthComma(r rune) rune {
	if r == '，' {
		return ','
	}
	return r
}

func foldCurrencyGlyph(r rune) rune {
	switch r {
	case '￥', '¥':
		return Marker
	}
	return r
}

func dropSeparator(r rune) rune {
	switch r {
	case '.', ',', '．', '・', '･', '·', '●':
		return -1
	}
	return r
}

func dropSpace(r rune) rune {
	if unicode.IsSpace(r) || r == '\uFEFF' {
		return -1
	}
	return r
}
