// Package matching decides whether two markets on different venues refer
// to the same real-world event. Titles are canonicalized (C1), structured
// titles are reduced to template keys (C2), free-prose titles are compared
// by word and bigram similarity (C3), and a deterministic three-pass
// engine (C4) joins the two venue lists one-to-one. Polarity detection
// flags pairs whose YES and NO outcomes are inverted.
package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// confusables maps visually-similar non-ASCII codepoints to the ASCII
// letters scammy market titles imitate. Fixed table; extend only with
// codepoints observed in venue catalogs.
//
//nolint:gochecknoglobals // immutable lookup table
var confusables = map[rune]rune{
	// Cyrillic uppercase
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H',
	'О': 'O', 'Р': 'P', 'С': 'C', 'Т': 'T', 'У': 'Y', 'Х': 'X',
	// Cyrillic lowercase
	'а': 'a', 'в': 'b', 'е': 'e', 'к': 'k', 'м': 'm', 'н': 'h',
	'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x', 'и': 'n',
	// Greek uppercase
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T',
	'Υ': 'Y', 'Χ': 'X',
	// Greek lowercase
	'α': 'a', 'ε': 'e', 'ι': 'i', 'κ': 'k', 'ο': 'o', 'ρ': 'p',
	'τ': 't', 'υ': 'u', 'χ': 'x',
	// Latin oddballs
	'Ʌ': 'A', 'ʌ': 'a', 'Ͻ': 'N',
}

// ReplaceConfusables substitutes lookalike codepoints with their ASCII
// counterparts. Everything else passes through untouched.
func ReplaceConfusables(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := confusables[r]; ok {
			b.WriteRune(repl)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

//nolint:gochecknoglobals // immutable multipliers
var magnitudeMultipliers = map[string]decimal.Decimal{
	"k":        decimal.NewFromInt(1_000),
	"thousand": decimal.NewFromInt(1_000),
	"m":        decimal.NewFromInt(1_000_000),
	"million":  decimal.NewFromInt(1_000_000),
	"b":        decimal.NewFromInt(1_000_000_000),
	"billion":  decimal.NewFromInt(1_000_000_000),
}

//nolint:gochecknoglobals // compiled once
var magnitudeRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(thousand|million|billion|k|m|b)\b`)

// NormalizeMagnitude rewrites shorthand quantities ("4B", "4 billion",
// "1.5 million", "10k") to plain decimal integer strings. Decimal inputs
// floor after multiplication. Pure digit runs are left untouched.
func NormalizeMagnitude(s string) string {
	return magnitudeRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := magnitudeRe.FindStringSubmatch(m)
		num, err := decimal.NewFromString(parts[1])
		if err != nil {
			return m
		}
		mult, ok := magnitudeMultipliers[strings.ToLower(parts[2])]
		if !ok {
			return m
		}

		return num.Mul(mult).Floor().BigInt().String()
	})
}

// NormalizeTitle canonicalizes a market title to lowercase ASCII-ish
// text: confusables replaced, combining marks stripped after NFKD, curly
// apostrophes folded to ASCII, currency/question punctuation and
// digit-separator commas removed, the standalone current-year token
// dropped, whitespace collapsed.
func NormalizeTitle(s string, year int) string {
	s = ReplaceConfusables(s)
	s = stripMarks(norm.NFKD.String(s))
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '?', ',':
			return -1
		case '‘', '’':
			return '\''
		}

		return r
	}, s)

	yearToken := strconv.Itoa(year)
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if f == yearToken {
			continue
		}
		kept = append(kept, f)
	}

	return strings.Join(kept, " ")
}

// NormalizeEntity canonicalizes a captured entity: lowercase, trimmed,
// trailing sentence punctuation removed, leading articles dropped.
func NormalizeEntity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")

	fields := strings.Fields(s)
	for len(fields) > 0 && isArticle(fields[0]) {
		fields = fields[1:]
	}

	return strings.Join(fields, " ")
}

// NormalizeParams canonicalizes captured template parameters so that
// "$4B" and "4000000000" produce the same key.
func NormalizeParams(s string, year int) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '?':
			return -1
		}

		return r
	}, s)
	s = NormalizeMagnitude(s)

	yearToken := strconv.Itoa(year)
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if f == yearToken {
			continue
		}
		kept = append(kept, f)
	}

	return strings.Join(kept, " ")
}

//nolint:gochecknoglobals // immutable synonym table
var categorySynonyms = map[string]string{
	"crypto":         "crypto",
	"cryptocurrency": "crypto",
	"defi":           "crypto",
	"politics":       "politics",
	"political":      "politics",
	"elections":      "politics",
}

// NormalizeCategory lowercases, trims, and folds known synonyms onto a
// canonical category name. Unknown categories pass through lowercased.
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := categorySynonyms[s]; ok {
		return canonical
	}

	return s
}

func stripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func isArticle(w string) bool {
	return w == "the" || w == "a" || w == "an"
}
