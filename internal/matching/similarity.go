package matching

import "strings"

// stopWords is the fixed filter applied before the word-set comparison.
//
//nolint:gochecknoglobals // immutable set
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {},
	"will": {}, "of": {}, "in": {}, "on": {}, "to": {}, "for": {},
	"by": {}, "at": {}, "that": {}, "this": {}, "it": {}, "and": {},
	"or": {}, "if": {},
}

// Jaccard compares two titles as stop-word-filtered word sets after
// normalization. Both sets empty scores 1, exactly one empty scores 0.
func Jaccard(a, b string, year int) float64 {
	return jaccardNormalized(NormalizeTitle(a, year), NormalizeTitle(b, year))
}

func jaccardNormalized(na, nb string) float64 {
	sa := contentWords(na)
	sb := contentWords(nb)

	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection

	return float64(intersection) / float64(union)
}

// Dice compares character bigram multisets: 2·|A∩B| / (|A|+|B|), where
// repeated bigrams count once per occurrence. Strings shorter than two
// runes score 0.
func Dice(a, b string) float64 {
	ga, totalA := bigrams(a)
	gb, totalB := bigrams(b)
	if totalA == 0 || totalB == 0 {
		return 0
	}

	intersection := 0
	for g, ca := range ga {
		if cb, ok := gb[g]; ok {
			if ca < cb {
				intersection += ca
			} else {
				intersection += cb
			}
		}
	}

	return 2 * float64(intersection) / float64(totalA+totalB)
}

// Composite is the similarity score the engine thresholds on:
// max(jaccard, dice) over normalized titles.
func Composite(a, b string, year int) float64 {
	na := NormalizeTitle(a, year)
	nb := NormalizeTitle(b, year)

	j := jaccardNormalized(na, nb)
	d := Dice(na, nb)
	if d > j {
		return d
	}

	return j
}

func contentWords(normalized string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}

	return words
}

func bigrams(s string) (map[string]int, int) {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil, 0
	}

	grams := make(map[string]int, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}

	return grams, len(runes) - 1
}
