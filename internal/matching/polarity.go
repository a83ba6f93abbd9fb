package matching

import "strings"

// Polarity confidence levels, strongest signal first. Outcome labels
// outrank title heuristics.
const (
	confidenceLabelSwap = 0.95
	confidenceNegation  = 0.85
	confidenceAntonym   = 0.70
)

//nolint:gochecknoglobals // immutable pairs
var antonymPairs = [][2]string{
	{"above", "below"},
	{"over", "under"},
	{"more", "less"},
	{"before", "after"},
	{"higher", "lower"},
}

// DetectPolarity decides whether market B's YES outcome corresponds to
// market A's NO. Returns the flip verdict and a confidence the caller
// thresholds on: swapped outcome labels (0.95), asymmetric negation in
// exactly one title (0.85), complementary antonyms anchored on a shared
// number (0.70), otherwise no flip at confidence 0.
func DetectPolarity(titleA, titleB string, labelsA, labelsB [2]string, year int) (bool, float64) {
	if labelsProvided(labelsA) && labelsProvided(labelsB) {
		swapped := strings.EqualFold(labelsA[0], labelsB[1]) &&
			strings.EqualFold(labelsA[1], labelsB[0]) &&
			!strings.EqualFold(labelsA[0], labelsA[1])
		if swapped {
			return true, confidenceLabelSwap
		}
	}

	tokensA := strings.Fields(NormalizeTitle(titleA, year))
	tokensB := strings.Fields(NormalizeTitle(titleB, year))

	negA := hasNegation(tokensA)
	negB := hasNegation(tokensB)
	if negA != negB {
		return true, confidenceNegation
	}

	if antonymAsymmetry(tokensA, tokensB) {
		return true, confidenceAntonym
	}

	return false, 0
}

func labelsProvided(labels [2]string) bool {
	return labels[0] != "" && labels[1] != ""
}

func hasNegation(tokens []string) bool {
	for _, t := range tokens {
		switch t {
		case "not", "no", "won't", "wont":
			return true
		}
	}

	return false
}

// antonymAsymmetry fires when the two titles share a numeric anchor and
// sit on opposite members of an antonym pair.
func antonymAsymmetry(tokensA, tokensB []string) bool {
	if !sharedNumericAnchor(tokensA, tokensB) {
		return false
	}

	for _, pair := range antonymPairs {
		if containsToken(tokensA, pair[0]) && containsToken(tokensB, pair[1]) {
			return true
		}
		if containsToken(tokensA, pair[1]) && containsToken(tokensB, pair[0]) {
			return true
		}
	}

	return false
}

func sharedNumericAnchor(tokensA, tokensB []string) bool {
	anchorsA := numericTokens(tokensA)
	if len(anchorsA) == 0 {
		return false
	}
	for t := range numericTokens(tokensB) {
		if _, ok := anchorsA[t]; ok {
			return true
		}
	}

	return false
}

// numericTokens magnitude-normalizes each token so "100k" and "100000"
// anchor the same comparison.
func numericTokens(tokens []string) map[string]struct{} {
	anchors := make(map[string]struct{})
	for _, t := range tokens {
		expanded := NormalizeMagnitude(t)
		if isDigits(expanded) {
			anchors[expanded] = struct{}{}
		}
	}

	return anchors
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}

	return false
}
