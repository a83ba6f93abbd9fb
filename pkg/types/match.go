package types

// MatchType records which matching pass produced a pair.
type MatchType string

const (
	MatchConditionID MatchType = "conditionId"
	MatchTemplate    MatchType = "templateMatch"
	MatchSimilarity  MatchType = "titleSimilarity"
)

// MatchResult pairs one market from platform A with one from platform B.
// Similarity is 1.0 for conditionId and template matches and the composite
// score for similarity matches. PolarityFlip means B's YES corresponds to
// A's NO.
type MatchResult struct {
	MarketA      MarketInput
	MarketB      MarketInput
	MatchType    MatchType
	Similarity   float64
	PolarityFlip bool
}
