package matching

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Default thresholds. Similarity guards Pass 3; confidence guards how
// sure polarity detection must be before a flipped pair is tradeable.
const (
	DefaultSimilarityThreshold = 0.85
	DefaultConfidenceThreshold = 0.90
	DefaultTemporalWindow      = 30 * 24 * time.Hour
)

// Config holds matching engine configuration.
type Config struct {
	SimilarityThreshold float64
	ConfidenceThreshold float64
	TemporalWindow      time.Duration
	Year                int // 0 means current UTC year
	Logger              *zap.Logger
}

// Engine joins two venue market lists one-to-one. Safe for concurrent
// use; Match holds no state between calls.
type Engine struct {
	similarityThreshold float64
	confidenceThreshold float64
	temporalWindow      time.Duration
	year                int
	logger              *zap.Logger
}

// New creates a matching engine with the given configuration.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in [0,1]")
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold must be in [0,1]")
	}

	e := &Engine{
		similarityThreshold: cfg.SimilarityThreshold,
		confidenceThreshold: cfg.ConfidenceThreshold,
		temporalWindow:      cfg.TemporalWindow,
		year:                cfg.Year,
		logger:              cfg.Logger,
	}
	if e.similarityThreshold == 0 {
		e.similarityThreshold = DefaultSimilarityThreshold
	}
	if e.confidenceThreshold == 0 {
		e.confidenceThreshold = DefaultConfidenceThreshold
	}
	if e.temporalWindow == 0 {
		e.temporalWindow = DefaultTemporalWindow
	}
	if e.year == 0 {
		e.year = time.Now().UTC().Year()
	}

	return e, nil
}

// Match runs the three passes over listA and listB and returns the
// one-to-one match set. Iteration follows input order throughout, so the
// same inputs always produce the same output.
func (e *Engine) Match(listA, listB []types.DiscoveredMarket) []types.MatchResult {
	start := time.Now()
	defer func() {
		MatchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	matchedA := make([]bool, len(listA))
	matchedB := make([]bool, len(listB))
	results := make([]types.MatchResult, 0)

	// Pass 1: conditionId unique join. Only meaningful when both venues
	// expose the shared on-chain identifier.
	if hasConditionIDs(listA) && hasConditionIDs(listB) {
		firstByCondition := make(map[string]int, len(listA))
		for i := range listA {
			cid := listA[i].ConditionID
			if cid == "" {
				continue
			}
			if _, seen := firstByCondition[cid]; !seen {
				firstByCondition[cid] = i
			}
		}

		for j := range listB {
			cid := listB[j].ConditionID
			if cid == "" || matchedB[j] {
				continue
			}
			i, ok := firstByCondition[cid]
			if !ok || matchedA[i] {
				continue
			}
			if res, ok := e.emit(&listA[i], &listB[j], types.MatchConditionID, 1.0); ok {
				matchedA[i], matchedB[j] = true, true
				results = append(results, res)
			}
		}
	}

	// Pass 2: exact template-key join. Keys always come from each side's
	// own title; venue-local ids never cross-contaminate buckets.
	templatesA := make([]*TemplateMatch, len(listA))
	templatesB := make([]*TemplateMatch, len(listB))
	bucketsB := make(map[string][]int)
	for j := range listB {
		if matchedB[j] {
			continue
		}
		templatesB[j] = ExtractTemplate(listB[j].Title, e.year)
		if templatesB[j] != nil {
			key := templatesB[j].Key()
			bucketsB[key] = append(bucketsB[key], j)
		}
	}

	for i := range listA {
		if matchedA[i] {
			continue
		}
		templatesA[i] = ExtractTemplate(listA[i].Title, e.year)
		if templatesA[i] == nil {
			continue
		}
		for _, j := range bucketsB[templatesA[i].Key()] {
			if matchedB[j] {
				continue
			}
			if res, ok := e.emit(&listA[i], &listB[j], types.MatchTemplate, 1.0); ok {
				matchedA[i], matchedB[j] = true, true
				results = append(results, res)
			}
			break
		}
	}

	// Pass 3: similarity fallback behind the guards.
	for i := range listA {
		if matchedA[i] {
			continue
		}

		bestJ := -1
		bestSim := 0.0
		for j := range listB {
			if matchedB[j] {
				continue
			}
			if !e.passGuards(templatesA[i], templatesB[j], &listA[i], &listB[j]) {
				continue
			}
			sim := Composite(listA[i].Title, listB[j].Title, e.year)
			if sim < e.similarityThreshold {
				continue
			}
			if sim > bestSim {
				bestSim, bestJ = sim, j
			}
		}

		if bestJ >= 0 {
			if res, ok := e.emit(&listA[i], &listB[bestJ], types.MatchSimilarity, bestSim); ok {
				matchedA[i], matchedB[bestJ] = true, true
				results = append(results, res)
			}
		}
	}

	return results
}

// passGuards applies the Pass 3 filters in their contractual order:
// template guard, category, temporal window.
func (e *Engine) passGuards(tplA, tplB *TemplateMatch, a, b *types.DiscoveredMarket) bool {
	if tplA != nil && tplB != nil && tplA.Template == tplB.Template {
		// Both sides parsed as the same template but Pass 2 did not join
		// them: the structured params disagree, and prose similarity may
		// not override that.
		CandidatesBlockedTotal.WithLabelValues("template-guard").Inc()
		return false
	}

	catA := NormalizeCategory(a.Category)
	catB := NormalizeCategory(b.Category)
	if catA != "" && catB != "" && catA != catB {
		CandidatesBlockedTotal.WithLabelValues("category").Inc()
		return false
	}

	if a.ResolvesAt != 0 && b.ResolvesAt != 0 {
		diff := a.ResolvesAt - b.ResolvesAt
		if diff < 0 {
			diff = -diff
		}
		if diff > e.temporalWindow.Milliseconds() {
			CandidatesBlockedTotal.WithLabelValues("temporal").Inc()
			return false
		}
	}

	return true
}

// emit computes polarity for an accepted pair. A flip below the
// confidence threshold discards the pair: trading an uncertain inversion
// risks buying the same outcome twice.
func (e *Engine) emit(a, b *types.DiscoveredMarket, matchType types.MatchType, similarity float64) (types.MatchResult, bool) {
	flip, confidence := DetectPolarity(a.Title, b.Title, a.OutcomeLabels, b.OutcomeLabels, e.year)
	if flip && confidence < e.confidenceThreshold {
		CandidatesBlockedTotal.WithLabelValues("uncertain-polarity").Inc()
		e.logger.Warn("match-dropped-uncertain-polarity",
			zap.String("market_a", a.ID),
			zap.String("market_b", b.ID),
			zap.String("title_a", a.Title),
			zap.String("title_b", b.Title),
			zap.Float64("confidence", confidence))

		return types.MatchResult{}, false
	}

	MatchesTotal.WithLabelValues(string(matchType)).Inc()
	if flip {
		PolarityFlipsTotal.Inc()
	}

	return types.MatchResult{
		MarketA:      a.Input(),
		MarketB:      b.Input(),
		MatchType:    matchType,
		Similarity:   similarity,
		PolarityFlip: flip,
	}, true
}

func hasConditionIDs(list []types.DiscoveredMarket) bool {
	for i := range list {
		if list[i].ConditionID != "" {
			return true
		}
	}

	return false
}
