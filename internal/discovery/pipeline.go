package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// Filter drop reasons reported on MarketsFilteredTotal.
const (
	reasonNonBinary    = "non-binary"
	reasonMissingToken = "missing-token"
	reasonDuplicate    = "duplicate"
)

// binaryMarkets keeps only strict Yes/No markets with both outcome
// tokens present. Venue label order is preserved; when two venues list
// the pair in opposite orientations, polarity detection catches it and
// placement swaps the non-anchor leg.
func binaryMarkets(list []types.DiscoveredMarket, venue types.Protocol, logger *zap.Logger) []types.DiscoveredMarket {
	kept := make([]types.DiscoveredMarket, 0, len(list))
	for i := range list {
		m := list[i]

		first := strings.ToLower(strings.TrimSpace(m.OutcomeLabels[0]))
		second := strings.ToLower(strings.TrimSpace(m.OutcomeLabels[1]))
		binary := (first == "yes" && second == "no") || (first == "no" && second == "yes")
		if !binary {
			MarketsFilteredTotal.WithLabelValues(string(venue), reasonNonBinary).Inc()
			logger.Debug("skipping-non-binary-market",
				zap.String("venue", string(venue)),
				zap.String("market-id", m.ID),
				zap.String("title", m.Title))
			continue
		}

		if m.YesTokenID == "" || m.NoTokenID == "" {
			MarketsFilteredTotal.WithLabelValues(string(venue), reasonMissingToken).Inc()
			logger.Debug("skipping-market-missing-tokens",
				zap.String("venue", string(venue)),
				zap.String("market-id", m.ID))
			continue
		}

		kept = append(kept, m)
	}

	return kept
}

// dedupeByID drops repeat ids within one venue, keeping the first row.
// Predict lists the same market under /markets and under its category
// endpoint; Opinion repeats rows across page boundaries when the
// catalog shifts underneath the walk.
func dedupeByID(list []types.DiscoveredMarket, venue types.Protocol) []types.DiscoveredMarket {
	seen := make(map[string]struct{}, len(list))
	kept := make([]types.DiscoveredMarket, 0, len(list))
	for i := range list {
		if _, dup := seen[list[i].ID]; dup {
			MarketsFilteredTotal.WithLabelValues(string(venue), reasonDuplicate).Inc()
			continue
		}
		seen[list[i].ID] = struct{}{}
		kept = append(kept, list[i])
	}

	return kept
}

// assemble pairs the filtered catalogs and builds the published maps.
// Runs execute in fingerprint priority order so Predict-anchored entries
// land first and later runs cannot displace them.
func (s *Service) assemble(lists map[types.Protocol][]types.DiscoveredMarket) *Result {
	predict := lists[types.ProtocolPredict]
	probable := lists[types.ProtocolProbable]
	opinion := lists[types.ProtocolOpinion]

	result := &Result{
		Predict:     make(map[string]types.VenueMarket),
		Probable:    make(map[string]types.VenueMarket),
		Opinion:     make(map[string]types.VenueMarket),
		Polarity:    make(map[string]bool),
		RefreshedAt: time.Now().UTC(),
	}

	index := map[types.Protocol]map[string]*types.DiscoveredMarket{
		types.ProtocolPredict:  indexByID(predict),
		types.ProtocolProbable: indexByID(probable),
		types.ProtocolOpinion:  indexByID(opinion),
	}
	claims := map[types.Protocol]map[string]string{
		types.ProtocolPredict:  make(map[string]string),
		types.ProtocolProbable: make(map[string]string),
		types.ProtocolOpinion:  make(map[string]string),
	}

	runs := []struct {
		a, b []types.DiscoveredMarket
	}{
		{probable, predict},
		{opinion, predict},
		{opinion, probable},
	}

	for _, run := range runs {
		if len(run.a) == 0 || len(run.b) == 0 {
			continue
		}
		for _, pair := range s.matcher.Match(run.a, run.b) {
			s.place(result, index, claims, &pair)
		}
	}

	PairsMatchedTotal.Add(float64(len(result.Pairs)))

	return result
}

// place publishes one matched pair under its fingerprint. A side already
// claimed by an earlier, higher-priority run keeps its existing entry;
// this run can extend or confirm the claimed set but never rewrites it.
func (s *Service) place(result *Result, index map[types.Protocol]map[string]*types.DiscoveredMarket, claims map[types.Protocol]map[string]string, pair *types.MatchResult) {
	a := index[pair.MarketA.Platform][pair.MarketA.ID]
	b := index[pair.MarketB.Platform][pair.MarketB.ID]
	if a == nil || b == nil {
		return
	}

	fp, anchor, ok := pairFingerprint(a, b)
	if !ok {
		PairsDroppedTotal.WithLabelValues("no-fingerprint").Inc()
		s.logger.Warn("pair-has-no-fingerprint",
			zap.String("market-a", string(a.Platform)+":"+a.ID),
			zap.String("market-b", string(b.Platform)+":"+b.ID))
		return
	}

	consistent := true
	for _, m := range []*types.DiscoveredMarket{a, b} {
		claimedFP, claimed := claims[m.Platform][m.ID]
		if claimed {
			if claimedFP != fp {
				consistent = false
			}
			continue
		}

		flip := pair.PolarityFlip && m != anchor
		result.setVenue(m.Platform, fp, venueMarket(m, flip))
		claims[m.Platform][m.ID] = fp
	}

	if !consistent {
		PairsDroppedTotal.WithLabelValues("superseded").Inc()
		s.logger.Debug("pair-superseded",
			zap.String("fingerprint", fp),
			zap.String("market-a", string(a.Platform)+":"+a.ID),
			zap.String("market-b", string(b.Platform)+":"+b.ID))
		return
	}

	result.Polarity[fp] = result.Polarity[fp] || pair.PolarityFlip
	result.Pairs = append(result.Pairs, *pair)
}

// pairFingerprint selects the shared identifier for a matched pair:
// Predict conditionId first, then Probable conditionId, then the Opinion
// numeric id widened to 32-byte hex. The side that supplied the
// identifier anchors polarity for the pair.
func pairFingerprint(a, b *types.DiscoveredMarket) (string, *types.DiscoveredMarket, bool) {
	sides := [2]*types.DiscoveredMarket{a, b}

	for _, want := range []types.Protocol{types.ProtocolPredict, types.ProtocolProbable} {
		for _, m := range sides {
			if m.Platform == want && m.ConditionID != "" {
				return m.ConditionID, m, true
			}
		}
	}

	for _, m := range sides {
		if m.Platform != types.ProtocolOpinion {
			continue
		}
		id, err := strconv.ParseUint(m.ID, 10, 64)
		if err != nil {
			continue
		}
		return fmt.Sprintf("0x%064x", id), m, true
	}

	return "", nil, false
}

// venueMarket builds the published leg. A flipped leg swaps outcome
// tokens and labels so its YES always refers to the anchor's YES
// outcome.
func venueMarket(m *types.DiscoveredMarket, flip bool) types.VenueMarket {
	leg := types.VenueMarket{
		MarketID:      m.ID,
		Platform:      m.Platform,
		Title:         m.Title,
		YesTokenID:    m.YesTokenID,
		NoTokenID:     m.NoTokenID,
		OutcomeLabels: m.OutcomeLabels,
	}
	if flip {
		leg.YesTokenID, leg.NoTokenID = leg.NoTokenID, leg.YesTokenID
		leg.OutcomeLabels[0], leg.OutcomeLabels[1] = leg.OutcomeLabels[1], leg.OutcomeLabels[0]
		leg.PolarityFlipped = true
	}

	return leg
}

func indexByID(list []types.DiscoveredMarket) map[string]*types.DiscoveredMarket {
	index := make(map[string]*types.DiscoveredMarket, len(list))
	for i := range list {
		index[list[i].ID] = &list[i]
	}

	return index
}
