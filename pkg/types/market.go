package types

// Protocol identifies a trading venue.
type Protocol string

const (
	ProtocolPredict  Protocol = "predict"
	ProtocolProbable Protocol = "probable"
	ProtocolOpinion  Protocol = "opinion"
)

// AllProtocols returns the venues in their fixed iteration order.
// Keeping the order stable keeps scans and map assembly deterministic.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolPredict, ProtocolProbable, ProtocolOpinion}
}

// Valid reports whether p is a known venue.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolPredict, ProtocolProbable, ProtocolOpinion:
		return true
	}

	return false
}

// DiscoveredMarket is a binary market as returned by a venue catalog,
// reduced to the fields the pipeline needs. Optional venue fields are
// zero-valued when absent, never sentinel strings.
type DiscoveredMarket struct {
	ID            string
	Platform      Protocol
	Title         string
	ConditionID   string // shared on-chain condition id; empty on venues without one
	Category      string
	ResolvesAt    int64 // unix ms, 0 when the venue omits a resolution time
	YesTokenID    string
	NoTokenID     string
	OutcomeLabels [2]string
	Image         string
	URL           string
}

// Input reduces the market to the subset the matching engine consumes.
func (m *DiscoveredMarket) Input() MarketInput {
	return MarketInput{
		ID:          m.ID,
		Platform:    m.Platform,
		Title:       m.Title,
		ConditionID: m.ConditionID,
		Category:    m.Category,
		ResolvesAt:  m.ResolvesAt,
	}
}

// MarketInput is the matching view of a discovered market.
type MarketInput struct {
	ID          string
	Platform    Protocol
	Title       string
	ConditionID string
	Category    string
	ResolvesAt  int64
}

// VenueMarket is one venue's leg of a matched pair, keyed by the pair
// fingerprint in the per-platform maps the discovery pipeline publishes.
// Token ids are already polarity-normalized: YES here always refers to the
// same real-world outcome as YES on the paired venues.
type VenueMarket struct {
	MarketID        string
	Platform        Protocol
	Title           string
	YesTokenID      string
	NoTokenID       string
	OutcomeLabels   [2]string
	PolarityFlipped bool
	FeeBps          int64 // per-market override, 0 means the venue baseline applies
}
