package discovery

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/vaibhav0806/prophit-sub001/internal/matching"
	"github.com/vaibhav0806/prophit-sub001/pkg/cache"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

type fakeCatalog struct {
	protocol types.Protocol
	markets  []types.DiscoveredMarket
	err      error
}

func (f *fakeCatalog) Protocol() types.Protocol { return f.protocol }

func (f *fakeCatalog) ListMarkets(_ context.Context) ([]types.DiscoveredMarket, error) {
	return f.markets, f.err
}

func market(p types.Protocol, id, title, conditionID string) types.DiscoveredMarket {
	return types.DiscoveredMarket{
		ID:            id,
		Platform:      p,
		Title:         title,
		ConditionID:   conditionID,
		YesTokenID:    id + "-yes",
		NoTokenID:     id + "-no",
		OutcomeLabels: [2]string{"Yes", "No"},
	}
}

func testMatcher(t *testing.T) *matching.Engine {
	t.Helper()

	matcher, err := matching.New(&matching.Config{
		Logger: zaptest.NewLogger(t),
		Year:   2026,
	})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	return matcher
}

func newTestService(t *testing.T, catalogs ...Catalog) *Service {
	t.Helper()

	svc, err := New(&Config{
		Catalogs:     catalogs,
		Matcher:      testMatcher(t),
		AutoDiscover: true,
		Logger:       zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return svc
}

func TestNewValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	catA := &fakeCatalog{protocol: types.ProtocolPredict}
	catB := &fakeCatalog{protocol: types.ProtocolOpinion}
	matcher := testMatcher(t)

	tests := []struct {
		name   string
		cfg    *Config
		errMsg string
	}{
		{
			name:   "nil-config",
			cfg:    nil,
			errMsg: "config cannot be nil",
		},
		{
			name:   "nil-logger",
			cfg:    &Config{},
			errMsg: "logger cannot be nil",
		},
		{
			name:   "too-few-catalogs",
			cfg:    &Config{AutoDiscover: true, Catalogs: []Catalog{catA}, Matcher: matcher, Logger: logger},
			errMsg: "auto-discovery requires at least two catalogs",
		},
		{
			name:   "missing-matcher",
			cfg:    &Config{AutoDiscover: true, Catalogs: []Catalog{catA, catB}, Logger: logger},
			errMsg: "matcher cannot be nil",
		},
		{
			name:   "missing-static-maps",
			cfg:    &Config{AutoDiscover: false, Logger: logger},
			errMsg: "static maps are required when auto-discovery is off",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil || err.Error() != tt.errMsg {
				t.Fatalf("expected error %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestRefreshPairsSharedConditionID(t *testing.T) {
	title := "Will the Lakers win the 2026 NBA Finals?"
	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xaaa")},
	}
	probable := &fakeCatalog{
		protocol: types.ProtocolProbable,
		markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xaaa")},
	}

	svc := newTestService(t, predict, probable)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result := svc.Snapshot()
	if result == nil {
		t.Fatal("expected snapshot after refresh")
	}

	leg, ok := svc.VenueMarket("0xaaa", types.ProtocolPredict)
	if !ok {
		t.Fatal("expected predict leg under shared conditionId")
	}
	if leg.MarketID != "pm-1" {
		t.Errorf("expected predict market pm-1, got %s", leg.MarketID)
	}
	if leg.YesTokenID != "pm-1-yes" || leg.NoTokenID != "pm-1-no" {
		t.Errorf("unexpected predict tokens %s/%s", leg.YesTokenID, leg.NoTokenID)
	}

	leg, ok = svc.VenueMarket("0xaaa", types.ProtocolProbable)
	if !ok {
		t.Fatal("expected probable leg under shared conditionId")
	}
	if leg.MarketID != "pb-1" {
		t.Errorf("expected probable market pb-1, got %s", leg.MarketID)
	}
	if leg.PolarityFlipped {
		t.Error("expected aligned pair without polarity flip")
	}

	if len(result.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
	}
	if result.Pairs[0].MatchType != types.MatchConditionID {
		t.Errorf("expected conditionId match, got %s", result.Pairs[0].MatchType)
	}
	if flipped := result.Polarity["0xaaa"]; flipped {
		t.Error("expected polarity false for aligned pair")
	}
}

func TestRefreshToleratesVenueFailure(t *testing.T) {
	title := "Will the Celtics win the 2026 NBA Finals?"
	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xaaa")},
	}
	probable := &fakeCatalog{
		protocol: types.ProtocolProbable,
		markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xaaa")},
	}
	opinion := &fakeCatalog{
		protocol: types.ProtocolOpinion,
		err:      fmt.Errorf("connect: connection refused"),
	}

	svc := newTestService(t, predict, probable, opinion)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("expected refresh to tolerate one venue down, got %v", err)
	}

	result := svc.Snapshot()
	if len(result.Predict) != 1 || len(result.Probable) != 1 {
		t.Errorf("expected surviving venues to pair, got %d/%d entries",
			len(result.Predict), len(result.Probable))
	}
	if len(result.Opinion) != 0 {
		t.Errorf("expected empty opinion map, got %d entries", len(result.Opinion))
	}
}

func TestRefreshAllVenuesFailedKeepsSnapshot(t *testing.T) {
	title := "Will the Warriors win the 2026 NBA Finals?"
	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xaaa")},
	}
	probable := &fakeCatalog{
		protocol: types.ProtocolProbable,
		markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xaaa")},
	}

	svc := newTestService(t, predict, probable)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := svc.Snapshot()

	predict.err = fmt.Errorf("503 service unavailable")
	probable.err = fmt.Errorf("503 service unavailable")

	err := svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error when every venue catalog fails")
	}
	if err.Error() != "all 2 venue catalogs failed" {
		t.Errorf("unexpected error message: %v", err)
	}

	if svc.Snapshot() != before {
		t.Error("expected previous snapshot to survive a dead refresh")
	}
}

func TestFingerprintPrecedence(t *testing.T) {
	title := "Will the Knicks win the 2026 NBA Finals?"

	t.Run("predict-conditionid-wins", func(t *testing.T) {
		predict := &fakeCatalog{
			protocol: types.ProtocolPredict,
			markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xpredict")},
		}
		probable := &fakeCatalog{
			protocol: types.ProtocolProbable,
			markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xprobable")},
		}

		svc := newTestService(t, predict, probable)
		if err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		if _, ok := svc.VenueMarket("0xpredict", types.ProtocolProbable); !ok {
			t.Error("expected probable leg keyed by the predict conditionId")
		}
		if _, ok := svc.VenueMarket("0xprobable", types.ProtocolProbable); ok {
			t.Error("expected probable's own conditionId to be unused")
		}
	})

	t.Run("probable-anchors-opinion-pair", func(t *testing.T) {
		probable := &fakeCatalog{
			protocol: types.ProtocolProbable,
			markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xprobable")},
		}
		opinion := &fakeCatalog{
			protocol: types.ProtocolOpinion,
			markets:  []types.DiscoveredMarket{market(types.ProtocolOpinion, "42", title, "")},
		}

		svc := newTestService(t, probable, opinion)
		if err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		if _, ok := svc.VenueMarket("0xprobable", types.ProtocolOpinion); !ok {
			t.Error("expected opinion leg keyed by the probable conditionId")
		}
	})

	t.Run("opinion-id-widened-to-hex", func(t *testing.T) {
		predict := &fakeCatalog{
			protocol: types.ProtocolPredict,
			markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "")},
		}
		opinion := &fakeCatalog{
			protocol: types.ProtocolOpinion,
			markets:  []types.DiscoveredMarket{market(types.ProtocolOpinion, "42", title, "")},
		}

		svc := newTestService(t, predict, opinion)
		if err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		want := fmt.Sprintf("0x%064x", 42)
		if _, ok := svc.VenueMarket(want, types.ProtocolOpinion); !ok {
			t.Errorf("expected opinion leg under %s", want)
		}
		if _, ok := svc.VenueMarket(want, types.ProtocolPredict); !ok {
			t.Errorf("expected predict leg under %s", want)
		}
	})

	t.Run("non-numeric-opinion-id-unpairable", func(t *testing.T) {
		predict := &fakeCatalog{
			protocol: types.ProtocolPredict,
			markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "")},
		}
		opinion := &fakeCatalog{
			protocol: types.ProtocolOpinion,
			markets:  []types.DiscoveredMarket{market(types.ProtocolOpinion, "not-a-number", title, "")},
		}

		svc := newTestService(t, predict, opinion)
		if err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}

		if got := len(svc.Snapshot().Fingerprints()); got != 0 {
			t.Errorf("expected no fingerprints without any usable identifier, got %d", got)
		}
	})
}

func TestPredictAnchorSurvivesOpinionProbablePair(t *testing.T) {
	title := "Will the Heat win the 2026 NBA Finals?"
	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xaaa")},
	}
	probable := &fakeCatalog{
		protocol: types.ProtocolProbable,
		markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xbbb")},
	}
	opinion := &fakeCatalog{
		protocol: types.ProtocolOpinion,
		markets:  []types.DiscoveredMarket{market(types.ProtocolOpinion, "42", title, "")},
	}

	svc := newTestService(t, predict, probable, opinion)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	result := svc.Snapshot()

	// All three venues collapse onto the Predict-anchored fingerprint.
	fps := result.Fingerprints()
	if len(fps) != 1 || fps[0] != "0xaaa" {
		t.Fatalf("expected single fingerprint 0xaaa, got %v", fps)
	}

	for _, p := range types.AllProtocols() {
		if _, ok := svc.VenueMarket("0xaaa", p); !ok {
			t.Errorf("expected %s leg under the predict anchor", p)
		}
	}

	// The Opinion-Probable pair resolves to the probable conditionId, but
	// both sides are already claimed, so it must not create new entries.
	if _, ok := svc.VenueMarket("0xbbb", types.ProtocolProbable); ok {
		t.Error("expected probable conditionId key to stay unused")
	}
	if len(result.Pairs) != 2 {
		t.Errorf("expected 2 recorded pairs, got %d", len(result.Pairs))
	}
}

func TestPolarityFlipSwapsNonAnchorLeg(t *testing.T) {
	title := "Will the Bucks win the 2026 NBA Finals?"
	predictMarket := market(types.ProtocolPredict, "pm-1", title, "0xaaa")
	opinionMarket := market(types.ProtocolOpinion, "42", title, "")
	opinionMarket.OutcomeLabels = [2]string{"No", "Yes"}

	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{predictMarket},
	}
	opinion := &fakeCatalog{
		protocol: types.ProtocolOpinion,
		markets:  []types.DiscoveredMarket{opinionMarket},
	}

	svc := newTestService(t, predict, opinion)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	anchor, ok := svc.VenueMarket("0xaaa", types.ProtocolPredict)
	if !ok {
		t.Fatal("expected predict leg")
	}
	if anchor.PolarityFlipped {
		t.Error("expected the anchor leg to keep its orientation")
	}
	if anchor.YesTokenID != "pm-1-yes" {
		t.Errorf("expected anchor tokens untouched, got %s", anchor.YesTokenID)
	}

	flipped, ok := svc.VenueMarket("0xaaa", types.ProtocolOpinion)
	if !ok {
		t.Fatal("expected opinion leg")
	}
	if !flipped.PolarityFlipped {
		t.Fatal("expected the opinion leg to be flipped")
	}
	if flipped.YesTokenID != "42-no" || flipped.NoTokenID != "42-yes" {
		t.Errorf("expected swapped tokens, got %s/%s", flipped.YesTokenID, flipped.NoTokenID)
	}
	if flipped.OutcomeLabels != [2]string{"Yes", "No"} {
		t.Errorf("expected swapped labels, got %v", flipped.OutcomeLabels)
	}

	if !svc.Polarity()["0xaaa"] {
		t.Error("expected polarity table to mark the fingerprint flipped")
	}
}

func TestBinaryMarketsFilter(t *testing.T) {
	logger := zaptest.NewLogger(t)

	list := []types.DiscoveredMarket{
		market(types.ProtocolPredict, "pm-1", "Valid market", ""),
		{
			ID:            "pm-2",
			Platform:      types.ProtocolPredict,
			Title:         "Inverted label order",
			YesTokenID:    "pm-2-yes",
			NoTokenID:     "pm-2-no",
			OutcomeLabels: [2]string{"No", "Yes"},
		},
		{
			ID:            "pm-3",
			Platform:      types.ProtocolPredict,
			Title:         "Categorical market",
			YesTokenID:    "pm-3-a",
			NoTokenID:     "pm-3-b",
			OutcomeLabels: [2]string{"Lakers", "Celtics"},
		},
		{
			ID:            "pm-4",
			Platform:      types.ProtocolPredict,
			Title:         "Missing token",
			YesTokenID:    "",
			NoTokenID:     "pm-4-no",
			OutcomeLabels: [2]string{"Yes", "No"},
		},
	}

	kept := binaryMarkets(list, types.ProtocolPredict, logger)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept markets, got %d", len(kept))
	}
	if kept[0].ID != "pm-1" || kept[1].ID != "pm-2" {
		t.Errorf("unexpected kept set: %s, %s", kept[0].ID, kept[1].ID)
	}

	// Label order is preserved for polarity detection downstream.
	if kept[1].OutcomeLabels != [2]string{"No", "Yes"} {
		t.Errorf("expected venue label order preserved, got %v", kept[1].OutcomeLabels)
	}
}

func TestDedupeByID(t *testing.T) {
	first := market(types.ProtocolPredict, "pm-1", "Listed under /markets", "0xaaa")
	second := market(types.ProtocolPredict, "pm-1", "Listed again under a category", "0xaaa")
	other := market(types.ProtocolPredict, "pm-2", "Different market", "0xbbb")

	kept := dedupeByID([]types.DiscoveredMarket{first, second, other}, types.ProtocolPredict)
	if len(kept) != 2 {
		t.Fatalf("expected 2 markets after dedupe, got %d", len(kept))
	}
	if kept[0].Title != "Listed under /markets" {
		t.Error("expected the first occurrence to win")
	}
	if kept[1].ID != "pm-2" {
		t.Errorf("expected pm-2 kept, got %s", kept[1].ID)
	}
}

func TestStaticMode(t *testing.T) {
	static := &StaticMaps{
		Predict: map[string]types.VenueMarket{
			"0xfeed": {MarketID: "pm-9", Platform: types.ProtocolPredict, YesTokenID: "0x01", NoTokenID: "0x02"},
		},
		Opinion: map[string]types.VenueMarket{
			"0xfeed": {MarketID: "77", Platform: types.ProtocolOpinion, YesTokenID: "op-no", NoTokenID: "op-yes", PolarityFlipped: true},
		},
	}

	svc, err := New(&Config{
		AutoDiscover: false,
		Static:       static,
		Logger:       zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	leg, ok := svc.VenueMarket("0xfeed", types.ProtocolPredict)
	if !ok {
		t.Fatal("expected injected predict leg")
	}
	if leg.MarketID != "pm-9" {
		t.Errorf("expected pm-9, got %s", leg.MarketID)
	}

	if !svc.Polarity()["0xfeed"] {
		t.Error("expected polarity derived from the injected flip marker")
	}

	before := svc.Snapshot()
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh in static mode: %v", err)
	}
	if svc.Snapshot() != before {
		t.Error("expected static snapshot to be permanent")
	}

	// Published maps are copies; mutating the operator's map must not
	// leak into the snapshot.
	static.Predict["0xother"] = types.VenueMarket{MarketID: "pm-10"}
	if _, ok := svc.VenueMarket("0xother", types.ProtocolPredict); ok {
		t.Error("expected snapshot isolated from caller mutation")
	}
}

func TestPairResolvesFromCacheAfterDelisting(t *testing.T) {
	logger := zaptest.NewLogger(t)
	pairCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		MaxEntries: 100,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer pairCache.Close()

	title := "Will the Suns win the 2026 NBA Finals?"
	predict := &fakeCatalog{
		protocol: types.ProtocolPredict,
		markets:  []types.DiscoveredMarket{market(types.ProtocolPredict, "pm-1", title, "0xaaa")},
	}
	probable := &fakeCatalog{
		protocol: types.ProtocolProbable,
		markets:  []types.DiscoveredMarket{market(types.ProtocolProbable, "pb-1", title, "0xaaa")},
	}

	svc, err := New(&Config{
		Catalogs:     []Catalog{predict, probable},
		Matcher:      testMatcher(t),
		Cache:        pairCache,
		AutoDiscover: true,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	pairCache.Wait()

	if legs := svc.Pair("0xaaa"); len(legs) != 2 {
		t.Fatalf("expected 2 legs from the live snapshot, got %d", len(legs))
	}

	// Both venues delist the market; the pair must still resolve through
	// the cache for post-mortem lookups.
	predict.markets = nil
	probable.markets = nil
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	legs := svc.Pair("0xaaa")
	if len(legs) != 2 {
		t.Fatalf("expected 2 cached legs after delisting, got %d", len(legs))
	}
	if legs[0].MarketID != "pm-1" || legs[1].MarketID != "pb-1" {
		t.Errorf("unexpected cached legs %s/%s", legs[0].MarketID, legs[1].MarketID)
	}

	if legs := svc.Pair("0xunknown"); legs != nil {
		t.Errorf("expected nil for unknown fingerprint, got %v", legs)
	}
}

func TestLookupsBeforeFirstRefresh(t *testing.T) {
	predict := &fakeCatalog{protocol: types.ProtocolPredict}
	probable := &fakeCatalog{protocol: types.ProtocolProbable}

	svc := newTestService(t, predict, probable)

	if _, ok := svc.VenueMarket("0xaaa", types.ProtocolPredict); ok {
		t.Error("expected no venue market before the first refresh")
	}
	if svc.Polarity() != nil {
		t.Error("expected nil polarity table before the first refresh")
	}
	if svc.Pair("0xaaa") != nil {
		t.Error("expected nil pair before the first refresh")
	}
}
