package engine

import (
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/stats"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	model   *valuation.Model
	volumes *stats.VolumeTracker
	engine  *ComparisonEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	volumes := stats.NewVolumeTracker()
	model := valuation.NewModel(volumes, logger)
	return &fixture{
		model:   model,
		volumes: volumes,
		engine:  NewComparisonEngine(model, volumes, logger),
	}
}

func (f *fixture) loadCash(t *testing.T, symbol, underlying string) {
	t.Helper()
	err := f.model.LoadContract(models.ContractDefinition{
		Symbol: symbol, Underlying: underlying, Kind: models.KindCash, LotSize: 50, TickSize: 0.05,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) quote(symbol string, venue models.Venue, price float64, volume uint64) {
	f.model.RecordSnapshot(models.MarketSnapshot{
		Symbol:     symbol,
		Venue:      venue,
		LastPrice:  price,
		Bid:        price - 0.05,
		Ask:        price + 0.05,
		Volume:     volume,
		ObservedAt: time.Now(),
	})
}

// TestCompareContracts_SortedByDeviation loads three cash contracts with
// distinct fair-value deviations and verifies best-first ordering.
func TestCompareContracts_SortedByDeviation(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "AAA", "IDX")
	f.loadCash(t, "BBB", "IDX")
	f.loadCash(t, "CCC", "IDX")

	// AAA: fair 100 (all weight on venue A), venue A bang on fair → |diff| 0.
	f.quote("AAA", models.VenueA, 100, 1000)
	f.quote("AAA", models.VenueB, 102, 0)

	// BBB: fair 102, both venues ~1.96% away → |diff| ≈ 1.96.
	f.quote("BBB", models.VenueA, 100, 500)
	f.quote("BBB", models.VenueB, 104, 500)

	// CCC: fair 101, venue A ~0.99% away → |diff| ≈ 0.99.
	f.quote("CCC", models.VenueA, 100, 3000)
	f.quote("CCC", models.VenueB, 104, 1000)

	results := f.engine.CompareContracts("IDX", 1)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantOrder := []string{"AAA", "CCC", "BBB"}
	for i, want := range wantOrder {
		if results[i].Symbol != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Symbol, want)
		}
	}

	for i := 1; i < len(results); i++ {
		if math.Abs(results[i-1].PercentageDiff) > math.Abs(results[i].PercentageDiff) {
			t.Errorf("results not sorted by |diff| at index %d", i)
		}
	}
}

// TestCompareContracts_ChoosesCloserVenue verifies the venue with the
// smaller absolute deviation from fair value wins.
func TestCompareContracts_ChoosesCloserVenue(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "DDD", "IDX2")

	// Fair value 101; venue B (100) deviates 0.99%, venue A (104) 2.97%.
	f.quote("DDD", models.VenueA, 104, 1000)
	f.quote("DDD", models.VenueB, 100, 3000)

	results := f.engine.CompareContracts("IDX2", 1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.ChosenVenue != models.VenueB {
		t.Errorf("chosen venue = %s, want %s", r.ChosenVenue, models.VenueB)
	}
	if r.PriceVenueA != 104 || r.PriceVenueB != 100 {
		t.Errorf("venue prices = %v/%v, want 104/100", r.PriceVenueA, r.PriceVenueB)
	}
}

// TestCompareContracts_TiePrefersVenueA verifies exact deviation ties break
// to venue A deterministically.
func TestCompareContracts_TiePrefersVenueA(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "EEE", "IDX3")

	// Fair value 102; both venues deviate by exactly 2 points.
	f.quote("EEE", models.VenueA, 100, 500)
	f.quote("EEE", models.VenueB, 104, 500)

	results := f.engine.CompareContracts("IDX3", 1)
	if results[0].ChosenVenue != models.VenueA {
		t.Errorf("chosen venue on tie = %s, want %s", results[0].ChosenVenue, models.VenueA)
	}
}

// TestCompareContracts_SignedDiff verifies PercentageDiff keeps its sign:
// below fair value reads negative (cheap).
func TestCompareContracts_SignedDiff(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "FFF", "IDX4")

	f.quote("FFF", models.VenueA, 100, 500)
	f.quote("FFF", models.VenueB, 104, 500)

	r := f.engine.CompareContracts("IDX4", 1)[0]
	want := (100.0 - 102.0) / 102.0 * 100
	if math.Abs(r.PercentageDiff-want) > 1e-9 {
		t.Errorf("signed diff = %v, want %v", r.PercentageDiff, want)
	}
}

// TestCompareContracts_StableTieBreak verifies equal-|diff| rows keep
// catalog load order.
func TestCompareContracts_StableTieBreak(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "TTX", "TIE")
	f.loadCash(t, "TT1", "TIE")
	f.loadCash(t, "TT2", "TIE")

	// TTX carries some deviation; TT1 and TT2 both sit exactly at fair.
	f.quote("TTX", models.VenueA, 100, 3000)
	f.quote("TTX", models.VenueB, 104, 1000)
	for _, sym := range []string{"TT1", "TT2"} {
		f.quote(sym, models.VenueA, 100, 1000)
		f.quote(sym, models.VenueB, 102, 0)
	}

	results := f.engine.CompareContracts("TIE", 1)
	wantOrder := []string{"TT1", "TT2", "TTX"}
	for i, want := range wantOrder {
		if results[i].Symbol != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Symbol, want)
		}
	}
}

// TestCompareContracts_Recommendation drives one contract through the full
// recommendation gate, then fails it on volume compliance alone.
func TestCompareContracts_Recommendation(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "RRR", "REC")

	// Venue A: tight 0.2% spread, heavy volume, deep open interest, priced
	// exactly at fair value (venue B carries no weight).
	f.model.RecordSnapshot(models.MarketSnapshot{
		Symbol: "RRR", Venue: models.VenueA,
		LastPrice: 100, Bid: 99.9, Ask: 100.1,
		Volume: 100_000, OpenInterest: 1_000_000,
		ObservedAt: time.Now(),
	})
	f.quote("RRR", models.VenueB, 102, 0)

	r := f.engine.CompareContracts("REC", 100)[0]
	if !r.IsRecommended {
		t.Errorf("expected recommendation, got %+v", r)
	}

	// Same market, target far beyond 5% of the rolling average: compliance
	// is the only failing condition.
	r = f.engine.CompareContracts("REC", 10_000)[0]
	if r.VolumeCompliant {
		t.Errorf("quantity 10000 should breach the volume limit")
	}
	if r.IsRecommended {
		t.Errorf("breached volume limit must veto the recommendation")
	}
}

// TestFindOptimalContract_KindFilter verifies the best-ranked contract of
// the requested kind is returned.
func TestFindOptimalContract_KindFilter(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "AAA", "IDX5")
	f.loadCash(t, "BBB", "IDX5")

	f.quote("AAA", models.VenueA, 100, 3000)
	f.quote("AAA", models.VenueB, 104, 1000)
	f.quote("BBB", models.VenueA, 100, 1000)
	f.quote("BBB", models.VenueB, 102, 0)

	result, err := f.engine.FindOptimalContract("IDX5", models.KindCash, 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Symbol != "BBB" {
		t.Errorf("optimal contract = %s, want BBB (smallest |diff|)", result.Symbol)
	}
}

// TestFindOptimalContract_NotFound verifies a missing kind surfaces
// ErrNoContract rather than a zero-valued result.
func TestFindOptimalContract_NotFound(t *testing.T) {
	f := newFixture(t)
	f.loadCash(t, "AAA", "IDX6")
	f.quote("AAA", models.VenueA, 100, 1000)

	_, err := f.engine.FindOptimalContract("IDX6", models.KindOption, 1)
	if !errors.Is(err, ErrNoContract) {
		t.Errorf("err = %v, want ErrNoContract", err)
	}
}
