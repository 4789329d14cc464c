package feed

import (
	"io"
	"testing"

	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/stats"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
)

func newTestGenerator(t *testing.T) (*Generator, *valuation.Model) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	model := valuation.NewModel(stats.NewVolumeTracker(), logger)
	return NewGenerator(model, 10, logger), model
}

// TestSeedCatalog verifies every universe underlying gets its cash, future
// and call/put option contracts.
func TestSeedCatalog(t *testing.T) {
	g, model := newTestGenerator(t)
	if err := g.SeedCatalog(); err != nil {
		t.Fatal(err)
	}

	for _, inst := range DefaultUniverse {
		contracts := model.ContractsFor(inst.Underlying)
		if len(contracts) != 4 {
			t.Fatalf("%s: got %d contracts, want 4", inst.Underlying, len(contracts))
		}

		kinds := map[models.ContractKind]int{}
		for _, c := range contracts {
			kinds[c.Kind]++
		}
		if kinds[models.KindCash] != 1 || kinds[models.KindFuture] != 1 || kinds[models.KindOption] != 2 {
			t.Errorf("%s: kind mix = %v", inst.Underlying, kinds)
		}
	}

	// Reseeding must hit the catalog uniqueness invariant.
	if err := g.SeedCatalog(); err == nil {
		t.Errorf("expected duplicate-contract error on reseed")
	}
}

// TestTick_RecordsBothVenues verifies one tick leaves a current snapshot on
// both venues for every seeded contract.
func TestTick_RecordsBothVenues(t *testing.T) {
	g, model := newTestGenerator(t)
	if err := g.SeedCatalog(); err != nil {
		t.Fatal(err)
	}

	g.tick()

	for _, inst := range DefaultUniverse {
		for _, contract := range model.ContractsFor(inst.Underlying) {
			for _, venue := range []models.Venue{models.VenueA, models.VenueB} {
				snap := model.Snapshot(contract.Symbol, venue)
				if snap.LastPrice <= 0 {
					t.Errorf("%s@%s: price = %v, want > 0", contract.Symbol, venue, snap.LastPrice)
				}
				if snap.Volume == 0 {
					t.Errorf("%s@%s: volume = 0, want > 0", contract.Symbol, venue)
				}
			}
		}
	}
}
