// Package feed produces a synthetic two-venue quote stream so the engine can
// run without an upstream market-data connection. A real deployment replaces
// it with whatever transport pushes live snapshots.
package feed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Instrument seeds one underlying in the generator's universe.
type Instrument struct {
	Underlying string
	BasePrice  float64
	Volatility float64
}

// DefaultUniverse mirrors the index underlyings the engine ships volatility
// defaults for.
var DefaultUniverse = []Instrument{
	{Underlying: "NIFTY", BasePrice: 19850, Volatility: 0.15},
	{Underlying: "BANKNIFTY", BasePrice: 44300, Volatility: 0.18},
	{Underlying: "FINNIFTY", BasePrice: 19600, Volatility: 0.16},
}

// Generator random-walks a small contract universe and records fresh
// snapshots for both venues on every tick.
type Generator struct {
	model   *valuation.Model
	limiter *rate.Limiter
	logger  *logrus.Logger
	rng     *rand.Rand

	universe []Instrument
	prices   map[string]float64
}

func NewGenerator(model *valuation.Model, snapshotsPerSecond float64, logger *logrus.Logger) *Generator {
	return &Generator{
		model:    model,
		limiter:  rate.NewLimiter(rate.Limit(snapshotsPerSecond), 1),
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		universe: DefaultUniverse,
		prices:   make(map[string]float64),
	}
}

// SeedCatalog loads a cash, near-month future and at-the-money call/put pair
// for every underlying in the universe, and seeds the volatility surface so
// the options price before any external configuration arrives.
func (g *Generator) SeedCatalog() error {
	expiry := nearMonthExpiry()

	for _, inst := range g.universe {
		g.model.SetImpliedVolatility(inst.Underlying, inst.Volatility)
		strike := math.Round(inst.BasePrice/100) * 100

		contracts := []models.ContractDefinition{
			{
				Symbol:     inst.Underlying,
				Underlying: inst.Underlying,
				Kind:       models.KindCash,
				LotSize:    50,
				TickSize:   0.05,
			},
			{
				Symbol:     inst.Underlying + "-FUT",
				Underlying: inst.Underlying,
				Kind:       models.KindFuture,
				Expiry:     expiry,
				LotSize:    50,
				TickSize:   0.05,
			},
			{
				Symbol:     inst.Underlying + "-CE",
				Underlying: inst.Underlying,
				Kind:       models.KindOption,
				Strike:     strike,
				Expiry:     expiry,
				Right:      models.RightCall,
				LotSize:    50,
				TickSize:   0.05,
			},
			{
				Symbol:     inst.Underlying + "-PE",
				Underlying: inst.Underlying,
				Kind:       models.KindOption,
				Strike:     strike,
				Expiry:     expiry,
				Right:      models.RightPut,
				LotSize:    50,
				TickSize:   0.05,
			},
		}

		for _, c := range contracts {
			if err := g.model.LoadContract(c); err != nil {
				return err
			}
		}
		g.prices[inst.Underlying] = inst.BasePrice
	}

	return nil
}

// Run ticks until the context is cancelled.
func (g *Generator) Run(ctx context.Context) {
	g.logger.WithField("underlyings", len(g.universe)).Info("Starting synthetic feed")

	for {
		if err := g.limiter.Wait(ctx); err != nil {
			g.logger.Info("Synthetic feed stopped")
			return
		}
		g.tick()
	}
}

func (g *Generator) tick() {
	now := time.Now()

	for _, inst := range g.universe {
		spot := g.walk(inst.Underlying)

		for _, contract := range g.model.ContractsFor(inst.Underlying) {
			mid := g.quoteMid(contract, spot)
			g.model.RecordSnapshot(g.snapshot(contract.Symbol, models.VenueA, mid, now))
			// Venue B quotes slightly off venue A with thinner volume.
			offMid := mid * (1 + g.rng.Float64()*0.004 - 0.002)
			g.model.RecordSnapshot(g.snapshot(contract.Symbol, models.VenueB, offMid, now))
		}
	}
}

// walk nudges the underlying's spot by up to ±0.2% per tick.
func (g *Generator) walk(underlying string) float64 {
	price := g.prices[underlying] * (1 + g.rng.Float64()*0.004 - 0.002)
	g.prices[underlying] = price
	return price
}

// quoteMid derives a plausible market mid near the contract's model value.
func (g *Generator) quoteMid(contract models.ContractDefinition, spot float64) float64 {
	switch contract.Kind {
	case models.KindCash:
		return spot
	default:
		return g.model.FairValueFor(contract) * (1 + g.rng.Float64()*0.006 - 0.003)
	}
}

func (g *Generator) snapshot(symbol string, venue models.Venue, mid float64, now time.Time) models.MarketSnapshot {
	halfSpread := mid * 0.0005
	return models.MarketSnapshot{
		Symbol:       symbol,
		Venue:        venue,
		LastPrice:    mid,
		Bid:          mid - halfSpread,
		Ask:          mid + halfSpread,
		Volume:       uint64(10_000 + g.rng.Intn(90_000)),
		OpenInterest: uint64(100_000 + g.rng.Intn(900_000)),
		ObservedAt:   now,
	}
}

// nearMonthExpiry is the last Thursday pattern approximated as 30 days out.
func nearMonthExpiry() time.Time {
	return time.Now().AddDate(0, 0, 30)
}
