// Package valuation owns the engine's mutable market state — venue
// snapshots, the contract catalog, the volatility surface and the risk-free
// rate — and computes theoretical fair values from it.
package valuation

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/optionmath"
	"github.com/quantedge/thv-engine/pkg/stats"
	"github.com/sirupsen/logrus"
)

var (
	// ErrContractNotFound is returned when a symbol is absent from the
	// contract catalog. Lookup misses are surfaced, never defaulted to a
	// zero-valued contract.
	ErrContractNotFound = errors.New("contract not found")

	// ErrContractExists is returned when loading a second definition for a
	// symbol already in the catalog.
	ErrContractExists = errors.New("contract already loaded")
)

// DefaultRiskFreeRate is the annualized rate used until configured otherwise.
const DefaultRiskFreeRate = 0.06

type snapshotKey struct {
	symbol string
	venue  models.Venue
}

// Model holds current snapshots per (symbol, venue), the contract catalog,
// a flat per-underlying implied volatility surface and the risk-free rate.
// All state sits behind a single RWMutex: ingestion and queries may run
// concurrently from whatever scheduler drives the engine. The model never
// caches a fair value; every call reprices from the snapshots of the moment.
type Model struct {
	mu           sync.RWMutex
	snapshots    map[snapshotKey]models.MarketSnapshot
	contracts    map[string]models.ContractDefinition
	catalogOrder []string
	volatilities map[string]float64
	riskFreeRate float64

	volumes *stats.VolumeTracker
	logger  *logrus.Logger
}

func NewModel(volumes *stats.VolumeTracker, logger *logrus.Logger) *Model {
	return &Model{
		snapshots:    make(map[snapshotKey]models.MarketSnapshot),
		contracts:    make(map[string]models.ContractDefinition),
		volatilities: make(map[string]float64),
		riskFreeRate: DefaultRiskFreeRate,
		volumes:      volumes,
		logger:       logger,
	}
}

// RecordSnapshot upserts the current snapshot for the snapshot's
// (symbol, venue) key and feeds the day's volume into the rolling tracker.
func (m *Model) RecordSnapshot(snap models.MarketSnapshot) {
	m.mu.Lock()
	m.snapshots[snapshotKey{snap.Symbol, snap.Venue}] = snap
	m.mu.Unlock()

	m.volumes.Record(snap.Symbol, snap.Volume)
}

// Snapshot returns the current snapshot for (symbol, venue). When no
// snapshot has been recorded it returns a zero-valued one: the venue simply
// has no quote yet, which is not an error at this layer.
func (m *Model) Snapshot(symbol string, venue models.Venue) models.MarketSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if snap, ok := m.snapshots[snapshotKey{symbol, venue}]; ok {
		return snap
	}
	return models.MarketSnapshot{Symbol: symbol, Venue: venue}
}

// LoadContract adds a definition to the catalog. One definition per symbol.
func (m *Model) LoadContract(contract models.ContractDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.contracts[contract.Symbol]; exists {
		return fmt.Errorf("%w: %s", ErrContractExists, contract.Symbol)
	}
	m.contracts[contract.Symbol] = contract
	m.catalogOrder = append(m.catalogOrder, contract.Symbol)

	m.logger.WithFields(logrus.Fields{
		"symbol": contract.Symbol,
		"kind":   contract.Kind,
	}).Debug("Loaded contract")
	return nil
}

// Contract looks up a catalog entry by symbol.
func (m *Model) Contract(symbol string) (models.ContractDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contract, ok := m.contracts[symbol]
	if !ok {
		return models.ContractDefinition{}, fmt.Errorf("%w: %s", ErrContractNotFound, symbol)
	}
	return contract, nil
}

// ContractsFor returns every catalog entry whose underlying matches, in
// catalog load order.
func (m *Model) ContractsFor(underlying string) []models.ContractDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.ContractDefinition
	for _, symbol := range m.catalogOrder {
		if c := m.contracts[symbol]; c.Underlying == underlying {
			result = append(result, c)
		}
	}
	return result
}

// SetRiskFreeRate configures the flat annualized risk-free rate.
func (m *Model) SetRiskFreeRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riskFreeRate = rate
}

// RiskFreeRate returns the configured flat annualized risk-free rate.
func (m *Model) RiskFreeRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.riskFreeRate
}

// SetImpliedVolatility sets the flat implied volatility for an underlying.
// The surface is a single scalar per underlying; there is no skew or term
// structure in this model.
func (m *Model) SetImpliedVolatility(underlying string, vol float64) {
	m.mu.Lock()
	m.volatilities[underlying] = vol
	m.mu.Unlock()
}

// ImpliedVolatility returns the flat volatility for an underlying, 0 when
// the underlying has never been configured.
func (m *Model) ImpliedVolatility(underlying string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volatilities[underlying]
}

// FairValue computes the theoretical price for a cataloged symbol from the
// most recent snapshots. Unknown symbols return ErrContractNotFound.
func (m *Model) FairValue(symbol string) (float64, error) {
	contract, err := m.Contract(symbol)
	if err != nil {
		return 0, err
	}
	return m.fairValue(contract), nil
}

// FairValueFor is FairValue for an already-resolved catalog entry.
func (m *Model) FairValueFor(contract models.ContractDefinition) float64 {
	return m.fairValue(contract)
}

func (m *Model) fairValue(contract models.ContractDefinition) float64 {
	switch contract.Kind {
	case models.KindCash:
		return m.cashFairValue(contract.Symbol)
	case models.KindFuture:
		return m.futureFairValue(contract)
	case models.KindOption:
		return m.optionFairValue(contract)
	}
	return 0
}

// cashFairValue is the volume-weighted average of both venues' last prices.
// With no traded volume on either venue it degrades to the simple mean. A
// venue with no snapshot weighs in at price 0 / volume 0.
func (m *Model) cashFairValue(symbol string) float64 {
	a := m.Snapshot(symbol, models.VenueA)
	b := m.Snapshot(symbol, models.VenueB)

	totalVolume := a.Volume + b.Volume
	if totalVolume > 0 {
		return (a.LastPrice*float64(a.Volume) + b.LastPrice*float64(b.Volume)) / float64(totalVolume)
	}
	return (a.LastPrice + b.LastPrice) / 2
}

// futureFairValue applies the cost-of-carry model F = S * e^(rT). Spot is
// the underlying's cash quote at venue A, the engine's reference venue.
func (m *Model) futureFairValue(contract models.ContractDefinition) float64 {
	spot := m.Snapshot(contract.Underlying, models.VenueA)
	t := TimeToExpiry(contract.Expiry)
	return spot.LastPrice * math.Exp(m.RiskFreeRate()*t)
}

func (m *Model) optionFairValue(contract models.ContractDefinition) float64 {
	spot := m.Snapshot(contract.Underlying, models.VenueA)
	t := TimeToExpiry(contract.Expiry)

	return optionmath.BlackScholes(
		spot.LastPrice,
		contract.Strike,
		t,
		m.RiskFreeRate(),
		m.ImpliedVolatility(contract.Underlying),
		contract.Right == models.RightCall,
	)
}

// TimeToExpiry converts an expiry timestamp to years from now, floored at 0.
func TimeToExpiry(expiry time.Time) float64 {
	days := time.Until(expiry).Hours() / 24
	return math.Max(0, days) / 365
}
