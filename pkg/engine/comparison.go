// Package engine ranks the contracts of an underlying across venues against
// their theoretical fair value and owns the recommendation policy.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/quantedge/thv-engine/pkg/liquidity"
	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/stats"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
)

// ErrNoContract is returned when an underlying has no contract of the
// requested kind in the catalog. A lookup miss is an error, never an empty
// comparison row.
var ErrNoContract = errors.New("no contract for underlying")

// Recommendation policy. Fixed here; a production deployment would
// externalize these.
const (
	MaxFairValueDiffPct = 0.5
	MinLiquidityScore   = 0.6
	MaxSpreadPct        = 1.0
)

// ComparisonEngine pulls contracts, fair values, liquidity scores and volume
// baselines together into ranked per-contract comparisons.
type ComparisonEngine struct {
	model   *valuation.Model
	volumes *stats.VolumeTracker
	logger  *logrus.Logger
}

func NewComparisonEngine(model *valuation.Model, volumes *stats.VolumeTracker, logger *logrus.Logger) *ComparisonEngine {
	return &ComparisonEngine{
		model:   model,
		volumes: volumes,
		logger:  logger,
	}
}

// CompareContracts builds one ComparisonResult per cataloged contract on the
// underlying, ranked best first: ascending by absolute deviation from fair
// value, catalog order breaking ties.
func (e *ComparisonEngine) CompareContracts(underlying string, targetQuantity float64) []models.ComparisonResult {
	contracts := e.model.ContractsFor(underlying)

	results := make([]models.ComparisonResult, 0, len(contracts))
	for _, contract := range contracts {
		results = append(results, e.compare(contract, targetQuantity))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return math.Abs(results[i].PercentageDiff) < math.Abs(results[j].PercentageDiff)
	})

	e.logger.WithFields(logrus.Fields{
		"underlying": underlying,
		"contracts":  len(results),
	}).Debug("Compared contracts")

	return results
}

func (e *ComparisonEngine) compare(contract models.ContractDefinition, targetQuantity float64) models.ComparisonResult {
	snapA := e.model.Snapshot(contract.Symbol, models.VenueA)
	snapB := e.model.Snapshot(contract.Symbol, models.VenueB)
	fairValue := e.model.FairValueFor(contract)

	// Venue with the smaller absolute deviation from fair value wins;
	// venue A on exact ties.
	diffA := math.Abs(snapA.LastPrice-fairValue) / fairValue * 100
	diffB := math.Abs(snapB.LastPrice-fairValue) / fairValue * 100

	chosen := snapA
	if diffB < diffA {
		chosen = snapB
	}

	rollingAvg := e.volumes.Average(contract.Symbol)
	spreadPct := chosen.SpreadPct()
	result := models.ComparisonResult{
		Symbol:           contract.Symbol,
		Kind:             contract.Kind,
		PriceVenueA:      snapA.LastPrice,
		PriceVenueB:      snapB.LastPrice,
		FairValue:        fairValue,
		PercentageDiff:   (chosen.LastPrice - fairValue) / fairValue * 100,
		ChosenVenue:      chosen.Venue,
		CurrentVolume:    chosen.Volume,
		OpenInterest:     chosen.OpenInterest,
		RollingAvgVolume: rollingAvg,
		LiquidityScore:   liquidity.Score(chosen, rollingAvg),
		BidAskSpreadPct:  spreadPct,
		ImpactCostPct:    liquidity.ImpactCost(chosen, targetQuantity),
		VolumeCompliant:  liquidity.VolumeCompliant(rollingAvg, targetQuantity),
	}

	result.IsRecommended = math.Abs(result.PercentageDiff) < MaxFairValueDiffPct &&
		result.LiquidityScore > MinLiquidityScore &&
		result.VolumeCompliant &&
		result.BidAskSpreadPct < MaxSpreadPct

	return result
}

// FindOptimalContract runs the full comparison and returns the best-ranked
// contract of the requested kind, or ErrNoContract when the underlying has
// none of that kind.
func (e *ComparisonEngine) FindOptimalContract(underlying string, kind models.ContractKind, targetQuantity float64) (models.ComparisonResult, error) {
	for _, result := range e.CompareContracts(underlying, targetQuantity) {
		if result.Kind == kind {
			return result, nil
		}
	}
	return models.ComparisonResult{}, fmt.Errorf("%w %s: %s", ErrNoContract, underlying, kind)
}
