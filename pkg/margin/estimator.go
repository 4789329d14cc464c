// Package margin approximates exchange margin requirements for a set of
// valued positions. The model is SPAN-like, not the real SPAN algorithm:
// flat rates against a single configured reference price.
package margin

import (
	"github.com/quantedge/thv-engine/pkg/models"
)

const (
	// SpanRate is the base margin as a fraction of reference notional.
	SpanRate = 0.10
	// ExposureRate is the additional exposure margin fraction.
	ExposureRate = 0.05

	// DefaultReferencePrice anchors the notional when no market-derived
	// reference is configured.
	DefaultReferencePrice = 100.0
)

// Estimator computes simplified margin requirements. The underlying
// reference price is a configured scalar rather than a per-underlying
// lookup, a deliberate simplification of the risk model.
type Estimator struct {
	referencePrice float64
}

func NewEstimator(referencePrice float64) *Estimator {
	if referencePrice <= 0 {
		referencePrice = DefaultReferencePrice
	}
	return &Estimator{referencePrice: referencePrice}
}

// Estimate accumulates span and exposure margin across positions. Options
// charge their premium on top of the base span margin; futures only the base.
// Cash positions carry no derivative margin.
func (e *Estimator) Estimate(positions []models.Position) models.MarginResult {
	var result models.MarginResult

	for _, pos := range positions {
		notional := e.referencePrice * pos.Contract.LotSize

		switch pos.Contract.Kind {
		case models.KindOption:
			result.SpanMargin += pos.Market.LastPrice + notional*SpanRate
			result.ExposureMargin += notional * ExposureRate
		case models.KindFuture:
			result.SpanMargin += notional * SpanRate
			result.ExposureMargin += notional * ExposureRate
		}
	}

	result.TotalMargin = result.SpanMargin + result.ExposureMargin
	return result
}
