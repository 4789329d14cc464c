// Package liquidity scores how tradable an instrument currently is and what
// executing a target quantity would cost.
package liquidity

import (
	"math"

	"github.com/quantedge/thv-engine/pkg/models"
)

const (
	// VolumeThreshold is the fraction of the rolling average daily volume a
	// target quantity may not exceed.
	VolumeThreshold = 0.05

	// MaxImpactCostPct is the sentinel impact cost for an instrument with no
	// traded volume today: execution cost cannot be estimated, so it is
	// treated as maximally expensive rather than undefined.
	MaxImpactCostPct = 100.0

	// openInterestNorm caps the open-interest contribution at 1M contracts.
	openInterestNorm = 1_000_000
)

// Score rates tradability in roughly [0,1+] from the current volume relative
// to its rolling average, open interest, and bid-ask spread. Without volume
// history the score is 0: liquidity cannot be assessed.
func Score(snap models.MarketSnapshot, rollingAvgVolume float64) float64 {
	if rollingAvgVolume == 0 {
		return 0
	}

	volumeRatio := float64(snap.Volume) / rollingAvgVolume
	oiFactor := math.Min(1, float64(snap.OpenInterest)/openInterestNorm)
	spreadFactor := 1 / (1 + snap.SpreadPct())

	return 0.4*volumeRatio + 0.3*oiFactor + 0.3*spreadFactor
}

// ImpactCost estimates the execution cost of a target quantity as a
// percentage: the quantity's share of today's volume scaled by the spread.
// With zero traded volume it returns MaxImpactCostPct.
func ImpactCost(snap models.MarketSnapshot, quantity float64) float64 {
	if snap.Volume == 0 {
		return MaxImpactCostPct
	}
	return quantity / float64(snap.Volume) * snap.SpreadPct()
}

// VolumeCompliant reports whether a target quantity stays within
// VolumeThreshold of the rolling average daily volume.
func VolumeCompliant(rollingAvgVolume, quantity float64) bool {
	return quantity <= rollingAvgVolume*VolumeThreshold
}
