// Package optionmath holds the stateless numerical kernel for option
// valuation: the standard normal distribution, the Black-Scholes price and
// its four core Greeks.
//
// All functions take time to expiry in years. Volatility must be positive
// whenever time to expiry is positive; that is a caller precondition, not a
// runtime check. Rho is deliberately omitted: the engine runs on a single
// flat risk-free rate, so rate sensitivity carries no information here.
package optionmath

import (
	"math"

	"github.com/quantedge/thv-engine/pkg/models"
)

// Greeks are the sensitivities of an option price under Black-Scholes.
// Theta is per calendar day, Vega per one-percentage-point change in
// volatility.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func d1(spot, strike, t, rate, sigma float64) float64 {
	return (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

// BlackScholes prices a European option. At or past expiry (t <= 0) it
// returns the intrinsic value, which also keeps d1 well defined.
func BlackScholes(spot, strike, t, rate, sigma float64, isCall bool) float64 {
	if t <= 0 {
		if isCall {
			return math.Max(0, spot-strike)
		}
		return math.Max(0, strike-spot)
	}

	dOne := d1(spot, strike, t, rate, sigma)
	dTwo := dOne - sigma*math.Sqrt(t)

	if isCall {
		return spot*NormCDF(dOne) - strike*math.Exp(-rate*t)*NormCDF(dTwo)
	}
	return strike*math.Exp(-rate*t)*NormCDF(-dTwo) - spot*NormCDF(-dOne)
}

// Delta is the option price sensitivity to spot. In [0,1] for calls and
// [-1,0] for puts; 0 for an expired option.
func Delta(spot, strike, t, rate, sigma float64, isCall bool) float64 {
	if t <= 0 {
		return 0
	}
	dOne := d1(spot, strike, t, rate, sigma)
	if isCall {
		return NormCDF(dOne)
	}
	return NormCDF(dOne) - 1
}

// Gamma is delta's sensitivity to spot; identical for calls and puts.
func Gamma(spot, strike, t, rate, sigma float64) float64 {
	if t <= 0 {
		return 0
	}
	dOne := d1(spot, strike, t, rate, sigma)
	return NormPDF(dOne) / (spot * sigma * math.Sqrt(t))
}

// Theta is the option price decay per calendar day (annualized theta / 365).
func Theta(spot, strike, t, rate, sigma float64, isCall bool) float64 {
	if t <= 0 {
		return 0
	}
	dOne := d1(spot, strike, t, rate, sigma)
	dTwo := dOne - sigma*math.Sqrt(t)

	term1 := -(spot * NormPDF(dOne) * sigma) / (2 * math.Sqrt(t))
	term2 := rate * strike * math.Exp(-rate*t)

	if isCall {
		return (term1 - term2*NormCDF(dTwo)) / 365
	}
	return (term1 + term2*NormCDF(-dTwo)) / 365
}

// Vega is the option price sensitivity per one-percentage-point change in
// volatility (raw vega / 100); identical for calls and puts.
func Vega(spot, strike, t, rate, sigma float64) float64 {
	if t <= 0 {
		return 0
	}
	dOne := d1(spot, strike, t, rate, sigma)
	return spot * NormPDF(dOne) * math.Sqrt(t) / 100
}

// Compute bundles the four Greeks for one option. Greeks of an expired
// option are all zero by policy.
func Compute(spot, strike, t, rate, sigma float64, right models.OptionRight) Greeks {
	isCall := right == models.RightCall
	return Greeks{
		Delta: Delta(spot, strike, t, rate, sigma, isCall),
		Gamma: Gamma(spot, strike, t, rate, sigma),
		Theta: Theta(spot, strike, t, rate, sigma, isCall),
		Vega:  Vega(spot, strike, t, rate, sigma),
	}
}
