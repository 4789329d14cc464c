package models

// ComparisonResult is one row of a venue/contract comparison for an
// underlying. Rows are produced fresh on every comparison call and never
// cached by the engine.
type ComparisonResult struct {
	Symbol           string       `json:"symbol"`
	Kind             ContractKind `json:"kind"`
	PriceVenueA      float64      `json:"price_venue_a"`
	PriceVenueB      float64      `json:"price_venue_b"`
	FairValue        float64      `json:"fair_value"`
	PercentageDiff   float64      `json:"percentage_diff"` // signed: positive = rich, negative = cheap
	ChosenVenue      Venue        `json:"chosen_venue"`
	CurrentVolume    uint64       `json:"current_volume"`
	OpenInterest     uint64       `json:"open_interest"`
	RollingAvgVolume float64      `json:"rolling_avg_volume"`
	LiquidityScore   float64      `json:"liquidity_score"`
	BidAskSpreadPct  float64      `json:"bid_ask_spread_pct"`
	ImpactCostPct    float64      `json:"impact_cost_pct"`
	VolumeCompliant  bool         `json:"volume_compliant"`
	IsRecommended    bool         `json:"is_recommended"`
}
