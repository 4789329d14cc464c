package models

// PositionSide is the direction of an open position.
type PositionSide string

const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// Position is a held contract with the market snapshot it was last marked
// against. Input to margin estimation only.
type Position struct {
	Contract ContractDefinition `json:"contract"`
	Quantity float64            `json:"quantity"`
	Side     PositionSide       `json:"side"`
	Market   MarketSnapshot     `json:"market"`
}

// MarginResult is the aggregate margin requirement for a set of positions.
type MarginResult struct {
	SpanMargin     float64 `json:"span_margin"`
	ExposureMargin float64 `json:"exposure_margin"`
	TotalMargin    float64 `json:"total_margin"`
}
