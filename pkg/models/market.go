package models

import (
	"time"
)

// Venue identifies one of the two trading venues quotes are collected from.
type Venue string

const (
	VenueA Venue = "VENUE_A"
	VenueB Venue = "VENUE_B"
)

// MarketSnapshot is one venue's current quote for a symbol. A snapshot is
// immutable once recorded; the next snapshot for the same (symbol, venue)
// key supersedes it.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	Venue        Venue     `json:"venue"`
	LastPrice    float64   `json:"last_price"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	Volume       uint64    `json:"volume"`
	OpenInterest uint64    `json:"open_interest"`
	ObservedAt   time.Time `json:"observed_at"`
}

// SpreadPct returns the bid-ask spread as a percentage of the last price,
// or 0 when there is no price to normalize against.
func (s MarketSnapshot) SpreadPct() float64 {
	if s.LastPrice == 0 {
		return 0
	}
	return (s.Ask - s.Bid) / s.LastPrice * 100
}
