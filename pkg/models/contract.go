package models

import (
	"time"
)

// ContractKind classifies an instrument.
type ContractKind string

const (
	KindCash   ContractKind = "CASH"
	KindFuture ContractKind = "FUTURE"
	KindOption ContractKind = "OPTION"
)

// OptionRight distinguishes calls from puts.
type OptionRight string

const (
	RightCall OptionRight = "CALL"
	RightPut  OptionRight = "PUT"
)

// ContractDefinition describes a tradable instrument. Definitions are loaded
// from the contract catalog and read-only afterwards; one definition exists
// per symbol. Strike and Right are meaningful for options only, Expiry for
// futures and options.
type ContractDefinition struct {
	Symbol     string       `json:"symbol"`
	Underlying string       `json:"underlying"`
	Kind       ContractKind `json:"kind"`
	Strike     float64      `json:"strike,omitempty"`
	Expiry     time.Time    `json:"expiry,omitempty"`
	Right      OptionRight  `json:"right,omitempty"`
	LotSize    float64      `json:"lot_size"`
	TickSize   float64      `json:"tick_size"`
}
