package domain

import "github.com/shopspring/decimal"

// InstrumentKind discriminates how an instrument is quoted and scaled.
type InstrumentKind string

const (
	KindEquity InstrumentKind = "EQUITY"
	KindIndex  InstrumentKind = "INDEX"
	KindOption InstrumentKind = "OPTION"
)

// OptionType is the contract direction of an option instrument.
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// OptionSpec holds the fields that only exist for option instruments.
type OptionSpec struct {
	Strike decimal.Decimal `json:"strike" yaml:"strike"`
	Type   OptionType      `json:"type" yaml:"type"`
}

// Instrument is a tradable symbol. Identity is immutable; the current mark
// price lives in the market service, not here.
type Instrument struct {
	Symbol  string         `json:"symbol" yaml:"symbol"`
	Kind    InstrumentKind `json:"kind" yaml:"kind"`
	LotSize int64          `json:"lot_size" yaml:"lot_size"` // contract multiplier, 1 for equities
	Option  *OptionSpec    `json:"option,omitempty" yaml:"option,omitempty"`
}

// IsLotBased reports whether order quantities must align to the lot size.
func (i *Instrument) IsLotBased() bool {
	return i.Kind == KindOption && i.LotSize > 1
}

// EffectiveLotSize returns the lot size, defaulting to 1 when unset.
func (i *Instrument) EffectiveLotSize() int64 {
	if i.LotSize <= 0 {
		return 1
	}
	return i.LotSize
}
