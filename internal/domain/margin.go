package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarginAccount is the desk's single margin record. AvailableMargin is free
// capital; UsedMargin is capital reserved against open, unmatched exposure.
// A short sale credits available margin and carries negative used margin,
// matching the observed source behavior (there is no insufficient-funds
// rejection either; see DESIGN.md).
type MarginAccount struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	Capital         decimal.Decimal `json:"capital"` // funding at account creation
	AvailableMargin decimal.Decimal `json:"available_margin"`
	UsedMargin      decimal.Decimal `json:"used_margin"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewMarginAccount creates an account funded with the given capital.
func NewMarginAccount(capital decimal.Decimal) *MarginAccount {
	return &MarginAccount{
		Capital:         capital,
		AvailableMargin: capital,
		UsedMargin:      decimal.Zero,
	}
}

// Apply moves margin between available and used. A negative delta reserves
// margin (buy exposure), a positive delta releases it (sell credit or a
// matched close).
func (m *MarginAccount) Apply(delta decimal.Decimal, at time.Time) {
	m.AvailableMargin = m.AvailableMargin.Add(delta)
	m.UsedMargin = m.UsedMargin.Sub(delta)
	m.UpdatedAt = at
	m.VerifyInvariant()
}

// VerifyInvariant checks margin conservation: every delta moves capital
// between the two buckets, so their sum must stay equal to the funding.
func (m *MarginAccount) VerifyInvariant() {
	if !m.AvailableMargin.Add(m.UsedMargin).Equal(m.Capital) {
		panic(fmt.Sprintf("MARGIN_INVARIANT_BROKEN: available=%s used=%s capital=%s",
			m.AvailableMargin, m.UsedMargin, m.Capital))
	}
}

// Snapshot returns a copy for external readers.
func (m *MarginAccount) Snapshot() MarginAccount {
	return *m
}
