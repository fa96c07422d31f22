package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceTier is one rung of a volume discount ladder: the unit price that
// applies once the aggregate committed quantity reaches MinQuantity.
type PriceTier struct {
	MinQuantity int             `json:"minQuantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// PriceTiers is stored denormalized on the group buy as a jsonb column,
// ordered by ascending MinQuantity.
type PriceTiers []PriceTier

// Validate enforces the tier ladder shape: at least one tier, the first at
// MinQuantity 1 (the base price), strictly increasing quantities and
// non-increasing prices.
func (p PriceTiers) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("at least one price tier is required")
	}
	if p[0].MinQuantity != 1 {
		return fmt.Errorf("first price tier must start at quantity 1, got %d", p[0].MinQuantity)
	}
	for i, tier := range p {
		if tier.UnitPrice.IsNegative() {
			return fmt.Errorf("price tier %d has negative unit price", i)
		}
		if i == 0 {
			continue
		}
		if tier.MinQuantity <= p[i-1].MinQuantity {
			return fmt.Errorf("price tier quantities must be strictly increasing (tier %d)", i)
		}
		if tier.UnitPrice.GreaterThan(p[i-1].UnitPrice) {
			return fmt.Errorf("price tier prices must not increase with quantity (tier %d)", i)
		}
	}
	return nil
}

// Base returns the MinQuantity=1 tier price. Callers must Validate first.
func (p PriceTiers) Base() decimal.Decimal {
	if len(p) == 0 {
		return decimal.Zero
	}
	return p[0].UnitPrice
}
