package groupbuys

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// TierFor returns the tier with the greatest MinQuantity not exceeding
// quantity, falling back to the base tier. Tiers must be sorted ascending.
func TierFor(tiers types.PriceTiers, quantity int) types.PriceTier {
	if len(tiers) == 0 {
		return types.PriceTier{}
	}
	current := tiers[0]
	for _, tier := range tiers[1:] {
		if tier.MinQuantity > quantity {
			break
		}
		current = tier
	}
	return current
}

// NextTier returns the first tier above quantity, or nil when the top tier
// is already unlocked.
func NextTier(tiers types.PriceTiers, quantity int) *types.PriceTier {
	for i := range tiers {
		if tiers[i].MinQuantity > quantity {
			next := tiers[i]
			return &next
		}
	}
	return nil
}

// SavingsPercent computes (base-unit)/base*100 rounded to one decimal place.
// A zero base yields zero.
func SavingsPercent(base, unit decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return base.Sub(unit).Div(base).Mul(hundred).Round(1)
}

// Quote is the read-time pricing view. Computed on every read, never stored.
type Quote struct {
	UnitPrice        decimal.Decimal  `json:"unitPrice"`
	BaseUnitPrice    decimal.Decimal  `json:"baseUnitPrice"`
	SavingsPercent   decimal.Decimal  `json:"savingsPercent"`
	ProgressPercent  decimal.Decimal  `json:"progressPercent"`
	NextTier         *types.PriceTier `json:"nextTier,omitempty"`
	SecondsRemaining int64            `json:"secondsRemaining"`
}

// BuildQuote derives the pricing view for the group buy at the given instant.
func BuildQuote(gb *models.GroupBuy, now time.Time) Quote {
	tier := TierFor(gb.PriceTiers, gb.CurrentQuantity)
	base := gb.PriceTiers.Base()

	progress := decimal.Zero
	if gb.TargetQuantity > 0 {
		progress = decimal.NewFromInt(int64(gb.CurrentQuantity)).
			Div(decimal.NewFromInt(int64(gb.TargetQuantity))).
			Mul(hundred).Round(1)
	}

	remaining := int64(0)
	if now.Before(gb.Deadline) {
		remaining = int64(gb.Deadline.Sub(now).Seconds())
	}

	return Quote{
		UnitPrice:        tier.UnitPrice,
		BaseUnitPrice:    base,
		SavingsPercent:   SavingsPercent(base, tier.UnitPrice),
		ProgressPercent:  progress,
		NextTier:         NextTier(gb.PriceTiers, gb.CurrentQuantity),
		SecondsRemaining: remaining,
	}
}
