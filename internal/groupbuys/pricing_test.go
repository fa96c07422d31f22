package groupbuys

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

func TestTierFor(t *testing.T) {
	tiers := types.PriceTiers{
		{MinQuantity: 1, UnitPrice: decimal.NewFromInt(25)},
		{MinQuantity: 50, UnitPrice: decimal.NewFromInt(22)},
		{MinQuantity: 100, UnitPrice: decimal.NewFromInt(20)},
	}

	assert.True(t, decimal.NewFromInt(25).Equal(TierFor(tiers, 0).UnitPrice))
	assert.True(t, decimal.NewFromInt(25).Equal(TierFor(tiers, 1).UnitPrice))
	assert.True(t, decimal.NewFromInt(25).Equal(TierFor(tiers, 49).UnitPrice))
	assert.True(t, decimal.NewFromInt(22).Equal(TierFor(tiers, 50).UnitPrice))
	assert.True(t, decimal.NewFromInt(22).Equal(TierFor(tiers, 99).UnitPrice))
	assert.True(t, decimal.NewFromInt(20).Equal(TierFor(tiers, 100).UnitPrice))
	assert.True(t, decimal.NewFromInt(20).Equal(TierFor(tiers, 5000).UnitPrice))
}

func TestNextTier(t *testing.T) {
	tiers := scenarioTiers()

	next := NextTier(tiers, 10)
	require.NotNil(t, next)
	assert.Equal(t, 50, next.MinQuantity)

	assert.Nil(t, NextTier(tiers, 50))
	assert.Nil(t, NextTier(tiers, 200))
}

func TestSavingsPercent(t *testing.T) {
	assert.True(t, decimal.NewFromInt(12).Equal(
		SavingsPercent(decimal.NewFromInt(25), decimal.NewFromInt(22))))
	assert.True(t, decimal.Zero.Equal(
		SavingsPercent(decimal.NewFromInt(25), decimal.NewFromInt(25))))
	assert.True(t, decimal.Zero.Equal(
		SavingsPercent(decimal.Zero, decimal.NewFromInt(5))))

	// rounds to one decimal place
	got := SavingsPercent(decimal.NewFromInt(30), decimal.NewFromInt(28))
	assert.True(t, decimal.RequireFromString("6.7").Equal(got), got.String())
}

func TestBuildQuote(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gb := &models.GroupBuy{
		Status:          "open",
		TargetQuantity:  100,
		CurrentQuantity: 60,
		PriceTiers:      scenarioTiers(),
		Deadline:        now.Add(90 * time.Second),
	}

	quote := BuildQuote(gb, now)
	assert.True(t, decimal.NewFromInt(22).Equal(quote.UnitPrice))
	assert.True(t, decimal.NewFromInt(25).Equal(quote.BaseUnitPrice))
	assert.True(t, decimal.NewFromInt(12).Equal(quote.SavingsPercent))
	assert.True(t, decimal.NewFromInt(60).Equal(quote.ProgressPercent))
	assert.Nil(t, quote.NextTier)
	assert.Equal(t, int64(90), quote.SecondsRemaining)
}

func TestBuildQuotePastDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gb := &models.GroupBuy{
		TargetQuantity:  100,
		CurrentQuantity: 10,
		PriceTiers:      scenarioTiers(),
		Deadline:        now.Add(-time.Minute),
	}

	quote := BuildQuote(gb, now)
	assert.Equal(t, int64(0), quote.SecondsRemaining)
	assert.True(t, decimal.NewFromInt(25).Equal(quote.UnitPrice))
	require.NotNil(t, quote.NextTier)
	assert.Equal(t, 50, quote.NextTier.MinQuantity)
}
