package groupbuys

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

func TestStoreGetNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestStoreCreateRejectsMalformedAggregate(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Now().UTC()

	base := func() *models.GroupBuy {
		return &models.GroupBuy{
			ID:             uuid.New(),
			ProductID:      uuid.New(),
			ProductName:    "Basmati Rice 25kg",
			SupplierID:     uuid.New(),
			SupplierName:   "Gupta Wholesale",
			InitiatorID:    uuid.New(),
			Status:         enums.GroupBuyStatusOpen,
			TargetQuantity: 100,
			BaseUnitPrice:  decimal.NewFromInt(25),
			PriceTiers:     scenarioTiers(),
			Deadline:       now.Add(time.Hour),
			Version:        1,
		}
	}

	missingTiers := base()
	missingTiers.PriceTiers = nil
	_, err := store.Create(context.Background(), missingTiers, nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	zeroTarget := base()
	zeroTarget.TargetQuantity = 0
	_, err = store.Create(context.Background(), zeroTarget, nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	mismatch := base()
	mismatch.CurrentQuantity = 7
	_, err = store.Create(context.Background(), mismatch, nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestStoreUpdateVersionMismatch(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())

	_, err := store.Update(context.Background(), gb.ID, 99, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		return nil, nil
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestStoreUpdateStaleVersionAfterWrite(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())

	// first writer wins
	_, err := store.Update(context.Background(), gb.ID, 1, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		gb.Participants = append(gb.Participants, models.GroupBuyParticipant{
			VendorID: uuid.New(), VendorName: "Chaat Corner", Quantity: 10, JoinedAt: now,
		})
		gb.CurrentQuantity += 10
		return nil, nil
	})
	require.NoError(t, err)

	// second writer carrying the old version loses, no state change
	_, err = store.Update(context.Background(), gb.ID, 1, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		gb.Participants = append(gb.Participants, models.GroupBuyParticipant{
			VendorID: uuid.New(), VendorName: "Dosa Express", Quantity: 5, JoinedAt: now,
		})
		gb.CurrentQuantity += 5
		return nil, nil
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	reloaded, err := store.Get(context.Background(), gb.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.CurrentQuantity)
	assert.Equal(t, int64(2), reloaded.Version)
	assert.Len(t, reloaded.Participants, 1)
}

func TestStoreUpdateRollsBackOnMutatorError(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())

	boom := pkgerrors.New(pkgerrors.CodeValidation, "boom")
	_, err := store.Update(context.Background(), gb.ID, 1, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		gb.CurrentQuantity = 999
		return nil, boom
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	reloaded, err := store.Get(context.Background(), gb.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentQuantity)
	assert.Equal(t, int64(1), reloaded.Version)
}

func TestStoreUpdateRejectsInvariantViolation(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())

	// mutator drifts current_quantity away from the participant sum
	_, err := store.Update(context.Background(), gb.ID, 1, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		gb.CurrentQuantity = 50
		return nil, nil
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestStoreQueryActive(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()

	open := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	closed := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	require.NoError(t, gdb.Model(&models.GroupBuy{}).
		Where("id = ?", closed.ID).
		Update("status", enums.GroupBuyStatusCancelled).Error)

	rows, err := store.QueryActive(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, open.ID, rows[0].ID)
}

func TestStoreQueryActiveRejectsBadCursor(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.QueryActive(context.Background(), "not-a-cursor", 10)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestValidateAggregateTierShape(t *testing.T) {
	gb := &models.GroupBuy{
		Status:         enums.GroupBuyStatusOpen,
		TargetQuantity: 10,
		Deadline:       time.Now().Add(time.Hour),
		PriceTiers: types.PriceTiers{
			{MinQuantity: 5, UnitPrice: decimal.NewFromInt(20)},
		},
	}
	err := validateAggregate(gb)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
