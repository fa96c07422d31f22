package groupbuys

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

type stubProducts struct {
	product *models.Product
	err     error
}

func (s *stubProducts) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func testProduct() *models.Product {
	return &models.Product{
		ID:           uuid.New(),
		SupplierID:   uuid.New(),
		SupplierName: "Gupta Wholesale",
		Name:         "Basmati Rice 25kg",
		Category:     "grains",
		Unit:         "bag",
		BasePrice:    decimal.NewFromInt(25),
		VolumeTiers: types.PriceTiers{
			{MinQuantity: 50, UnitPrice: decimal.NewFromInt(22)},
		},
		Active: true,
	}
}

func newTestService(t *testing.T, store *Store, products ProductSource, now time.Time) Service {
	t.Helper()

	svc, err := NewService(store, products, 5)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return now }
	return svc
}

func TestServiceInitiateSeedsTiersFromProduct(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	product := testProduct()
	svc := newTestService(t, store, &stubProducts{product: product}, now)

	initiator := uuid.New()
	view, err := svc.Initiate(context.Background(), InitiateInput{
		ProductID:      product.ID,
		InitiatorID:    initiator,
		TargetQuantity: 100,
		Deadline:       now.Add(48 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.GroupBuyStatusOpen, view.Status)
	assert.Equal(t, initiator, view.InitiatorID)
	assert.Equal(t, "Basmati Rice 25kg", view.ProductName)
	assert.Equal(t, "Gupta Wholesale", view.SupplierName)
	assert.Equal(t, int64(1), view.Version)

	// base tier prepended from the product's base price
	require.Len(t, view.PriceTiers, 2)
	assert.Equal(t, 1, view.PriceTiers[0].MinQuantity)
	assert.True(t, decimal.NewFromInt(25).Equal(view.PriceTiers[0].UnitPrice))
	assert.Equal(t, 50, view.PriceTiers[1].MinQuantity)

	assert.Equal(t, int64(1), countOutboxEvents(t, gdb, view.ID, enums.EventGroupBuyCreated))
}

func TestServiceInitiateProductWithoutLadder(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Now().UTC()
	product := testProduct()
	product.VolumeTiers = nil
	svc := newTestService(t, store, &stubProducts{product: product}, now)

	view, err := svc.Initiate(context.Background(), InitiateInput{
		ProductID:      product.ID,
		InitiatorID:    uuid.New(),
		TargetQuantity: 10,
		Deadline:       now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, view.PriceTiers, 1)
	assert.Equal(t, 1, view.PriceTiers[0].MinQuantity)
	assert.True(t, product.BasePrice.Equal(view.PriceTiers[0].UnitPrice))
}

func TestServiceInitiateValidation(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Now().UTC()
	product := testProduct()
	svc := newTestService(t, store, &stubProducts{product: product}, now)

	_, err := svc.Initiate(context.Background(), InitiateInput{
		ProductID: product.ID, InitiatorID: uuid.New(), TargetQuantity: 0, Deadline: now.Add(time.Hour),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Initiate(context.Background(), InitiateInput{
		ProductID: product.ID, InitiatorID: uuid.New(), TargetQuantity: 10, Deadline: now,
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	inactive := testProduct()
	inactive.Active = false
	svcInactive := newTestService(t, store, &stubProducts{product: inactive}, now)
	_, err = svcInactive.Initiate(context.Background(), InitiateInput{
		ProductID: inactive.ID, InitiatorID: uuid.New(), TargetQuantity: 10, Deadline: now.Add(time.Hour),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	svcMissing := newTestService(t, store, &stubProducts{err: gorm.ErrRecordNotFound}, now)
	_, err = svcMissing.Initiate(context.Background(), InitiateInput{
		ProductID: uuid.New(), InitiatorID: uuid.New(), TargetQuantity: 10, Deadline: now.Add(time.Hour),
	})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceGetIncludesQuote(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	svc := newTestService(t, store, &stubProducts{}, now)
	ledger := newTestLedger(t, store, now)

	_, err := ledger.Join(context.Background(), JoinInput{
		GroupBuyID: gb.ID, VendorID: uuid.New(), VendorName: "Chaat Corner", Quantity: 60,
	})
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), gb.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, view.CurrentQuantity)
	assert.True(t, decimal.NewFromInt(22).Equal(view.Quote.UnitPrice))
	assert.True(t, decimal.NewFromInt(60).Equal(view.Quote.ProgressPercent))
	require.Len(t, view.Participants, 1)
}

func TestServiceCancel(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	gb := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	svc := newTestService(t, store, &stubProducts{}, now)

	err := svc.Cancel(context.Background(), gb.ID, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Cancel(context.Background(), gb.ID, gb.InitiatorID))

	reloaded, err := store.Get(context.Background(), gb.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.GroupBuyStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.CancelledAt)
	assert.Equal(t, int64(1), countOutboxEvents(t, gdb, gb.ID, enums.EventGroupBuyCancelled))

	// terminal states absorb
	err = svc.Cancel(context.Background(), gb.ID, gb.InitiatorID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeClosed))
}

func TestServiceListActivePagination(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	svc := newTestService(t, store, &stubProducts{}, now)

	oldest := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	middle := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	newest := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	setCreatedAt(t, gdb, oldest.ID, now.Add(-3*time.Hour))
	setCreatedAt(t, gdb, middle.ID, now.Add(-2*time.Hour))
	setCreatedAt(t, gdb, newest.ID, now.Add(-time.Hour))

	page, err := svc.ListActive(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newest.ID, page.Items[0].ID)
	assert.Equal(t, middle.ID, page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	second, err := svc.ListActive(context.Background(), pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, oldest.ID, second.Items[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestServiceListMine(t *testing.T) {
	store, gdb := newTestStore(t)
	now := time.Now().UTC()
	svc := newTestService(t, store, &stubProducts{}, now)
	ledger := newTestLedger(t, store, now)

	vendor := uuid.New()

	initiated := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	require.NoError(t, gdb.Model(&models.GroupBuy{}).
		Where("id = ?", initiated.ID).
		Update("initiator_id", vendor).Error)

	joined := seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers())
	_, err := ledger.Join(context.Background(), JoinInput{
		GroupBuyID: joined.ID, VendorID: vendor, VendorName: "Chaat Corner", Quantity: 5,
	})
	require.NoError(t, err)

	seedGroupBuy(t, gdb, 100, now.Add(time.Hour), scenarioTiers()) // unrelated

	page, err := svc.ListMine(context.Background(), vendor, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	ids := []uuid.UUID{page.Items[0].ID, page.Items[1].ID}
	assert.Contains(t, ids, initiated.ID)
	assert.Contains(t, ids, joined.ID)
}

func setCreatedAt(t *testing.T, gdb *gorm.DB, id uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, gdb.Model(&models.GroupBuy{}).
		Where("id = ?", id).
		Update("created_at", at).Error)
}
