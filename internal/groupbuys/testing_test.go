package groupbuys

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/streetconnect/streetconnect-backend/pkg/db"
	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

func setupGroupBuyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	groupBuys := `
CREATE TABLE IF NOT EXISTS group_buys (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  supplier_name TEXT NOT NULL,
  initiator_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  target_quantity INTEGER NOT NULL,
  current_quantity INTEGER NOT NULL DEFAULT 0,
  base_unit_price NUMERIC NOT NULL,
  price_tiers TEXT NOT NULL,
  deadline DATETIME NOT NULL,
  version INTEGER NOT NULL DEFAULT 1,
  confirmed_at DATETIME,
  expired_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	participants := `
CREATE TABLE IF NOT EXISTS group_buy_participants (
  id TEXT PRIMARY KEY,
  group_buy_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  vendor_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  joined_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (group_buy_id, vendor_id)
);`
	outboxEvents := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  supplier_name TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  unit TEXT NOT NULL,
  base_price NUMERIC NOT NULL,
  volume_tiers TEXT,
  minimum_order_quantity INTEGER NOT NULL DEFAULT 1,
  stock INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(groupBuys).Error)
	require.NoError(t, db.Exec(participants).Error)
	require.NoError(t, db.Exec(outboxEvents).Error)
	require.NoError(t, db.Exec(products).Error)

	// shared-cache sqlite persists across tests in the package
	require.NoError(t, db.Exec("DELETE FROM group_buys").Error)
	require.NoError(t, db.Exec("DELETE FROM group_buy_participants").Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_events").Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	return db
}

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	gdb := setupGroupBuyTestDB(t)
	store, err := NewStore(
		NewRepository(gdb),
		dbpkg.NewWithConn(gdb),
		outbox.NewService(outbox.NewRepository(gdb), nil),
	)
	require.NoError(t, err)
	return store, gdb
}

func newTestLedger(t *testing.T, store *Store, now time.Time) *Ledger {
	t.Helper()

	ledger, err := NewLedger(store, 5, nil)
	require.NoError(t, err)
	ledger.now = func() time.Time { return now }
	return ledger
}

func scenarioTiers() types.PriceTiers {
	return types.PriceTiers{
		{MinQuantity: 1, UnitPrice: decimal.NewFromInt(25)},
		{MinQuantity: 50, UnitPrice: decimal.NewFromInt(22)},
	}
}

func seedGroupBuy(t *testing.T, gdb *gorm.DB, target int, deadline time.Time, tiers types.PriceTiers) *models.GroupBuy {
	t.Helper()

	gb := &models.GroupBuy{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		ProductName:    "Basmati Rice 25kg",
		SupplierID:     uuid.New(),
		SupplierName:   "Gupta Wholesale",
		InitiatorID:    uuid.New(),
		Status:         enums.GroupBuyStatusOpen,
		TargetQuantity: target,
		BaseUnitPrice:  tiers.Base(),
		PriceTiers:     tiers,
		Deadline:       deadline,
		Version:        1,
	}
	require.NoError(t, gdb.Create(gb).Error)
	return gb
}

func countOutboxEvents(t *testing.T, gdb *gorm.DB, aggregateID uuid.UUID, eventType enums.OutboxEventType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, gdb.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, eventType).
		Count(&count).Error)
	return count
}

func participantRows(t *testing.T, gdb *gorm.DB, groupBuyID uuid.UUID) []models.GroupBuyParticipant {
	t.Helper()

	var rows []models.GroupBuyParticipant
	require.NoError(t, gdb.Where("group_buy_id = ?", groupBuyID).Order("joined_at ASC").Find(&rows).Error)
	return rows
}
