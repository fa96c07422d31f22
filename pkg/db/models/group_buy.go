package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

// GroupBuy is the aggregate root for a pooled purchase. PriceTiers is the
// discount ladder snapshotted from the product at creation time; Version
// backs the compare-and-swap write path.
type GroupBuy struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string                `gorm:"column:product_name;not null"`
	SupplierID      uuid.UUID             `gorm:"column:supplier_id;type:uuid;not null"`
	SupplierName    string                `gorm:"column:supplier_name;not null"`
	InitiatorID     uuid.UUID             `gorm:"column:initiator_id;type:uuid;not null"`
	Status          enums.GroupBuyStatus  `gorm:"column:status;type:text;not null;default:'open'"`
	TargetQuantity  int                   `gorm:"column:target_quantity;not null"`
	CurrentQuantity int                   `gorm:"column:current_quantity;not null;default:0"`
	BaseUnitPrice   decimal.Decimal       `gorm:"column:base_unit_price;type:numeric(12,2);not null"`
	PriceTiers      types.PriceTiers      `gorm:"column:price_tiers;type:jsonb;serializer:json;not null"`
	Deadline        time.Time             `gorm:"column:deadline;not null"`
	Version         int64                 `gorm:"column:version;not null;default:1"`
	ConfirmedAt     *time.Time            `gorm:"column:confirmed_at"`
	ExpiredAt       *time.Time            `gorm:"column:expired_at"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	Participants    []GroupBuyParticipant `gorm:"foreignKey:GroupBuyID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (GroupBuy) TableName() string { return "group_buys" }
