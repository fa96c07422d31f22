package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

// Product is a supplier catalog entry. VolumeTiers is the discount ladder a
// group buy copies when it is created.
type Product struct {
	ID                   uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID           uuid.UUID        `gorm:"column:supplier_id;type:uuid;not null;index"`
	SupplierName         string           `gorm:"column:supplier_name;not null"`
	Name                 string           `gorm:"column:name;not null"`
	Description          *string          `gorm:"column:description"`
	Category             string           `gorm:"column:category;not null"`
	Unit                 string           `gorm:"column:unit;not null"`
	BasePrice            decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null"`
	VolumeTiers          types.PriceTiers `gorm:"column:volume_tiers;type:jsonb;serializer:json"`
	MinimumOrderQuantity int              `gorm:"column:minimum_order_quantity;not null;default:1"`
	Stock                int              `gorm:"column:stock;not null;default:0"`
	Active               bool             `gorm:"column:active;not null;default:true"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
