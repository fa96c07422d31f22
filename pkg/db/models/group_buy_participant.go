package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupBuyParticipant is a vendor's committed quantity inside one group buy.
// (group_buy_id, vendor_id) is unique: one pledge per vendor per group buy.
type GroupBuyParticipant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupBuyID uuid.UUID `gorm:"column:group_buy_id;type:uuid;not null;uniqueIndex:uq_group_buy_vendor"`
	VendorID   uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:uq_group_buy_vendor"`
	VendorName string    `gorm:"column:vendor_name;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	JoinedAt   time.Time `gorm:"column:joined_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (GroupBuyParticipant) TableName() string { return "group_buy_participants" }
