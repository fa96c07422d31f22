package groupbuys

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

// ParticipantView is a participant as rendered to clients.
type ParticipantView struct {
	VendorID   uuid.UUID `json:"vendorId"`
	VendorName string    `json:"vendorName"`
	Quantity   int       `json:"quantity"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// GroupBuyView is the full aggregate plus the computed quote.
type GroupBuyView struct {
	ID              uuid.UUID            `json:"id"`
	ProductID       uuid.UUID            `json:"productId"`
	ProductName     string               `json:"productName"`
	SupplierID      uuid.UUID            `json:"supplierId"`
	SupplierName    string               `json:"supplierName"`
	InitiatorID     uuid.UUID            `json:"initiatorId"`
	Status          enums.GroupBuyStatus `json:"status"`
	TargetQuantity  int                  `json:"targetQuantity"`
	CurrentQuantity int                  `json:"currentQuantity"`
	BaseUnitPrice   decimal.Decimal      `json:"baseUnitPrice"`
	PriceTiers      types.PriceTiers     `json:"priceTiers"`
	Deadline        time.Time            `json:"deadline"`
	Version         int64                `json:"version"`
	Participants    []ParticipantView    `json:"participants"`
	Quote           Quote                `json:"quote"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// GroupBuyListView is a page of group buys with the cursor to the next page.
type GroupBuyListView struct {
	Items      []GroupBuyView `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// NewGroupBuyView renders the aggregate with its quote as of now.
func NewGroupBuyView(gb *models.GroupBuy, now time.Time) GroupBuyView {
	return buildView(gb, now)
}

func buildView(gb *models.GroupBuy, now time.Time) GroupBuyView {
	participants := make([]ParticipantView, 0, len(gb.Participants))
	for _, p := range gb.Participants {
		participants = append(participants, ParticipantView{
			VendorID:   p.VendorID,
			VendorName: p.VendorName,
			Quantity:   p.Quantity,
			JoinedAt:   p.JoinedAt,
		})
	}
	return GroupBuyView{
		ID:              gb.ID,
		ProductID:       gb.ProductID,
		ProductName:     gb.ProductName,
		SupplierID:      gb.SupplierID,
		SupplierName:    gb.SupplierName,
		InitiatorID:     gb.InitiatorID,
		Status:          gb.Status,
		TargetQuantity:  gb.TargetQuantity,
		CurrentQuantity: gb.CurrentQuantity,
		BaseUnitPrice:   gb.BaseUnitPrice,
		PriceTiers:      gb.PriceTiers,
		Deadline:        gb.Deadline,
		Version:         gb.Version,
		Participants:    participants,
		Quote:           BuildQuote(gb, now),
		CreatedAt:       gb.CreatedAt,
	}
}
