package groupbuys

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
)

// GroupBuyCreatedEvent announces a freshly opened group buy.
type GroupBuyCreatedEvent struct {
	GroupBuyID     uuid.UUID `json:"group_buy_id"`
	ProductID      uuid.UUID `json:"product_id"`
	SupplierID     uuid.UUID `json:"supplier_id"`
	InitiatorID    uuid.UUID `json:"initiator_id"`
	TargetQuantity int       `json:"target_quantity"`
	Deadline       time.Time `json:"deadline"`
}

// ParticipantChangedEvent covers join, amend and withdraw.
type ParticipantChangedEvent struct {
	GroupBuyID      uuid.UUID `json:"group_buy_id"`
	VendorID        uuid.UUID `json:"vendor_id"`
	Quantity        int       `json:"quantity"`
	CurrentQuantity int       `json:"current_quantity"`
}

// GroupBuyResolvedEvent announces a terminal transition.
type GroupBuyResolvedEvent struct {
	GroupBuyID      uuid.UUID            `json:"group_buy_id"`
	Status          enums.GroupBuyStatus `json:"status"`
	CurrentQuantity int                  `json:"current_quantity"`
	TargetQuantity  int                  `json:"target_quantity"`
	UnitPrice       decimal.Decimal      `json:"unit_price"`
}

func participantEvent(eventType enums.OutboxEventType, gb *models.GroupBuy, vendorID uuid.UUID, quantity int, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   gb.ID,
		Actor:         actor,
		Data: ParticipantChangedEvent{
			GroupBuyID:      gb.ID,
			VendorID:        vendorID,
			Quantity:        quantity,
			CurrentQuantity: gb.CurrentQuantity,
		},
	}
}

func resolvedEvent(eventType enums.OutboxEventType, gb *models.GroupBuy, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   gb.ID,
		Actor:         actor,
		Data: GroupBuyResolvedEvent{
			GroupBuyID:      gb.ID,
			Status:          gb.Status,
			CurrentQuantity: gb.CurrentQuantity,
			TargetQuantity:  gb.TargetQuantity,
			UnitPrice:       TierFor(gb.PriceTiers, gb.CurrentQuantity).UnitPrice,
		},
	}
}
