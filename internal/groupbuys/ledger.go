package groupbuys

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/metrics"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
)

const defaultMaxRetries = 5

// Participation is the write surface for vendor participation changes.
type Participation interface {
	Join(ctx context.Context, input JoinInput) (*models.GroupBuy, error)
	Amend(ctx context.Context, input AmendInput) (*models.GroupBuy, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.GroupBuy, error)
}

// Ledger owns vendor participation writes. Every operation is a bounded
// retry loop around the store's version-CAS update; losing a race never
// loses an update, it just retries against fresh state.
type Ledger struct {
	store      *Store
	maxRetries int
	metrics    *metrics.LedgerMetrics
	now        func() time.Time
}

// NewLedger builds the participation ledger.
func NewLedger(store *Store, maxRetries int, m *metrics.LedgerMetrics) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("group buy store required")
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Ledger{
		store:      store,
		maxRetries: maxRetries,
		metrics:    m,
		now:        time.Now,
	}, nil
}

// JoinInput carries a vendor's initial quantity commitment.
type JoinInput struct {
	GroupBuyID uuid.UUID
	VendorID   uuid.UUID
	VendorName string
	Quantity   int
}

// AmendInput replaces a vendor's committed quantity.
type AmendInput struct {
	GroupBuyID uuid.UUID
	VendorID   uuid.UUID
	Quantity   int
}

// WithdrawInput removes a vendor's commitment entirely.
type WithdrawInput struct {
	GroupBuyID uuid.UUID
	VendorID   uuid.UUID
}

// Join adds the vendor to an open group buy. Reaching the target inside the
// same write confirms the group buy atomically.
func (l *Ledger) Join(ctx context.Context, input JoinInput) (*models.GroupBuy, error) {
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	return l.retryUpdate(ctx, "join", input.GroupBuyID, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		now := l.now()
		if !JoinsOpen(gb, now) {
			return nil, pkgerrors.New(pkgerrors.CodeClosed, "group buy no longer accepts joins")
		}
		if findParticipant(gb, input.VendorID) != nil {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateParticipant, "vendor already joined this group buy")
		}

		gb.Participants = append(gb.Participants, models.GroupBuyParticipant{
			VendorID:   input.VendorID,
			VendorName: input.VendorName,
			Quantity:   input.Quantity,
			JoinedAt:   now,
		})
		gb.CurrentQuantity += input.Quantity

		actor := &outbox.ActorRef{UserID: input.VendorID, Role: enums.UserRoleVendor.String()}
		events := []outbox.DomainEvent{
			participantEvent(enums.EventParticipantJoined, gb, input.VendorID, input.Quantity, actor),
		}
		if MaybeConfirm(gb, now) {
			events = append(events, resolvedEvent(enums.EventGroupBuyConfirmed, gb, actor))
		}
		return events, nil
	})
}

// Amend replaces the vendor's quantity while the group buy is open.
func (l *Ledger) Amend(ctx context.Context, input AmendInput) (*models.GroupBuy, error) {
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	return l.retryUpdate(ctx, "amend", input.GroupBuyID, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		now := l.now()
		if !JoinsOpen(gb, now) {
			return nil, pkgerrors.New(pkgerrors.CodeClosed, "group buy no longer accepts changes")
		}
		participant := findParticipant(gb, input.VendorID)
		if participant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotParticipant, "vendor has not joined this group buy")
		}

		gb.CurrentQuantity += input.Quantity - participant.Quantity
		participant.Quantity = input.Quantity

		actor := &outbox.ActorRef{UserID: input.VendorID, Role: enums.UserRoleVendor.String()}
		events := []outbox.DomainEvent{
			participantEvent(enums.EventParticipantAmended, gb, input.VendorID, input.Quantity, actor),
		}
		if MaybeConfirm(gb, now) {
			events = append(events, resolvedEvent(enums.EventGroupBuyConfirmed, gb, actor))
		}
		return events, nil
	})
}

// Withdraw removes the vendor's commitment while the group buy is open.
// Confirmed group buys are frozen; withdrawal then returns CodeClosed.
func (l *Ledger) Withdraw(ctx context.Context, input WithdrawInput) (*models.GroupBuy, error) {
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}

	return l.retryUpdate(ctx, "withdraw", input.GroupBuyID, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		now := l.now()
		if !JoinsOpen(gb, now) {
			return nil, pkgerrors.New(pkgerrors.CodeClosed, "group buy no longer accepts changes")
		}
		participant := findParticipant(gb, input.VendorID)
		if participant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotParticipant, "vendor has not joined this group buy")
		}

		removed := participant.Quantity
		gb.CurrentQuantity -= removed
		kept := gb.Participants[:0]
		for _, p := range gb.Participants {
			if p.VendorID != input.VendorID {
				kept = append(kept, p)
			}
		}
		gb.Participants = kept

		actor := &outbox.ActorRef{UserID: input.VendorID, Role: enums.UserRoleVendor.String()}
		return []outbox.DomainEvent{
			participantEvent(enums.EventParticipantWithdrew, gb, input.VendorID, removed, actor),
		}, nil
	})
}

func (l *Ledger) retryUpdate(ctx context.Context, op string, id uuid.UUID, mutate Mutator) (*models.GroupBuy, error) {
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		if attempt > 0 {
			l.metrics.IncRetry(op)
		}

		gb, err := l.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, err := l.store.Update(ctx, id, gb.Version, mutate)
		if err == nil {
			return updated, nil
		}
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			l.metrics.IncConflict(op)
			continue
		}
		return nil, err
	}
	l.metrics.IncExhausted(op)
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "group buy is under heavy contention, please retry")
}

func findParticipant(gb *models.GroupBuy, vendorID uuid.UUID) *models.GroupBuyParticipant {
	for i := range gb.Participants {
		if gb.Participants[i].VendorID == vendorID {
			return &gb.Participants[i]
		}
	}
	return nil
}
