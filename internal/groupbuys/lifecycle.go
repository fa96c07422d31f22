package groupbuys

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
)

// ErrNoTransition signals a mutator left the aggregate untouched; the
// surrounding transaction rolls back without writing.
var ErrNoTransition = errors.New("no lifecycle transition applies")

// JoinsOpen reports whether the group buy still accepts participation
// changes. The deadline instant itself counts as closed.
func JoinsOpen(gb *models.GroupBuy, now time.Time) bool {
	return gb.Status == enums.GroupBuyStatusOpen && now.Before(gb.Deadline)
}

// MaybeConfirm flips an open group buy that met its target to confirmed.
// Returns true when the transition happened.
func MaybeConfirm(gb *models.GroupBuy, now time.Time) bool {
	if gb.Status != enums.GroupBuyStatusOpen {
		return false
	}
	if gb.CurrentQuantity < gb.TargetQuantity {
		return false
	}
	at := now
	gb.Status = enums.GroupBuyStatusConfirmed
	gb.ConfirmedAt = &at
	return true
}

// ResolveDeadline applies the sweep transition for a group buy whose deadline
// has passed. Target met at the deadline confirms; otherwise the group buy
// expires. Already-terminal records no-op. Returns the status applied, or ""
// when nothing changed.
func ResolveDeadline(gb *models.GroupBuy, now time.Time) enums.GroupBuyStatus {
	if gb.Status != enums.GroupBuyStatusOpen {
		return ""
	}
	if now.Before(gb.Deadline) {
		return ""
	}
	if MaybeConfirm(gb, now) {
		return enums.GroupBuyStatusConfirmed
	}
	at := now
	gb.Status = enums.GroupBuyStatusExpired
	gb.ExpiredAt = &at
	return enums.GroupBuyStatusExpired
}

// DeadlineSweepMutator builds the store mutator the sweeper runs against
// each overdue group buy. Races with joins are settled by the version CAS.
func DeadlineSweepMutator(now time.Time) Mutator {
	return func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
		switch ResolveDeadline(gb, now) {
		case enums.GroupBuyStatusConfirmed:
			return []outbox.DomainEvent{resolvedEvent(enums.EventGroupBuyConfirmed, gb, nil)}, nil
		case enums.GroupBuyStatusExpired:
			return []outbox.DomainEvent{resolvedEvent(enums.EventGroupBuyExpired, gb, nil)}, nil
		default:
			return nil, ErrNoTransition
		}
	}
}

// ApplyCancel performs the initiator-only open→cancelled transition.
func ApplyCancel(gb *models.GroupBuy, requesterID uuid.UUID, now time.Time) error {
	if gb.InitiatorID != requesterID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the initiator can cancel a group buy")
	}
	if gb.Status != enums.GroupBuyStatusOpen {
		return pkgerrors.New(pkgerrors.CodeClosed, "group buy is no longer open")
	}
	at := now
	gb.Status = enums.GroupBuyStatusCancelled
	gb.CancelledAt = &at
	return nil
}
