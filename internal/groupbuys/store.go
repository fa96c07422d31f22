package groupbuys

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitAll(ctx context.Context, tx *gorm.DB, events []outbox.DomainEvent) error
}

// Mutator applies a state change to the loaded aggregate and returns the
// domain events to emit alongside it.
type Mutator func(gb *models.GroupBuy) ([]outbox.DomainEvent, error)

// Store owns the transactional read/write path for group buys. Every write
// goes through the version CAS; there is no other way to mutate a group buy.
type Store struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
}

// NewStore builds the group-buy store with the required dependencies.
func NewStore(repo Repository, tx txRunner, outbox outboxEmitter) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("group buy repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Store{repo: repo, tx: tx, outbox: outbox}, nil
}

// Create persists a new group buy and emits the provided events in the same
// transaction.
func (s *Store) Create(ctx context.Context, gb *models.GroupBuy, events []outbox.DomainEvent) (*models.GroupBuy, error) {
	if err := validateAggregate(gb); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, gb); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create group buy")
		}
		return s.outbox.EmitAll(ctx, tx, events)
	})
	if err != nil {
		return nil, err
	}
	return gb, nil
}

// Get loads the aggregate with its participants.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error) {
	gb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group buy")
	}
	return gb, nil
}

// Update runs the mutator against a fresh copy of the aggregate inside one
// transaction. The write only lands when the version still matches
// expectedVersion; anything else surfaces CodeConflict so the caller can
// retry against fresh state. Participant rows are reconciled by diff and the
// mutator's events commit atomically with the change.
func (s *Store) Update(ctx context.Context, id uuid.UUID, expectedVersion int64, mutate Mutator) (*models.GroupBuy, error) {
	var result *models.GroupBuy
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		gb, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group buy")
		}
		if gb.Version != expectedVersion {
			return pkgerrors.New(pkgerrors.CodeConflict, "group buy was modified concurrently")
		}

		before := make(map[uuid.UUID]int, len(gb.Participants))
		for _, p := range gb.Participants {
			before[p.VendorID] = p.Quantity
		}

		events, err := mutate(gb)
		if err != nil {
			return err
		}
		if err := validateAggregate(gb); err != nil {
			return err
		}

		ok, err := repo.UpdateVersioned(ctx, gb, expectedVersion)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update group buy")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "group buy was modified concurrently")
		}
		gb.Version = expectedVersion + 1

		if err := reconcileParticipants(ctx, repo, gb, before); err != nil {
			return err
		}

		if len(events) > 0 {
			if err := s.outbox.EmitAll(ctx, tx, events); err != nil {
				return err
			}
		}

		result = gb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryActive returns open group buys, newest first.
func (s *Store) QueryActive(ctx context.Context, cursor string, limit int) ([]models.GroupBuy, error) {
	parsed, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListActive(ctx, parsed, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active group buys")
	}
	return rows, nil
}

// ListOpenPastDeadline returns open group buys whose deadline has passed,
// oldest deadline first. The sweeper resolves them through Update.
func (s *Store) ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.GroupBuy, error) {
	rows, err := s.repo.ListOpenPastDeadline(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue group buys")
	}
	return rows, nil
}

// QueryByVendor returns group buys the vendor initiated or joined.
func (s *Store) QueryByVendor(ctx context.Context, vendorID uuid.UUID, cursor string, limit int) ([]models.GroupBuy, error) {
	parsed, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByVendor(ctx, vendorID, parsed, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor group buys")
	}
	return rows, nil
}

func reconcileParticipants(ctx context.Context, repo Repository, gb *models.GroupBuy, before map[uuid.UUID]int) error {
	seen := make(map[uuid.UUID]bool, len(gb.Participants))
	for i := range gb.Participants {
		p := &gb.Participants[i]
		p.GroupBuyID = gb.ID
		seen[p.VendorID] = true

		prev, existed := before[p.VendorID]
		switch {
		case !existed:
			if err := repo.InsertParticipant(ctx, p); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert participant")
			}
		case prev != p.Quantity:
			if err := repo.UpdateParticipantQuantity(ctx, gb.ID, p.VendorID, p.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update participant")
			}
		}
	}
	for vendorID := range before {
		if seen[vendorID] {
			continue
		}
		if err := repo.DeleteParticipant(ctx, gb.ID, vendorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete participant")
		}
	}
	return nil
}

func validateAggregate(gb *models.GroupBuy) error {
	if gb == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group buy required")
	}
	if !gb.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", gb.Status))
	}
	if gb.TargetQuantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be at least 1")
	}
	if err := gb.PriceTiers.Validate(); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if gb.Deadline.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "deadline is required")
	}

	sum := 0
	vendors := make(map[uuid.UUID]bool, len(gb.Participants))
	for _, p := range gb.Participants {
		if p.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "participant quantity must be at least 1")
		}
		if vendors[p.VendorID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate participant vendor")
		}
		vendors[p.VendorID] = true
		sum += p.Quantity
	}
	if sum != gb.CurrentQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "current quantity does not match participant total")
	}
	return nil
}
