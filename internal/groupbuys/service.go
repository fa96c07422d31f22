package groupbuys

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/outbox"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

// ProductSource supplies the catalog snapshot a new group buy is seeded from.
type ProductSource interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the group-buy operations the API serves.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*GroupBuyView, error)
	Get(ctx context.Context, id uuid.UUID) (*GroupBuyView, error)
	ListActive(ctx context.Context, params pagination.Params) (*GroupBuyListView, error)
	ListMine(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*GroupBuyListView, error)
	Cancel(ctx context.Context, id, requesterID uuid.UUID) error
}

type service struct {
	store      *Store
	products   ProductSource
	maxRetries int
	now        func() time.Time
}

// NewService builds the group-buy service with the required dependencies.
func NewService(store *Store, products ProductSource, maxRetries int) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("group buy store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product source required")
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &service{
		store:      store,
		products:   products,
		maxRetries: maxRetries,
		now:        time.Now,
	}, nil
}

// InitiateInput captures a vendor opening a new group buy.
type InitiateInput struct {
	ProductID      uuid.UUID
	InitiatorID    uuid.UUID
	TargetQuantity int
	Deadline       time.Time
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*GroupBuyView, error) {
	if input.InitiatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.TargetQuantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be at least 1")
	}
	now := s.now()
	if !input.Deadline.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future")
	}

	product, err := s.products.FindProduct(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available")
	}

	gb := &models.GroupBuy{
		ID:              uuid.New(),
		ProductID:       product.ID,
		ProductName:     product.Name,
		SupplierID:      product.SupplierID,
		SupplierName:    product.SupplierName,
		InitiatorID:     input.InitiatorID,
		Status:          enums.GroupBuyStatusOpen,
		TargetQuantity:  input.TargetQuantity,
		CurrentQuantity: 0,
		BaseUnitPrice:   product.BasePrice,
		PriceTiers:      seedTiers(product),
		Deadline:        input.Deadline,
		Version:         1,
	}

	actor := &outbox.ActorRef{UserID: input.InitiatorID, Role: enums.UserRoleVendor.String()}
	events := []outbox.DomainEvent{{
		EventType:     enums.EventGroupBuyCreated,
		AggregateType: enums.AggregateGroupBuy,
		AggregateID:   gb.ID,
		Actor:         actor,
		Data: GroupBuyCreatedEvent{
			GroupBuyID:     gb.ID,
			ProductID:      gb.ProductID,
			SupplierID:     gb.SupplierID,
			InitiatorID:    gb.InitiatorID,
			TargetQuantity: gb.TargetQuantity,
			Deadline:       gb.Deadline,
		},
	}}

	created, err := s.store.Create(ctx, gb, events)
	if err != nil {
		return nil, err
	}
	view := buildView(created, now)
	return &view, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*GroupBuyView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	gb, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := buildView(gb, s.now())
	return &view, nil
}

func (s *service) ListActive(ctx context.Context, params pagination.Params) (*GroupBuyListView, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.store.QueryActive(ctx, params.Cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, err
	}
	return s.buildListView(rows, limit), nil
}

func (s *service) ListMine(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*GroupBuyListView, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.store.QueryByVendor(ctx, vendorID, params.Cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, err
	}
	return s.buildListView(rows, limit), nil
}

func (s *service) Cancel(ctx context.Context, id, requesterID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if requesterID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		gb, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}

		_, err = s.store.Update(ctx, id, gb.Version, func(gb *models.GroupBuy) ([]outbox.DomainEvent, error) {
			if err := ApplyCancel(gb, requesterID, s.now()); err != nil {
				return nil, err
			}
			actor := &outbox.ActorRef{UserID: requesterID, Role: enums.UserRoleVendor.String()}
			return []outbox.DomainEvent{resolvedEvent(enums.EventGroupBuyCancelled, gb, actor)}, nil
		})
		if err == nil {
			return nil
		}
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			continue
		}
		return err
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "group buy is under heavy contention, please retry")
}

func (s *service) buildListView(rows []models.GroupBuy, limit int) *GroupBuyListView {
	now := s.now()
	view := &GroupBuyListView{Items: make([]GroupBuyView, 0, len(rows))}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		view.Items = append(view.Items, buildView(&rows[i], now))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		view.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return view
}

// seedTiers snapshots the product's discount ladder. Products without a
// well-formed ladder fall back to a single base tier.
func seedTiers(product *models.Product) types.PriceTiers {
	tiers := product.VolumeTiers
	if len(tiers) == 0 || tiers[0].MinQuantity != 1 {
		tiers = append(types.PriceTiers{{MinQuantity: 1, UnitPrice: product.BasePrice}}, tiers...)
	}
	return tiers
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	return cursor, nil
}
