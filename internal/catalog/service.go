package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

// Service exposes the supplier catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductView, error)
	Update(ctx context.Context, id, supplierID uuid.UUID, input UpdateProductInput) (*ProductView, error)
	Delete(ctx context.Context, id, supplierID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*ProductView, error)
	List(ctx context.Context, category string, params pagination.Params) (*ProductListView, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*ProductListView, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// CreateProductInput captures a supplier publishing a product.
type CreateProductInput struct {
	SupplierID           uuid.UUID
	SupplierName         string
	Name                 string
	Description          *string
	Category             string
	Unit                 string
	BasePrice            decimal.Decimal
	VolumeTiers          types.PriceTiers
	MinimumOrderQuantity int
	Stock                int
}

// UpdateProductInput carries the mutable product fields; nil means unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Unit        *string
	BasePrice   *decimal.Decimal
	VolumeTiers *types.PriceTiers
	Stock       *int
	Active      *bool
}

// ProductView is a catalog entry as rendered to clients.
type ProductView struct {
	ID                   uuid.UUID        `json:"id"`
	SupplierID           uuid.UUID        `json:"supplierId"`
	SupplierName         string           `json:"supplierName"`
	Name                 string           `json:"name"`
	Description          *string          `json:"description,omitempty"`
	Category             string           `json:"category"`
	Unit                 string           `json:"unit"`
	BasePrice            decimal.Decimal  `json:"basePrice"`
	VolumeTiers          types.PriceTiers `json:"volumeTiers,omitempty"`
	MinimumOrderQuantity int              `json:"minimumOrderQuantity"`
	Stock                int              `json:"stock"`
	Active               bool             `json:"active"`
	CreatedAt            time.Time        `json:"createdAt"`
}

// ProductListView is a page of products with the cursor to the next page.
type ProductListView struct {
	Items      []ProductView `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductView, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "supplier identity missing")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Category == "" || input.Unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and unit are required")
	}
	if input.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}
	if err := validateVolumeTiers(input.BasePrice, input.VolumeTiers); err != nil {
		return nil, err
	}
	moq := input.MinimumOrderQuantity
	if moq < 1 {
		moq = 1
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	product := &models.Product{
		ID:                   uuid.New(),
		SupplierID:           input.SupplierID,
		SupplierName:         input.SupplierName,
		Name:                 input.Name,
		Description:          input.Description,
		Category:             input.Category,
		Unit:                 input.Unit,
		BasePrice:            input.BasePrice,
		VolumeTiers:          input.VolumeTiers,
		MinimumOrderQuantity: moq,
		Stock:                input.Stock,
		Active:               true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	view := buildProductView(product)
	return &view, nil
}

func (s *service) Update(ctx context.Context, id, supplierID uuid.UUID, input UpdateProductInput) (*ProductView, error) {
	product, err := s.loadOwned(ctx, id, supplierID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Unit != nil {
		updates["unit"] = *input.Unit
	}
	basePrice := product.BasePrice
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
		}
		basePrice = *input.BasePrice
		updates["base_price"] = *input.BasePrice
	}
	if input.VolumeTiers != nil {
		if err := validateVolumeTiers(basePrice, *input.VolumeTiers); err != nil {
			return nil, err
		}
		updates["volume_tiers"] = *input.VolumeTiers
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		view := buildProductView(product)
		return &view, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	reloaded, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	view := buildProductView(reloaded)
	return &view, nil
}

func (s *service) Delete(ctx context.Context, id, supplierID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, id, supplierID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	view := buildProductView(product)
	return &view, nil
}

func (s *service) List(ctx context.Context, category string, params pagination.Params) (*ProductListView, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, category, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return buildProductListView(rows, limit), nil
}

func (s *service) ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*ProductListView, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "supplier identity missing")
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListBySupplier(ctx, supplierID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier products")
	}
	return buildProductListView(rows, limit), nil
}

func (s *service) loadOwned(ctx context.Context, id, supplierID uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "supplier identity missing")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.SupplierID != supplierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to supplier")
	}
	return product, nil
}

// validateVolumeTiers checks the discount ladder a product publishes. The
// base tier lives on the product itself, so the ladder starts above
// quantity 1 with strictly increasing quantities and prices that never
// exceed the base.
func validateVolumeTiers(basePrice decimal.Decimal, tiers types.PriceTiers) error {
	prev := 1
	prevPrice := basePrice
	for i, tier := range tiers {
		if tier.MinQuantity <= prev {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("volume tier %d quantity must be increasing", i))
		}
		if tier.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("volume tier %d price must not be negative", i))
		}
		if tier.UnitPrice.GreaterThan(prevPrice) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("volume tier %d price must not increase", i))
		}
		prev = tier.MinQuantity
		prevPrice = tier.UnitPrice
	}
	return nil
}

func buildProductView(product *models.Product) ProductView {
	return ProductView{
		ID:                   product.ID,
		SupplierID:           product.SupplierID,
		SupplierName:         product.SupplierName,
		Name:                 product.Name,
		Description:          product.Description,
		Category:             product.Category,
		Unit:                 product.Unit,
		BasePrice:            product.BasePrice,
		VolumeTiers:          product.VolumeTiers,
		MinimumOrderQuantity: product.MinimumOrderQuantity,
		Stock:                product.Stock,
		Active:               product.Active,
		CreatedAt:            product.CreatedAt,
	}
}

func buildProductListView(rows []models.Product, limit int) *ProductListView {
	view := &ProductListView{Items: make([]ProductView, 0, len(rows))}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		view.Items = append(view.Items, buildProductView(&rows[i]))
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

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	return cursor, nil
}
