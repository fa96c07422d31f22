package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/streetconnect/streetconnect-backend/api/middleware"
	"github.com/streetconnect/streetconnect-backend/api/responses"
	"github.com/streetconnect/streetconnect-backend/api/validators"
	"github.com/streetconnect/streetconnect-backend/internal/catalog"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/logger"
	"github.com/streetconnect/streetconnect-backend/pkg/types"
)

const maxProductNameLen = 200

type volumeTierRequest struct {
	MinQuantity int    `json:"minQuantity" validate:"required,min=2"`
	UnitPrice   string `json:"unitPrice" validate:"required"`
}

type createProductRequest struct {
	Name                 string              `json:"name" validate:"required"`
	Description          *string             `json:"description,omitempty"`
	Category             string              `json:"category" validate:"required"`
	Unit                 string              `json:"unit" validate:"required"`
	BasePrice            string              `json:"basePrice" validate:"required"`
	VolumeTiers          []volumeTierRequest `json:"volumeTiers,omitempty"`
	MinimumOrderQuantity int                 `json:"minimumOrderQuantity" validate:"omitempty,min=1"`
	Stock                int                 `json:"stock" validate:"omitempty,min=0"`
}

type updateProductRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Category    *string             `json:"category,omitempty"`
	Unit        *string             `json:"unit,omitempty"`
	BasePrice   *string             `json:"basePrice,omitempty"`
	VolumeTiers []volumeTierRequest `json:"volumeTiers,omitempty"`
	Stock       *int                `json:"stock,omitempty" validate:"omitempty,min=0"`
	Active      *bool               `json:"active,omitempty"`
}

// ProductCreate publishes a product on behalf of the supplier.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		basePrice, err := parsePrice(payload.BasePrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tiers, err := parseVolumeTiers(payload.VolumeTiers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), catalog.CreateProductInput{
			SupplierID:           supplierID,
			SupplierName:         middleware.UserNameFromContext(r.Context()),
			Name:                 validators.SanitizeString(payload.Name, maxProductNameLen),
			Description:          payload.Description,
			Category:             strings.TrimSpace(payload.Category),
			Unit:                 strings.TrimSpace(payload.Unit),
			BasePrice:            basePrice,
			VolumeTiers:          tiers,
			MinimumOrderQuantity: payload.MinimumOrderQuantity,
			Stock:                payload.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ProductUpdate applies partial changes to a supplier's product.
func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Description: payload.Description,
			Category:    payload.Category,
			Unit:        payload.Unit,
			Stock:       payload.Stock,
			Active:      payload.Active,
		}
		if payload.Name != nil {
			trimmed := validators.SanitizeString(*payload.Name, maxProductNameLen)
			input.Name = &trimmed
		}
		if payload.BasePrice != nil {
			price, err := parsePrice(*payload.BasePrice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.BasePrice = &price
		}
		if payload.VolumeTiers != nil {
			tiers, err := parseVolumeTiers(payload.VolumeTiers)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.VolumeTiers = &tiers
		}

		view, err := svc.Update(r.Context(), id, supplierID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ProductDelete removes a supplier's product from the catalog.
func ProductDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, supplierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProductDetail returns a single catalog entry.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ProductList returns active catalog entries, optionally filtered by category.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// ProductListMine returns the caller's own catalog, active or not.
func ProductListMine(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ListBySupplier(r.Context(), supplierID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

func productIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "productId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	return price, nil
}

func parseVolumeTiers(tiers []volumeTierRequest) (types.PriceTiers, error) {
	result := make(types.PriceTiers, 0, len(tiers))
	for _, tier := range tiers {
		price, err := parsePrice(tier.UnitPrice)
		if err != nil {
			return nil, err
		}
		result = append(result, types.PriceTier{
			MinQuantity: tier.MinQuantity,
			UnitPrice:   price,
		})
	}
	return result, nil
}
