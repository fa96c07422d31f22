package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/streetconnect/streetconnect-backend/api/middleware"
	"github.com/streetconnect/streetconnect-backend/api/responses"
	"github.com/streetconnect/streetconnect-backend/api/validators"
	"github.com/streetconnect/streetconnect-backend/internal/groupbuys"
	pkgerrors "github.com/streetconnect/streetconnect-backend/pkg/errors"
	"github.com/streetconnect/streetconnect-backend/pkg/logger"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
)

type initiateGroupBuyRequest struct {
	ProductID      string    `json:"productId" validate:"required,uuid"`
	TargetQuantity int       `json:"targetQuantity" validate:"required,min=1"`
	Deadline       time.Time `json:"deadline" validate:"required"`
}

type joinGroupBuyRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type amendGroupBuyRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// GroupBuyCreate starts a group buy for a catalog product.
func GroupBuyCreate(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initiatorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiateGroupBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		view, err := svc.Initiate(r.Context(), groupbuys.InitiateInput{
			ProductID:      productID,
			InitiatorID:    initiatorID,
			TargetQuantity: payload.TargetQuantity,
			Deadline:       payload.Deadline,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// GroupBuyList returns the open group buys, newest first.
func GroupBuyList(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ListActive(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// GroupBuyListMine returns group buys the caller initiated or joined.
func GroupBuyListMine(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ListMine(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// GroupBuyDetail returns a single group buy with its quote.
func GroupBuyDetail(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := groupBuyIDParam(r)
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

// GroupBuyJoin commits the caller to the group buy.
func GroupBuyJoin(ledger groupbuys.Participation, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := groupBuyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload joinGroupBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gb, err := ledger.Join(r.Context(), groupbuys.JoinInput{
			GroupBuyID: id,
			VendorID:   vendorID,
			VendorName: middleware.UserNameFromContext(r.Context()),
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, groupbuys.NewGroupBuyView(gb, time.Now().UTC()))
	}
}

// GroupBuyAmend replaces the caller's committed quantity.
func GroupBuyAmend(ledger groupbuys.Participation, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := groupBuyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload amendGroupBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gb, err := ledger.Amend(r.Context(), groupbuys.AmendInput{
			GroupBuyID: id,
			VendorID:   vendorID,
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, groupbuys.NewGroupBuyView(gb, time.Now().UTC()))
	}
}

// GroupBuyWithdraw removes the caller's commitment.
func GroupBuyWithdraw(ledger groupbuys.Participation, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := groupBuyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gb, err := ledger.Withdraw(r.Context(), groupbuys.WithdrawInput{
			GroupBuyID: id,
			VendorID:   vendorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, groupbuys.NewGroupBuyView(gb, time.Now().UTC()))
	}
}

// GroupBuyCancel lets the initiator cancel an open group buy.
func GroupBuyCancel(svc groupbuys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := groupBuyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requesterID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), id, requesterID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func groupBuyIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "groupBuyId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group buy id")
	}
	return id, nil
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}
