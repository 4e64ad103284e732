package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerbridge/dealerdesk-backend/api/responses"
	internalorders "github.com/dealerbridge/dealerdesk-backend/internal/orders"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
)

// Actor identity arrives via gateway-set headers; authentication itself
// happens upstream of this service.
const (
	headerUserID   = "X-User-ID"
	headerDealerID = "X-Dealer-ID"
	headerAdmin    = "X-Admin"
)

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(headerUserID)))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or invalid user identity")
	}
	actor := internalorders.Actor{
		UserID: userID,
		Admin:  strings.EqualFold(r.Header.Get(headerAdmin), "true"),
	}
	if raw := strings.TrimSpace(r.Header.Get(headerDealerID)); raw != "" {
		dealerID, err := uuid.Parse(raw)
		if err != nil {
			return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid dealer identity")
		}
		actor.DealerID = dealerID
	}
	return actor, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	return nil
}

func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in internalorders.CreateInput
		if err := decodeBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// identity always comes from the gateway, never the body
		in.UserID = actor.UserID
		order, err := svc.Create(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func QuoteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in internalorders.CreateInput
		if err := decodeBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in.UserID = actor.UserID
		quote, err := svc.Quote(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type noteBody struct {
	Note string `json:"note"`
}

func ApproveOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, note string) (any, error) {
		return svc.Approve(r.Context(), orderID, actor, note)
	})
}

func RejectOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, note string) (any, error) {
		return svc.Reject(r.Context(), orderID, actor, note)
	})
}

func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, func(r *http.Request, orderID uuid.UUID, actor internalorders.Actor, note string) (any, error) {
		return svc.CancelByUser(r.Context(), orderID, actor, note)
	})
}

type statusBody struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func UpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusBody
		if err := decodeBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), orderID, status, actor, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderAction(logg *logger.Logger, do func(*http.Request, uuid.UUID, internalorders.Actor, string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body noteBody
		if r.ContentLength > 0 {
			if err := decodeBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		result, err := do(r, orderID, actor, body.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
