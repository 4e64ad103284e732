package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerbridge/dealerdesk-backend/api/responses"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
)

func dealerFromRequest(r *http.Request) (uuid.UUID, error) {
	dealerID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(headerDealerID)))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or invalid dealer identity")
	}
	return dealerID, nil
}

func ListNotifications(repo *notifications.Repo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly := strings.EqualFold(r.URL.Query().Get("unread"), "true")
		rows, err := repo.ListByDealer(r.Context(), dealerID, unreadOnly, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func MarkNotificationRead(repo *notifications.Repo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID, err := dealerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "notificationId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}
		if err := repo.MarkRead(r.Context(), id, dealerID, time.Now().UTC()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
