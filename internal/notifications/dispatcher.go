package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
)

// Dispatcher records order events for later delivery to dealer users.
// Delivery is best effort: a failed write is logged and swallowed so it
// never fails the order operation that triggered it.
type Dispatcher struct {
	repo *Repo
	log  *logger.Logger
}

func NewDispatcher(repo *Repo, log *logger.Logger) (*Dispatcher, error) {
	if repo == nil || log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification dispatcher requires repo and logger")
	}
	return &Dispatcher{repo: repo, log: log}, nil
}

// OrderEvent describes the order fact being announced.
type OrderEvent struct {
	Event    enums.NotificationEvent
	OrderID  uuid.UUID
	DealerID uuid.UUID
	Detail   string
}

var eventTitles = map[enums.NotificationEvent]string{
	enums.NotificationEventOrderCreated:       "Order created",
	enums.NotificationEventOrderApproved:      "Order approved",
	enums.NotificationEventOrderRejected:      "Order rejected",
	enums.NotificationEventOrderCancelled:     "Order cancelled",
	enums.NotificationEventOrderStatusChanged: "Order status changed",
	enums.NotificationEventOrderAutoCancelled: "Order auto-cancelled",
}

// Notify persists the event. Errors are logged, never returned.
func (d *Dispatcher) Notify(ctx context.Context, ev OrderEvent) {
	title, ok := eventTitles[ev.Event]
	if !ok {
		d.log.Warn(ctx, fmt.Sprintf("dropping notification with unknown event %q", ev.Event))
		return
	}
	message := ev.Detail
	if message == "" {
		message = fmt.Sprintf("order %s: %s", ev.OrderID, ev.Event)
	}
	n := &models.Notification{
		DealerID: ev.DealerID,
		OrderID:  ev.OrderID,
		Event:    ev.Event,
		Title:    title,
		Message:  message,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		d.log.Error(ctx, "persisting notification failed", err)
	}
}
