package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/internal/discounts"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	"github.com/dealerbridge/dealerdesk-backend/internal/pricing"
	"github.com/dealerbridge/dealerdesk-backend/internal/stock"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
)

// Service owns the order lifecycle. All status mutations go through it.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.Order, error)
	Quote(ctx context.Context, in CreateInput) (*QuoteResult, error)
	Approve(ctx context.Context, orderID uuid.UUID, actor Actor, note string) (*models.Order, error)
	Reject(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error)
	CancelByUser(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor Actor, note string) (*models.Order, error)
	AutoCancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, ev notifications.OrderEvent)
}

// Params wires the service's collaborators.
type Params struct {
	TxRunner  txRunner
	Repo      *Repo
	Stock     *stock.Ledger
	Pricing   *pricing.Resolver
	Discounts *discounts.Validator
	Tracker   *discounts.Tracker
	UsageLock discounts.UsageLock
	Notifier  notifier
	Log       *logger.Logger

	// Now defaults to time.Now; tests override it.
	Now func() time.Time
}

type service struct {
	tx        txRunner
	repo      *Repo
	stock     *stock.Ledger
	pricing   *pricing.Resolver
	discounts *discounts.Validator
	tracker   *discounts.Tracker
	usageLock discounts.UsageLock
	notifier  notifier
	log       *logger.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(p Params) (Service, error) {
	switch {
	case p.TxRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a tx runner")
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a repo")
	case p.Stock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a stock ledger")
	case p.Pricing == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a price resolver")
	case p.Discounts == nil || p.Tracker == nil || p.UsageLock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires the discount pipeline")
	case p.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a notifier")
	case p.Log == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service requires a logger")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		tx:        p.TxRunner,
		repo:      p.Repo,
		stock:     p.Stock,
		pricing:   p.Pricing,
		discounts: p.Discounts,
		tracker:   p.Tracker,
		usageLock: p.UsageLock,
		notifier:  p.Notifier,
		log:       p.Log,
		validate:  validator.New(),
		now:       p.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order request")
	}
	user, err := s.repo.FindUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.DealerID != in.DealerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user does not belong to the requested dealer")
	}

	// The lock spans validation through commit so a concurrent order
	// cannot pass the usage-limit checks on counts this order is about
	// to change.
	var release func()
	if in.DiscountID != nil {
		release, err = s.usageLock.Acquire(ctx, *in.DiscountID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		lines, subtotal, currency, err := s.resolveLines(ctx, tx, in.Items, now)
		if err != nil {
			return err
		}

		discountAmount := decimal.Zero
		var appliedDiscount *models.Discount
		if in.DiscountID != nil {
			d, rejection, err := s.discounts.WithTx(tx).Validate(ctx, discounts.ValidateInput{
				DiscountID:   *in.DiscountID,
				UserID:       in.UserID,
				UserDealerID: user.DealerID,
				DealerID:     in.DealerID,
				Subtotal:     subtotal,
				ProductIDs:   productIDs(in.Items),
			})
			if err != nil {
				return err
			}
			if rejection != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, rejection.Message).
					WithDetails(map[string]any{"reason": string(rejection.Reason)})
			}
			discountAmount, err = discounts.ComputeAmount(d, subtotal)
			if err != nil {
				return err
			}
			appliedDiscount = d
		}

		if err := s.stock.Reserve(ctx, tx, reservationItems(in.Items)); err != nil {
			return err
		}

		order = &models.Order{
			ID:             uuid.New(),
			UserID:         in.UserID,
			DealerID:       in.DealerID,
			Status:         enums.OrderStatusPending,
			Currency:       currency,
			SubtotalAmount: subtotal,
			DiscountAmount: discountAmount,
			TotalAmount:    subtotal.Sub(discountAmount),
			OrderDate:      now,
		}
		if in.CustomerNote != "" {
			note := in.CustomerNote
			order.CustomerNote = &note
		}
		for _, item := range lines {
			item.OrderID = order.ID
			order.Items = append(order.Items, item)
		}
		if appliedDiscount != nil && discountAmount.IsPositive() {
			order.DiscountID = &appliedDiscount.ID
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		if order.DiscountID != nil {
			return s.tracker.WithTx(tx).Record(ctx, discounts.RecordParams{
				DiscountID:     *order.DiscountID,
				UserID:         order.UserID,
				DealerID:       order.DealerID,
				OrderID:        order.ID,
				DiscountAmount: order.DiscountAmount,
				OrderTotal:     order.TotalAmount,
				OrderStatus:    order.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderCreated,
		OrderID:  order.ID,
		DealerID: order.DealerID,
		Detail:   fmt.Sprintf("order %s created with total %s %s", order.ID, order.TotalAmount, order.Currency),
	})
	return order, nil
}

func (s *service) Quote(ctx context.Context, in CreateInput) (*QuoteResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quote request")
	}
	user, err := s.repo.FindUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user.DealerID != in.DealerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user does not belong to the requested dealer")
	}

	now := s.now()
	lines, subtotal, _, err := s.resolveLines(ctx, nil, in.Items, now)
	if err != nil {
		return nil, err
	}
	availability, err := s.stock.CheckAvailability(ctx, s.repo.db, reservationItems(in.Items))
	if err != nil {
		return nil, err
	}
	availByProduct := make(map[uuid.UUID]stock.Availability, len(availability))
	for _, a := range availability {
		availByProduct[a.ProductID] = a
	}

	result := &QuoteResult{
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
		Total:          subtotal,
	}
	for _, item := range lines {
		avail := availByProduct[item.ProductID]
		result.Lines = append(result.Lines, QuoteLine{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Currency:       item.Currency,
			TotalPrice:     item.TotalPrice,
			StockAvailable: avail.Available,
			StockOK:        avail.Sufficient,
		})
	}

	// Discount problems downgrade to advisory text; the quote as a
	// whole still succeeds.
	if in.DiscountID != nil {
		result.DiscountID = in.DiscountID
		d, rejection, err := s.discounts.Validate(ctx, discounts.ValidateInput{
			DiscountID:   *in.DiscountID,
			UserID:       in.UserID,
			UserDealerID: user.DealerID,
			DealerID:     in.DealerID,
			Subtotal:     subtotal,
			ProductIDs:   productIDs(in.Items),
		})
		switch {
		case err != nil:
			return nil, err
		case rejection != nil:
			result.DiscountAdvisory = rejection.Message
		default:
			amount, err := discounts.ComputeAmount(d, subtotal)
			if err != nil {
				result.DiscountAdvisory = pkgerrors.As(err).Message()
			} else {
				result.DiscountAmount = amount
				result.Total = subtotal.Sub(amount)
			}
		}
	}
	return result, nil
}

func (s *service) Approve(ctx context.Context, orderID uuid.UUID, actor Actor, note string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			// customer acceptance of an edited order goes through
			// UpdateStatus, not the admin approval path
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot approve order in status %s", order.Status))
		}
		order.Status = enums.OrderStatusApproved
		order.AdminNote = appendNote(order.AdminNote, actorLabel(actor), s.now(), note)
		return repo.Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderApproved,
		OrderID:  order.ID,
		DealerID: order.DealerID,
	})
	return order, nil
}

func (s *service) Reject(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot reject order in status %s", order.Status))
		}
		if err := s.stock.Release(ctx, tx, itemsFromOrder(order)); err != nil {
			return err
		}
		order.Status = enums.OrderStatusRejected
		order.AdminNote = appendNote(order.AdminNote, actorLabel(actor), s.now(), reason)
		return repo.Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderRejected,
		OrderID:  order.ID,
		DealerID: order.DealerID,
		Detail:   reason,
	})
	return order, nil
}

func (s *service) CancelByUser(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}
		return s.cancelCore(ctx, tx, order, actorLabel(actor), reason)
	})
	if err != nil {
		return nil, err
	}

	s.reverseUsage(ctx, order)
	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderCancelled,
		OrderID:  order.ID,
		DealerID: order.DealerID,
		Detail:   reason,
	})
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, to enums.OrderStatus, actor Actor, note string) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := AssertTransition(order.Status, to); err != nil {
			return err
		}
		order.Status = to
		order.AdminNote = appendNote(order.AdminNote, actorLabel(actor), s.now(), note)
		return repo.Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderStatusChanged,
		OrderID:  order.ID,
		DealerID: order.DealerID,
		Detail:   fmt.Sprintf("order moved to %s", to),
	})
	return order, nil
}

// AutoCancel expires an order stuck in edited-pending-approval. It runs
// the same cancellation core as a user cancellation and stamps a system
// note with the elapsed wait.
func (s *service) AutoCancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusEditedPendingApproval {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot auto-cancel order in status %s", order.Status))
		}
		waited := s.now().Sub(order.UpdatedAt).Round(time.Minute)
		reason := fmt.Sprintf("auto-cancelled after waiting %s for customer approval", waited)
		return s.cancelCore(ctx, tx, order, "system", reason)
	})
	if err != nil {
		return nil, err
	}

	s.reverseUsage(ctx, order)
	s.notifier.Notify(ctx, notifications.OrderEvent{
		Event:    enums.NotificationEventOrderAutoCancelled,
		OrderID:  order.ID,
		DealerID: order.DealerID,
	})
	return order, nil
}

// cancelCore releases stock and moves the order to cancelled. Usage
// reversal happens outside the transaction; see reverseUsage.
func (s *service) cancelCore(ctx context.Context, tx *gorm.DB, order *models.Order, actor, reason string) error {
	if err := s.stock.Release(ctx, tx, itemsFromOrder(order)); err != nil {
		return err
	}
	order.Status = enums.OrderStatusCancelled
	order.AdminNote = appendNote(order.AdminNote, actor, s.now(), reason)
	return s.repo.WithTx(tx).Save(ctx, order)
}

// reverseUsage undoes the discount usage fact after a cancellation has
// committed. A failure here leaves the counters stale until a retry,
// which is preferred over blocking the cancellation itself.
func (s *service) reverseUsage(ctx context.Context, order *models.Order) {
	if order.DiscountID == nil {
		return
	}
	if err := s.tracker.Reverse(ctx, order.ID); err != nil {
		s.log.Error(s.log.WithOrderID(ctx, order.ID.String()), "reversing discount usage failed", err)
	}
}

// resolveLines prices every requested item and enforces per-product
// order quantity bounds. When tx is nil the base connection is used.
func (s *service) resolveLines(ctx context.Context, tx *gorm.DB, items []ItemInput, now time.Time) ([]models.OrderItem, decimal.Decimal, enums.Currency, error) {
	resolver := s.pricing.WithTx(tx).WithClock(func() time.Time { return now })

	subtotal := decimal.Zero
	currency := enums.CurrencyUSD
	lines := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		resolved, err := resolver.Resolve(ctx, item.PriceListEntryID)
		if err != nil {
			return nil, zeroDec, currency, err
		}
		if resolved.Product.ID != item.ProductID {
			return nil, zeroDec, currency, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("price entry %s does not belong to product %s", item.PriceListEntryID, item.ProductID))
		}
		if !resolved.Product.IsActive {
			return nil, zeroDec, currency, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not available for ordering", resolved.Product.SKU))
		}
		if item.Quantity < resolved.Product.MinOrderQty {
			return nil, zeroDec, currency, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s requires a minimum quantity of %d", resolved.Product.SKU, resolved.Product.MinOrderQty))
		}
		if resolved.Product.MaxOrderQty > 0 && item.Quantity > resolved.Product.MaxOrderQty {
			return nil, zeroDec, currency, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s allows at most %d units per order", resolved.Product.SKU, resolved.Product.MaxOrderQty))
		}
		if i == 0 {
			currency = resolved.Entry.Currency
		} else if resolved.Entry.Currency != currency {
			return nil, zeroDec, currency, pkgerrors.New(pkgerrors.CodeValidation,
				"all order items must share one currency")
		}

		total := resolved.Entry.UnitAmount.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		lines = append(lines, models.OrderItem{
			ID:               uuid.New(),
			ProductID:        item.ProductID,
			PriceListEntryID: item.PriceListEntryID,
			Currency:         resolved.Entry.Currency,
			UnitPrice:        resolved.Entry.UnitAmount,
			Quantity:         item.Quantity,
			TotalPrice:       total,
		})
		subtotal = subtotal.Add(total)
	}
	return lines, subtotal, currency, nil
}

var zeroDec = decimal.Zero

func reservationItems(items []ItemInput) []stock.Item {
	out := make([]stock.Item, 0, len(items))
	for _, item := range items {
		out = append(out, stock.Item{ProductID: item.ProductID, Qty: item.Quantity})
	}
	return out
}

func itemsFromOrder(order *models.Order) []stock.Item {
	out := make([]stock.Item, 0, len(order.Items))
	for _, item := range order.Items {
		out = append(out, stock.Item{ProductID: item.ProductID, Qty: item.Quantity})
	}
	return out
}

func productIDs(items []ItemInput) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ProductID)
	}
	return out
}

func actorLabel(actor Actor) string {
	role := "user"
	if actor.Admin {
		role = "admin"
	}
	return fmt.Sprintf("%s %s", role, actor.UserID)
}

func appendNote(existing *string, actor string, at time.Time, text string) *string {
	if text == "" {
		return existing
	}
	entry := fmt.Sprintf("[%s %s] %s", at.UTC().Format(time.RFC3339), actor, text)
	if existing == nil || *existing == "" {
		return &entry
	}
	combined := *existing + "\n" + entry
	return &combined
}
