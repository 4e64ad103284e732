package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// Tracker persists discount usage facts. Limit checks count these rows,
// so Record and Reverse must run inside the same transaction as the
// order write they account for.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTracker(gdb *gorm.DB) (*Tracker, error) {
	if gdb == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage tracker requires a db handle")
	}
	return &Tracker{db: gdb, now: time.Now}, nil
}

// WithTx returns a copy bound to the given transaction.
func (t *Tracker) WithTx(tx *gorm.DB) *Tracker {
	return &Tracker{db: tx, now: t.now}
}

// WithClock overrides the time source. Test hook.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	return &Tracker{db: t.db, now: now}
}

// RecordParams snapshots the order facts at the moment of use.
type RecordParams struct {
	DiscountID     uuid.UUID
	UserID         uuid.UUID
	DealerID       uuid.UUID
	OrderID        uuid.UUID
	DiscountAmount decimal.Decimal
	OrderTotal     decimal.Decimal
	OrderStatus    enums.OrderStatus
}

// Record writes exactly one usage row per order. A second record for the
// same order trips the unique index and surfaces as a conflict.
func (t *Tracker) Record(ctx context.Context, p RecordParams) error {
	usage := models.DiscountUsage{
		ID:             uuid.New(),
		DiscountID:     p.DiscountID,
		UserID:         p.UserID,
		DealerID:       p.DealerID,
		OrderID:        p.OrderID,
		DiscountAmount: p.DiscountAmount,
		OrderTotal:     p.OrderTotal,
		OrderStatus:    p.OrderStatus,
		UsedAt:         t.now(),
	}
	err := t.db.WithContext(ctx).Create(&usage).Error
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "discount usage already recorded for order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record discount usage")
	}
	return nil
}

// Reverse deletes the usage row for an order. Deleting a row that does
// not exist is a no-op, so callers may retry freely.
func (t *Tracker) Reverse(ctx context.Context, orderID uuid.UUID) error {
	err := t.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.DiscountUsage{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reverse discount usage")
	}
	return nil
}

func (t *Tracker) CountGlobal(ctx context.Context, discountID uuid.UUID) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.DiscountUsage{}).
		Where("discount_id = ?", discountID).
		Count(&n).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count discount usage")
	}
	return n, nil
}

func (t *Tracker) CountUser(ctx context.Context, discountID, userID uuid.UUID) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.DiscountUsage{}).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		Count(&n).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count user discount usage")
	}
	return n, nil
}

// DealerUsed reports whether any order under the dealer already consumed
// the discount.
func (t *Tracker) DealerUsed(ctx context.Context, discountID, dealerID uuid.UUID) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.DiscountUsage{}).
		Where("discount_id = ? AND dealer_id = ?", discountID, dealerID).
		Count(&n).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check dealer discount usage")
	}
	return n > 0, nil
}

// FindByOrder returns the usage row for an order, if any.
func (t *Tracker) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.DiscountUsage, error) {
	var usage models.DiscountUsage
	err := t.db.WithContext(ctx).First(&usage, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount usage not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find discount usage")
	}
	return &usage, nil
}
