package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// Item is a (product, quantity) pair handled by the ledger.
type Item struct {
	ProductID uuid.UUID
	Qty       int
}

// InsufficientStockDetail is attached to reservation failures.
type InsufficientStockDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
}

// Ledger applies atomic reserve/release mutations to product stock.
// Every mutation is a single conditional UPDATE so concurrent calls on the
// same product serialize on the row instead of racing a read-modify-write.
type Ledger struct {
	clamp bool
}

// NewLedger builds a stock ledger. When clamp is true the legacy behavior is
// restored: a reservation that exceeds the available stock floors the value
// at zero instead of failing.
func NewLedger(clamp bool) *Ledger {
	return &Ledger{clamp: clamp}
}

// Reserve decrements stock for every item. The caller must run it inside a
// transaction; the first failing line aborts, which rolls back lines already
// decremented in the same transaction.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, items []Item) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
		if l.clamp {
			if err := l.reserveClamped(ctx, tx, item); err != nil {
				return err
			}
			continue
		}
		if err := l.reserveStrict(ctx, tx, item); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) reserveStrict(ctx context.Context, tx *gorm.DB, item Item) error {
	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = stock_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_qty >= ?
	`, item.Qty, item.ProductID, item.Qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		available, err := l.currentStock(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("insufficient stock for product %s", item.ProductID)).
			WithDetails(InsufficientStockDetail{
				ProductID:    item.ProductID,
				RequestedQty: item.Qty,
				AvailableQty: available,
			})
	}
	return nil
}

func (l *Ledger) reserveClamped(ctx context.Context, tx *gorm.DB, item Item) error {
	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = CASE WHEN stock_qty >= ? THEN stock_qty - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, item.Qty, item.Qty, item.ProductID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
	}
	return nil
}

// Release adds back the quantity unconditionally. Used when a rejected or
// cancelled order returns previously reserved inventory.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, items []Item) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock_qty = stock_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, item.Qty, item.ProductID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", item.ProductID))
		}
	}
	return nil
}

// Availability reports per-product sufficiency without mutating anything.
type Availability struct {
	ProductID  uuid.UUID
	Requested  int
	Available  int
	Sufficient bool
}

// CheckAvailability returns the sufficiency flags quotes report per line.
func (l *Ledger) CheckAvailability(ctx context.Context, db *gorm.DB, items []Item) ([]Availability, error) {
	results := make([]Availability, 0, len(items))
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return nil, err
		}
		available, err := l.currentStock(ctx, db, item.ProductID)
		if err != nil {
			return nil, err
		}
		results = append(results, Availability{
			ProductID:  item.ProductID,
			Requested:  item.Qty,
			Available:  available,
			Sufficient: available >= item.Qty,
		})
	}
	return results, nil
}

func (l *Ledger) currentStock(ctx context.Context, db *gorm.DB, productID uuid.UUID) (int, error) {
	var product models.Product
	err := db.WithContext(ctx).Select("stock_qty").First(&product, "id = ?", productID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return product.StockQty, nil
}

func validateItem(item Item) error {
	if item.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if item.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
