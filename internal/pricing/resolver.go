package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// ResolvedPrice is the snapshot captured on an order item.
type ResolvedPrice struct {
	Entry   models.PriceListEntry
	Product models.Product
}

// Resolver loads price list entries and verifies their validity window.
type Resolver struct {
	db  *gorm.DB
	now func() time.Time
}

// NewResolver builds a price resolver backed by the provided DB.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db, now: time.Now}
}

// WithTx returns a resolver bound to the provided transaction.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	if tx == nil {
		return r
	}
	return &Resolver{db: tx, now: r.now}
}

// WithClock overrides the clock, used by tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	return &Resolver{db: r.db, now: now}
}

// Resolve loads the price entry and its product, failing when the entry is
// missing or its validity window does not cover the current instant.
func (r *Resolver) Resolve(ctx context.Context, priceEntryID uuid.UUID) (*ResolvedPrice, error) {
	if priceEntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price entry id required")
	}

	var entry models.PriceListEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", priceEntryID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("price entry %s not found", priceEntryID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price entry")
	}

	if !entry.ValidAt(r.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("price entry %s is outside its validity window", priceEntryID))
	}

	var product models.Product
	err = r.db.WithContext(ctx).First(&product, "id = ?", entry.ProductID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", entry.ProductID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	return &ResolvedPrice{Entry: entry, Product: product}, nil
}
