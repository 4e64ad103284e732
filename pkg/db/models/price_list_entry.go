package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// PriceListEntry is a time-boxed unit price for a product.
type PriceListEntry struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Currency   enums.Currency  `gorm:"column:currency;type:text;not null"`
	UnitAmount decimal.Decimal `gorm:"column:unit_amount;type:numeric(12,2);not null"`
	ValidFrom  time.Time       `gorm:"column:valid_from;not null"`
	ValidUntil *time.Time      `gorm:"column:valid_until"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ValidAt reports whether the entry's validity window covers the instant.
func (p PriceListEntry) ValidAt(at time.Time) bool {
	if at.Before(p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && at.After(*p.ValidUntil) {
		return false
	}
	return true
}
