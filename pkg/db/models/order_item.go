package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// OrderItem captures the price snapshot of each line within an order.
// The unit price is resolved from the price list at creation time and
// never changes afterward.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	PriceListEntryID uuid.UUID       `gorm:"column:price_list_entry_id;type:uuid;not null"`
	Currency         enums.Currency  `gorm:"column:currency;type:text;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	TotalPrice       decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
