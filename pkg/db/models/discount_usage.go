package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// DiscountUsage is the append-style fact that a discount was applied to an
// order. At most one row exists per order; deleting the row reverses the
// usage for limit accounting.
type DiscountUsage struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DiscountID     uuid.UUID         `gorm:"column:discount_id;type:uuid;not null;index"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	DealerID       uuid.UUID         `gorm:"column:dealer_id;type:uuid;not null;index"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DiscountAmount decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	OrderTotal     decimal.Decimal   `gorm:"column:order_total;type:numeric(12,2);not null"`
	OrderStatus    enums.OrderStatus `gorm:"column:order_status;type:order_status;not null"`
	UsedAt         time.Time         `gorm:"column:used_at;not null"`
}
