package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// Order represents a dealer purchase order and its computed totals.
// TotalAmount always equals SubtotalAmount minus DiscountAmount; the
// lifecycle service is the only writer.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	DealerID       uuid.UUID         `gorm:"column:dealer_id;type:uuid;not null"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency       enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalAmount decimal.Decimal   `gorm:"column:subtotal_amount;type:numeric(12,2);not null"`
	DiscountID     *uuid.UUID        `gorm:"column:discount_id;type:uuid"`
	DiscountAmount decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	OrderDate      time.Time         `gorm:"column:order_date;not null"`
	CustomerNote   *string           `gorm:"column:customer_note"`
	AdminNote      *string           `gorm:"column:admin_note"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
