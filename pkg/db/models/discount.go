package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/dealerbridge/dealerdesk-backend/pkg/db/types"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// Discount is a rule-based price reduction. Empty ProductIDs or DealerIDs
// means the discount applies to all products or dealers respectively.
type Discount struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                  string             `gorm:"column:code;not null;uniqueIndex"`
	Type                  enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value                 decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	StartDate             time.Time          `gorm:"column:start_date;not null"`
	EndDate               time.Time          `gorm:"column:end_date;not null"`
	ProductIDs            dbtypes.UUIDArray  `gorm:"column:product_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	DealerIDs             dbtypes.UUIDArray  `gorm:"column:dealer_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	MinOrderAmount        *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	MaxDiscountAmount     *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	UsageLimit            *int               `gorm:"column:usage_limit"`
	UsageLimitPerCustomer *int               `gorm:"column:usage_limit_per_customer"`
	IsActive              bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the discount is enabled and inside its window.
func (d Discount) ActiveAt(at time.Time) bool {
	if !d.IsActive {
		return false
	}
	return !at.Before(d.StartDate) && !at.After(d.EndDate)
}
