package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry whose stock quantity is the shared mutable
// resource contended by concurrent orders.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string           `gorm:"column:sku;not null;uniqueIndex"`
	Name        string           `gorm:"column:name;not null"`
	StockQty    int              `gorm:"column:stock_qty;not null;default:0"`
	MinOrderQty int              `gorm:"column:min_order_qty;not null;default:1"`
	MaxOrderQty int              `gorm:"column:max_order_qty;not null;default:0"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	Prices      []PriceListEntry `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
