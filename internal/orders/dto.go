package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
)

// ItemInput is one requested order line. The price entry id pins the
// exact price the caller saw; the resolver re-validates it server side.
type ItemInput struct {
	ProductID        uuid.UUID `json:"product_id" validate:"required"`
	PriceListEntryID uuid.UUID `json:"price_list_entry_id" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,gt=0"`
}

// CreateInput drives both Create and Quote.
type CreateInput struct {
	UserID       uuid.UUID   `json:"user_id" validate:"required"`
	DealerID     uuid.UUID   `json:"dealer_id" validate:"required"`
	DiscountID   *uuid.UUID  `json:"discount_id"`
	CustomerNote string      `json:"customer_note" validate:"max=2000"`
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// Actor identifies who is mutating an order.
type Actor struct {
	UserID   uuid.UUID
	DealerID uuid.UUID
	Admin    bool
}

// QuoteLine reports the resolved pricing and stock outlook for one item.
type QuoteLine struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Currency       enums.Currency  `json:"currency"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	StockAvailable int             `json:"stock_available"`
	StockOK        bool            `json:"stock_ok"`
}

// QuoteResult is the soft-fail quote: when the requested discount cannot
// apply, DiscountAdvisory carries the reason and DiscountAmount is zero.
type QuoteResult struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountID       *uuid.UUID      `json:"discount_id,omitempty"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	DiscountAdvisory string          `json:"discount_advisory,omitempty"`
	Total            decimal.Decimal `json:"total"`
	Lines            []QuoteLine     `json:"lines"`
}
