package discounts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// ComputeAmount derives the monetary discount for an order subtotal.
// Percentage values above 100 are refused rather than clamped; a fixed
// amount larger than the subtotal is clamped so the total never goes
// negative. The result is capped at MaxDiscountAmount when set and
// rounded to 2 decimal places, half up.
func ComputeAmount(d *models.Discount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return zero, pkgerrors.New(pkgerrors.CodeInternal, "compute amount: nil discount")
	}
	if subtotal.IsNegative() {
		return zero, pkgerrors.New(pkgerrors.CodeValidation, "compute amount: negative subtotal")
	}

	var amount decimal.Decimal
	switch d.Type {
	case enums.DiscountTypePercentage:
		if d.Value.GreaterThan(hundred) {
			return zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("percentage discount value %s exceeds 100", d.Value))
		}
		amount = subtotal.Mul(d.Value).Div(hundred)
	case enums.DiscountTypeFixedAmount:
		amount = d.Value
		if amount.GreaterThan(subtotal) {
			amount = subtotal
		}
	default:
		return zero, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown discount type %q", d.Type))
	}

	if d.MaxDiscountAmount != nil && amount.GreaterThan(*d.MaxDiscountAmount) {
		amount = *d.MaxDiscountAmount
	}
	if amount.IsNegative() {
		amount = zero
	}
	return amount.Round(2), nil
}
