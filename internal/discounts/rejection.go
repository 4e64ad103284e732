package discounts

// RejectionReason identifies which validation check refused a discount.
// The pipeline short-circuits, so callers always see the first failure.
type RejectionReason string

const (
	RejectionNotFound           RejectionReason = "not_found"
	RejectionInactive           RejectionReason = "inactive"
	RejectionExpired            RejectionReason = "expired"
	RejectionUsageLimit         RejectionReason = "usage_limit"
	RejectionCustomerLimit      RejectionReason = "customer_limit"
	RejectionDealerUsed         RejectionReason = "dealer_used"
	RejectionDealerNotEligible  RejectionReason = "dealer_not_eligible"
	RejectionProductNotEligible RejectionReason = "product_not_eligible"
	RejectionMinOrderAmount     RejectionReason = "min_order_amount"
	RejectionWrongDealer        RejectionReason = "wrong_dealer"
	RejectionUnavailable        RejectionReason = "unavailable"
)

// Rejection carries the reason plus a caller-facing message.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

var rejectionMessages = map[RejectionReason]string{
	RejectionNotFound:           "discount not found",
	RejectionInactive:           "discount is not active",
	RejectionExpired:            "discount is outside its validity period",
	RejectionUsageLimit:         "discount usage limit reached",
	RejectionCustomerLimit:      "discount usage limit for this customer reached",
	RejectionDealerUsed:         "discount already used by this dealer",
	RejectionDealerNotEligible:  "discount is not available to this dealer",
	RejectionProductNotEligible: "discount does not apply to any ordered product",
	RejectionMinOrderAmount:     "order subtotal is below the discount minimum",
	RejectionWrongDealer:        "user does not belong to the order's dealer",
	RejectionUnavailable:        "discount is no longer available",
}

func reject(reason RejectionReason) *Rejection {
	return &Rejection{Reason: reason, Message: rejectionMessages[reason]}
}
