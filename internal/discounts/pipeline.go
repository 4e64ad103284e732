package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// ValidateInput carries everything the pipeline needs to judge a
// discount against an order being built.
type ValidateInput struct {
	DiscountID   uuid.UUID
	UserID       uuid.UUID
	UserDealerID uuid.UUID
	DealerID     uuid.UUID
	Subtotal     decimal.Decimal
	ProductIDs   []uuid.UUID
}

// Validator runs the ordered eligibility checks. Checks short-circuit:
// the first failing check decides the rejection reason.
type Validator struct {
	repo    *Repo
	tracker *Tracker
	now     func() time.Time
}

func NewValidator(repo *Repo, tracker *Tracker) (*Validator, error) {
	if repo == nil || tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "discount validator requires repo and tracker")
	}
	return &Validator{repo: repo, tracker: tracker, now: time.Now}, nil
}

// WithTx returns a copy whose reads run inside the given transaction.
func (v *Validator) WithTx(tx *gorm.DB) *Validator {
	return &Validator{repo: v.repo.WithTx(tx), tracker: v.tracker.WithTx(tx), now: v.now}
}

// WithClock overrides the time source. Test hook.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	return &Validator{repo: v.repo, tracker: v.tracker, now: now}
}

// Validate judges the discount. A nil Rejection with a non-nil discount
// means the discount may be applied. The error return is reserved for
// infrastructure failures; business refusals come back as a Rejection.
//
// Limit-sensitive checks (4, 5 and 6) are only trustworthy while the
// caller holds the discount's UsageLock through the subsequent Record.
func (v *Validator) Validate(ctx context.Context, in ValidateInput) (*models.Discount, *Rejection, error) {
	// 1. existence
	d, err := v.repo.FindByID(ctx, in.DiscountID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, reject(RejectionNotFound), nil
		}
		return nil, nil, err
	}

	now := v.now()

	// 2. enabled flag
	if !d.IsActive {
		return nil, reject(RejectionInactive), nil
	}

	// 3. validity window
	if now.Before(d.StartDate) || now.After(d.EndDate) {
		return nil, reject(RejectionExpired), nil
	}

	// 4. global usage limit
	if d.UsageLimit != nil {
		n, err := v.tracker.CountGlobal(ctx, d.ID)
		if err != nil {
			return nil, nil, err
		}
		if n >= int64(*d.UsageLimit) {
			return nil, reject(RejectionUsageLimit), nil
		}
	}

	// 5. per-customer usage limit
	if d.UsageLimitPerCustomer != nil {
		n, err := v.tracker.CountUser(ctx, d.ID, in.UserID)
		if err != nil {
			return nil, nil, err
		}
		if n >= int64(*d.UsageLimitPerCustomer) {
			return nil, reject(RejectionCustomerLimit), nil
		}
	}

	// 6. one use per dealer, across all of the dealer's users
	used, err := v.tracker.DealerUsed(ctx, d.ID, in.DealerID)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, reject(RejectionDealerUsed), nil
	}

	// 7. dealer scoping; empty list means every dealer qualifies
	if len(d.DealerIDs) > 0 && !d.DealerIDs.Contains(in.DealerID) {
		return nil, reject(RejectionDealerNotEligible), nil
	}

	// 8. product scoping; empty list means every product qualifies
	if len(d.ProductIDs) > 0 && !containsAny(d.ProductIDs.Contains, in.ProductIDs) {
		return nil, reject(RejectionProductNotEligible), nil
	}

	// 9. minimum order amount
	if d.MinOrderAmount != nil && in.Subtotal.LessThan(*d.MinOrderAmount) {
		return nil, reject(RejectionMinOrderAmount), nil
	}

	// 10. the requesting user must belong to the ordering dealer
	if in.UserDealerID != in.DealerID {
		return nil, reject(RejectionWrongDealer), nil
	}

	// 11. re-read for a final availability check; an admin may have
	// toggled the discount between step 1 and here
	fresh, err := v.repo.FindByID(ctx, d.ID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, reject(RejectionUnavailable), nil
		}
		return nil, nil, err
	}
	if !fresh.ActiveAt(now) {
		return nil, reject(RejectionUnavailable), nil
	}

	return fresh, nil, nil
}

func containsAny(contains func(uuid.UUID) bool, ids []uuid.UUID) bool {
	for _, id := range ids {
		if contains(id) {
			return true
		}
	}
	return false
}
