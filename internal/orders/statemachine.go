package orders

import (
	"fmt"

	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// allowedTransitions is the full lifecycle table. Statuses absent from
// the map are terminal.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusApproved,
		enums.OrderStatusRejected,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusApproved: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusCompleted,
	},
	enums.OrderStatusEditedPendingApproval: {
		enums.OrderStatusApproved,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssertTransition returns a state-conflict error for disallowed moves.
func AssertTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}
