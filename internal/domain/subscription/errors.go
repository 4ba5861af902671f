package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrDeliveryNotFound         = errors.New("delivery entry not found")
	ErrProductNotFound          = errors.New("subscription product not found")
	ErrProductLineNotFound      = errors.New("delivery product line not found")
	ErrInvalidStatusTransition  = errors.New("invalid status transition")
	ErrNotAssignedPartner       = errors.New("actor is not the assigned delivery partner")
	ErrNotOwner                 = errors.New("actor is not the subscription owner")
	ErrPastCutoff               = errors.New("delivery is past its cutoff")
	ErrOutOfWindow              = errors.New("date is outside the allowed reschedule window")
	ErrDateConflict             = errors.New("an entry already exists on the target date")
	ErrDuplicateProductOnDate   = errors.New("product already scheduled on the target date")
	ErrVersionConflict          = errors.New("subscription was modified concurrently")
	ErrCancellationWindowClosed = errors.New("cancellation cutoff has passed")
	ErrInvalidInput             = errors.New("invalid input")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}
