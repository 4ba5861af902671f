package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	apperrors "github.com/milkrun-inc/milkrun/internal/shared/errors"
	"github.com/milkrun-inc/milkrun/internal/shared/utils"
)

// respondDomainError translates domain errors into API error responses so
// handlers never leak raw internals.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound),
		errors.Is(err, subscription.ErrDeliveryNotFound),
		errors.Is(err, subscription.ErrProductNotFound),
		errors.Is(err, subscription.ErrProductLineNotFound):
		utils.ErrorResponseWithError(c, apperrors.NewNotFoundError(err.Error()))

	case errors.Is(err, subscription.ErrNotOwner),
		errors.Is(err, subscription.ErrNotAssignedPartner):
		utils.ErrorResponseWithError(c, apperrors.NewForbiddenError(err.Error()))

	case errors.Is(err, subscription.ErrPastCutoff),
		errors.Is(err, subscription.ErrCancellationWindowClosed),
		errors.Is(err, subscription.ErrDateConflict),
		errors.Is(err, subscription.ErrDuplicateProductOnDate),
		errors.Is(err, subscription.ErrInvalidStatusTransition),
		errors.Is(err, subscription.ErrVersionConflict):
		utils.ErrorResponseWithError(c, apperrors.NewConflictError(err.Error()))

	case errors.Is(err, subscription.ErrOutOfWindow),
		errors.Is(err, subscription.ErrInvalidInput),
		errors.Is(err, vo.ErrInvalidSlot),
		errors.Is(err, vo.ErrInvalidFrequency),
		errors.Is(err, vo.ErrInvalidQuantity),
		errors.Is(err, vo.ErrInvalidDate):
		utils.ErrorResponseWithError(c, apperrors.NewValidationError(err.Error()))

	default:
		utils.ErrorResponseWithError(c, err)
	}
}
