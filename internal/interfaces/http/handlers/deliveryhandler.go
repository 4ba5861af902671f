package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	subdto "github.com/milkrun-inc/milkrun/internal/application/subscription/dto"
	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	"github.com/milkrun-inc/milkrun/internal/shared/constants"
	"github.com/milkrun-inc/milkrun/internal/shared/id"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
	"github.com/milkrun-inc/milkrun/internal/shared/utils"
)

// DeliveryHandler handles per-delivery operations: journey tracking on the
// partner side, confirmation and rescheduling on the customer side.
type DeliveryHandler struct {
	startJourneyUseCase   *usecases.StartJourneyUseCase
	resolveUseCase        *usecases.ResolveDeliveryUseCase
	confirmUseCase        *usecases.ConfirmDeliveryUseCase
	rescheduleUseCase     *usecases.RescheduleDeliveryUseCase
	rescheduleItemUseCase *usecases.RescheduleItemUseCase
	availableDatesUseCase *usecases.GetAvailableDatesUseCase
	logger                logger.Interface
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(
	startJourneyUC *usecases.StartJourneyUseCase,
	resolveUC *usecases.ResolveDeliveryUseCase,
	confirmUC *usecases.ConfirmDeliveryUseCase,
	rescheduleUC *usecases.RescheduleDeliveryUseCase,
	rescheduleItemUC *usecases.RescheduleItemUseCase,
	availableDatesUC *usecases.GetAvailableDatesUseCase,
	logger logger.Interface,
) *DeliveryHandler {
	return &DeliveryHandler{
		startJourneyUseCase:   startJourneyUC,
		resolveUseCase:        resolveUC,
		confirmUseCase:        confirmUC,
		rescheduleUseCase:     rescheduleUC,
		rescheduleItemUseCase: rescheduleItemUC,
		availableDatesUseCase: availableDatesUC,
		logger:                logger,
	}
}

// StartJourneyRequest marks the partner as on the way, with an optional
// starting position for live tracking.
type StartJourneyRequest struct {
	Date      string   `json:"date" binding:"required,deliverydate"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ResolveDeliveryRequest reports the outcome of a delivery attempt
type ResolveDeliveryRequest struct {
	Date    string `json:"date" binding:"required,deliverydate"`
	Outcome string `json:"outcome" binding:"required,oneof=delivered noResponse awaitingCustomer"`
}

// ConfirmDeliveryRequest confirms receipt of an awaiting delivery
type ConfirmDeliveryRequest struct {
	Date string `json:"date" binding:"required,deliverydate"`
}

// RescheduleDeliveryRequest moves a whole delivery day
type RescheduleDeliveryRequest struct {
	OldDate string `json:"old_date" binding:"required,deliverydate"`
	NewDate string `json:"new_date" binding:"required,deliverydate"`
	NewSlot string `json:"new_slot" binding:"omitempty,oneof=morning evening"`
}

// RescheduleItemRequest moves one product line to another delivery day
type RescheduleItemRequest struct {
	SubscriptionProductID string `json:"subscription_product_id" binding:"required"`
	CurrentDate           string `json:"current_date" binding:"required,deliverydate"`
	NewDate               string `json:"new_date" binding:"required,deliverydate"`
}

func partnerSID(c *gin.Context) (string, bool) {
	sid, exists := c.Get(constants.ContextKeyPartnerSID)
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "partner not authenticated")
		return "", false
	}
	return sid.(string), true
}

func (h *DeliveryHandler) StartJourney(c *gin.Context) {
	prtSID, ok := partnerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req StartJourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.startJourneyUseCase.Execute(c.Request.Context(), usecases.StartJourneyCommand{
		SubscriptionSID: subSID,
		Date:            req.Date,
		PartnerSID:      prtSID,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	})
	if err != nil {
		h.logger.Warnw("failed to start journey", "error", err, "subscription_sid", subSID, "date", req.Date)
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Journey started", subdto.ToSubscriptionDTO(sub))
}

func (h *DeliveryHandler) ResolveDelivery(c *gin.Context) {
	prtSID, ok := partnerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req ResolveDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.resolveUseCase.Execute(c.Request.Context(), usecases.ResolveDeliveryCommand{
		SubscriptionSID: subSID,
		Date:            req.Date,
		PartnerSID:      prtSID,
		Outcome:         req.Outcome,
	})
	if err != nil {
		h.logger.Warnw("failed to resolve delivery", "error", err, "subscription_sid", subSID, "date", req.Date, "outcome", req.Outcome)
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Delivery resolved", gin.H{
		"subscription":   subdto.ToSubscriptionDTO(result.Subscription),
		"resolved_items": result.Transition.Resolved,
		"skipped_items":  result.Transition.Skipped,
	})
}

func (h *DeliveryHandler) ConfirmDelivery(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.confirmUseCase.Execute(c.Request.Context(), usecases.ConfirmDeliveryCommand{
		SubscriptionSID: subSID,
		Date:            req.Date,
		CustomerSID:     custSID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Delivery confirmed", subdto.ToSubscriptionDTO(sub))
}

func (h *DeliveryHandler) RescheduleDelivery(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req RescheduleDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.rescheduleUseCase.Execute(c.Request.Context(), usecases.RescheduleDeliveryCommand{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
		OldDate:         req.OldDate,
		NewDate:         req.NewDate,
		NewSlot:         req.NewSlot,
	})
	if err != nil {
		h.logger.Warnw("failed to reschedule delivery", "error", err, "subscription_sid", subSID, "old_date", req.OldDate, "new_date", req.NewDate)
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Delivery rescheduled", subdto.ToSubscriptionDTO(sub))
}

func (h *DeliveryHandler) RescheduleItem(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req RescheduleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := id.ValidatePrefix(req.SubscriptionProductID, id.PrefixSubscriptionProduct); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid subscription product ID format, expected sp_xxxxx")
		return
	}

	sub, err := h.rescheduleItemUseCase.Execute(c.Request.Context(), usecases.RescheduleItemCommand{
		SubscriptionSID:       subSID,
		CustomerSID:           custSID,
		SubscriptionProductID: req.SubscriptionProductID,
		CurrentDate:           req.CurrentDate,
		NewDate:               req.NewDate,
	})
	if err != nil {
		h.logger.Warnw("failed to reschedule item", "error", err, "subscription_sid", subSID, "subscription_product_id", req.SubscriptionProductID)
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Item rescheduled", subdto.ToSubscriptionDTO(sub))
}

// GetAvailableDates lists the dates an item can be rescheduled to within
// the reschedule window.
func (h *DeliveryHandler) GetAvailableDates(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	spID := c.Query("subscription_product_id")
	if err := id.ValidatePrefix(spID, id.PrefixSubscriptionProduct); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid subscription product ID format, expected sp_xxxxx")
		return
	}
	currentDate := c.Query("current_date")
	if currentDate == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "current_date is required")
		return
	}
	consecutiveDays := 1
	if raw := c.Query("consecutive_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.ErrorResponse(c, http.StatusBadRequest, "consecutive_days must be a positive integer")
			return
		}
		consecutiveDays = n
	}

	dates, err := h.availableDatesUseCase.Execute(c.Request.Context(), usecases.GetAvailableDatesQuery{
		SubscriptionSID:       subSID,
		CustomerSID:           custSID,
		SubscriptionProductID: spID,
		CurrentDate:           currentDate,
		ConsecutiveDays:       consecutiveDays,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	available := make([]string, 0, len(dates))
	for _, d := range dates {
		available = append(available, d.String())
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"available_dates": available})
}
