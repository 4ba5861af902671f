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

// SubscriptionHandler handles customer subscription operations
type SubscriptionHandler struct {
	createUseCase     *usecases.CreateSubscriptionUseCase
	getUseCase        *usecases.GetSubscriptionUseCase
	listUseCase       *usecases.ListCustomerSubscriptionsUseCase
	cancelUseCase     *usecases.CancelSubscriptionUseCase
	pauseUseCase      *usecases.PauseSubscriptionUseCase
	addProductUseCase *usecases.AddProductUseCase
	logger            logger.Interface
}

// NewSubscriptionHandler creates a new customer subscription handler
func NewSubscriptionHandler(
	createUC *usecases.CreateSubscriptionUseCase,
	getUC *usecases.GetSubscriptionUseCase,
	listUC *usecases.ListCustomerSubscriptionsUseCase,
	cancelUC *usecases.CancelSubscriptionUseCase,
	pauseUC *usecases.PauseSubscriptionUseCase,
	addProductUC *usecases.AddProductUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		createUseCase:     createUC,
		getUseCase:        getUC,
		listUseCase:       listUC,
		cancelUseCase:     cancelUC,
		pauseUseCase:      pauseUC,
		addProductUseCase: addProductUC,
		logger:            logger,
	}
}

// CreateSubscriptionRequest represents the request to create a subscription
type CreateSubscriptionRequest struct {
	BranchSID  string                             `json:"branch_sid" binding:"required"`
	AddressSID string                             `json:"address_sid"`
	PartnerSID string                             `json:"partner_sid"`
	Slot       string                             `json:"slot" binding:"required,oneof=morning evening"`
	StartDate  string                             `json:"start_date" binding:"omitempty,deliverydate"` // YYYY-MM-DD, empty starts tomorrow
	Products   []CreateSubscriptionProductRequest `json:"products" binding:"required,min=1,dive"`
}

// CreateSubscriptionProductRequest is one product line of a creation request
type CreateSubscriptionProductRequest struct {
	ProductSID string `json:"product_sid" binding:"required"`
	Frequency  string `json:"frequency" binding:"required,oneof=daily alternate weekly monthly"`
	Count      int    `json:"count"`
}

// CancelSubscriptionRequest carries the mandatory cancellation reason
type CancelSubscriptionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AddProductRequest adds one product to a running subscription
type AddProductRequest struct {
	ProductSID string `json:"product_sid" binding:"required"`
	Frequency  string `json:"frequency" binding:"required,oneof=daily alternate weekly monthly"`
	Count      int    `json:"count"`
}

func customerSID(c *gin.Context) (string, bool) {
	sid, exists := c.Get(constants.ContextKeyCustomerSID)
	if !exists {
		utils.ErrorResponse(c, http.StatusUnauthorized, "customer not authenticated")
		return "", false
	}
	return sid.(string), true
}

func subscriptionSIDParam(c *gin.Context) (string, bool) {
	sid := c.Param("sid")
	if err := id.ValidatePrefix(sid, id.PrefixSubscription); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid subscription ID format, expected sub_xxxxx")
		return "", false
	}
	return sid, true
}

func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create subscription", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	products := make([]usecases.CreateSubscriptionProduct, 0, len(req.Products))
	for _, p := range req.Products {
		if err := id.ValidatePrefix(p.ProductSID, id.PrefixProduct); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid product ID format, expected prd_xxxxx")
			return
		}
		products = append(products, usecases.CreateSubscriptionProduct{
			ProductSID: p.ProductSID,
			Frequency:  p.Frequency,
			Count:      p.Count,
		})
	}

	cmd := usecases.CreateSubscriptionCommand{
		CustomerSID: custSID,
		BranchSID:   req.BranchSID,
		AddressSID:  req.AddressSID,
		PartnerSID:  req.PartnerSID,
		Slot:        req.Slot,
		StartDate:   req.StartDate,
		Products:    products,
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Errorw("failed to create subscription", "error", err, "customer_sid", custSID)
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, subdto.ToSubscriptionDTO(result.Subscription), "Subscription created successfully")
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	sub, err := h.getUseCase.Execute(c.Request.Context(), usecases.GetSubscriptionQuery{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", subdto.ToSubscriptionDTO(sub))
}

// GetSchedule returns the subscription's delivery calendar.
func (h *SubscriptionHandler) GetSchedule(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	sub, err := h.getUseCase.Execute(c.Request.Context(), usecases.GetSubscriptionQuery{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", subdto.ToDeliveryEntryDTOList(sub.Schedule().Entries()))
}

func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	pageSize := constants.DefaultPageSize
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 && ps <= constants.MaxPageSize {
			pageSize = ps
		}
	}

	result, err := h.listUseCase.Execute(c.Request.Context(), usecases.ListCustomerSubscriptionsQuery{
		CustomerSID: custSID,
		Status:      c.Query("status"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		h.logger.Errorw("failed to list subscriptions", "error", err, "customer_sid", custSID)
		respondDomainError(c, err)
		return
	}

	items := make([]*subdto.SubscriptionDTO, 0, len(result.Subscriptions))
	for _, sub := range result.Subscriptions {
		items = append(items, subdto.ToSubscriptionDTO(sub))
	}

	utils.ListSuccessResponse(c, items, result.Total, page, pageSize)
}

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "reason is required for cancellation")
		return
	}

	sub, err := h.cancelUseCase.Execute(c.Request.Context(), usecases.CancelSubscriptionCommand{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
		Reason:          req.Reason,
	})
	if err != nil {
		h.logger.Warnw("failed to cancel subscription", "error", err, "subscription_sid", subSID)
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription cancelled", subdto.ToSubscriptionDTO(sub))
}

func (h *SubscriptionHandler) PauseSubscription(c *gin.Context) {
	h.togglePause(c, false)
}

func (h *SubscriptionHandler) ResumeSubscription(c *gin.Context) {
	h.togglePause(c, true)
}

func (h *SubscriptionHandler) togglePause(c *gin.Context, resume bool) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	sub, err := h.pauseUseCase.Execute(c.Request.Context(), usecases.PauseSubscriptionCommand{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
		Resume:          resume,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	message := "Subscription paused"
	if resume {
		message = "Subscription resumed"
	}
	utils.SuccessResponse(c, http.StatusOK, message, subdto.ToSubscriptionDTO(sub))
}

func (h *SubscriptionHandler) AddProduct(c *gin.Context) {
	custSID, ok := customerSID(c)
	if !ok {
		return
	}
	subSID, ok := subscriptionSIDParam(c)
	if !ok {
		return
	}

	var req AddProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for add product", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := id.ValidatePrefix(req.ProductSID, id.PrefixProduct); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid product ID format, expected prd_xxxxx")
		return
	}

	result, err := h.addProductUseCase.Execute(c.Request.Context(), usecases.AddProductCommand{
		SubscriptionSID: subSID,
		CustomerSID:     custSID,
		ProductSID:      req.ProductSID,
		Frequency:       req.Frequency,
		Count:           req.Count,
	})
	if err != nil {
		h.logger.Errorw("failed to add product", "error", err, "subscription_sid", subSID)
		respondDomainError(c, err)
		return
	}

	dates := make([]string, 0, len(result.DeliveryDates))
	for _, d := range result.DeliveryDates {
		dates = append(dates, d.String())
	}

	utils.SuccessResponse(c, http.StatusOK, "Product added", gin.H{
		"subscription":   subdto.ToSubscriptionDTO(result.Subscription),
		"delivery_dates": dates,
	})
}
