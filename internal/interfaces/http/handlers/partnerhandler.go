package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	subdto "github.com/milkrun-inc/milkrun/internal/application/subscription/dto"
	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
	"github.com/milkrun-inc/milkrun/internal/shared/utils"
)

// PartnerHandler serves the delivery partner's daily route sheet.
type PartnerHandler struct {
	listDeliveriesUseCase *usecases.ListPartnerDeliveriesUseCase
	logger                logger.Interface
}

func NewPartnerHandler(listDeliveriesUC *usecases.ListPartnerDeliveriesUseCase, logger logger.Interface) *PartnerHandler {
	return &PartnerHandler{
		listDeliveriesUseCase: listDeliveriesUC,
		logger:                logger,
	}
}

// PartnerDeliveryResponse pairs a subscription summary with its delivery
// entry for the requested day.
type PartnerDeliveryResponse struct {
	Subscription *subdto.SubscriptionDTO  `json:"subscription"`
	Delivery     *subdto.DeliveryEntryDTO `json:"delivery"`
}

// ListDeliveries returns the partner's deliveries for one day,
// defaulting to today in the business timezone.
func (h *PartnerHandler) ListDeliveries(c *gin.Context) {
	prtSID, ok := partnerSID(c)
	if !ok {
		return
	}

	deliveries, err := h.listDeliveriesUseCase.Execute(c.Request.Context(), usecases.ListPartnerDeliveriesQuery{
		PartnerSID: prtSID,
		Date:       c.Query("date"),
	})
	if err != nil {
		h.logger.Errorw("failed to list partner deliveries", "error", err, "partner_sid", prtSID)
		respondDomainError(c, err)
		return
	}

	items := make([]PartnerDeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		items = append(items, PartnerDeliveryResponse{
			Subscription: subdto.ToSubscriptionDTO(d.Subscription),
			Delivery:     subdto.ToDeliveryEntryDTO(d.Entry),
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"deliveries": items, "count": len(items)})
}
