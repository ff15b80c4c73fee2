package handler

import (
	"net/http"

	"ticket-booking/internal/model"
	"ticket-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service service.ConfirmationService
}

func NewPaymentHandler(service service.ConfirmationService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("payments/webhook", h.Webhook)
	}
}

// Webhook 收到金流通知後只排入 stream，由 PaymentWorker 非同步確認
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var result model.PaymentResult
	if err := BindJson(c, &result); err != nil {
		return
	}
	if err := h.service.SubmitPaymentResult(c, result); err != nil {
		handleError(c, err, "PaymentWebhook")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
