package handler

import (
	"net/http"

	"ticket-booking/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckinHandler struct {
	service service.RedemptionService
}

func NewCheckinHandler(service service.RedemptionService) *CheckinHandler {
	return &CheckinHandler{service: service}
}

func (h *CheckinHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("events/:id/checkin", h.Checkin)
	}
}

type CheckinRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *CheckinHandler) Checkin(c *gin.Context) {
	staffID, ok := ActorID(c)
	if !ok {
		return
	}
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req CheckinRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Redeem(c, eventID, req.Code, staffID)
	if err != nil {
		handleError(c, err, "Checkin")
		return
	}
	c.JSON(http.StatusOK, result)
}
