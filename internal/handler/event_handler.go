package handler

import (
	"net/http"

	"ticket-booking/internal/model"
	"ticket-booking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:id", h.Get)
		router.GET("events/:id/availability", h.Availability)
		router.POST("events", h.Create)
		router.PUT("events/:id/approve", h.Approve)
		router.POST("events/:id/staff", h.AssignStaff)
	}
}

// AssignStaffRequest 指派現場人員請求
type AssignStaffRequest struct {
	StaffID uuid.UUID `json:"staff_id" binding:"required"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.Get(c, eventID)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Availability(c *gin.Context) {
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	snapshots, err := h.service.Availability(c, eventID)
	if err != nil {
		handleError(c, err, "Availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "ticket_types": snapshots})
}

func (h *EventHandler) Create(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c, actorID, req)
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *EventHandler) Approve(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.Approve(c, actorID, eventID)
	if err != nil {
		handleError(c, err, "ApproveEvent")
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) AssignStaff(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	eventID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req AssignStaffRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if err := h.service.AssignStaff(c, actorID, eventID, req.StaffID); err != nil {
		handleError(c, err, "AssignStaff")
		return
	}
	c.Status(http.StatusNoContent)
}
