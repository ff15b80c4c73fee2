package handler

import (
	"net/http"
	"strconv"

	"ticket-booking/internal/model"
	"ticket-booking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingHandler struct {
	bookings     service.BookingService
	confirmation service.ConfirmationService
}

func NewBookingHandler(bookings service.BookingService, confirmation service.ConfirmationService) *BookingHandler {
	return &BookingHandler{bookings: bookings, confirmation: confirmation}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("bookings", h.List)
		router.GET("bookings/:id", h.Get)
		router.POST("bookings", h.Create)
		router.POST("bookings/:id/verify", h.Verify)
		router.PUT("bookings/:id/cancel", h.Cancel)
		router.GET("bookings/:id/tickets/:n/qr", h.TicketQR)
		router.POST("refunds", h.Refund)
	}
}

// VerifyPaymentRequest 前端付款完成後的同步確認
type VerifyPaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required,max=128"`
}

type RefundRequest struct {
	BookingID uuid.UUID       `json:"booking_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	var req model.CreateBookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	var (
		booking *model.Booking
		err     error
	)
	switch req.Mode {
	case model.BookingModeFree:
		booking, err = h.bookings.CreateFree(c, actorID, req)
	case model.BookingModePending:
		booking, err = h.bookings.Initiate(c, actorID, req)
	case model.BookingModePaid, "":
		booking, err = h.bookings.CreatePaid(c, actorID, req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown booking mode"})
		return
	}
	if err != nil {
		handleError(c, err, "CreateBooking")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) List(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	bookings, err := h.bookings.ListForUser(c, actorID)
	if err != nil {
		handleError(c, err, "ListBookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) Get(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	bookingID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.Get(c, actorID, bookingID)
	if err != nil {
		handleError(c, err, "GetBooking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) Verify(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	bookingID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	var req VerifyPaymentRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	// 呼叫者必須看得到這筆訂位
	if _, err := h.bookings.Get(c, actorID, bookingID); err != nil {
		handleError(c, err, "VerifyPayment")
		return
	}
	booking, err := h.confirmation.Confirm(c, bookingID, req.PaymentReference)
	if err != nil {
		handleError(c, err, "VerifyPayment")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	bookingID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.Cancel(c, actorID, bookingID)
	if err != nil {
		handleError(c, err, "CancelBooking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) TicketQR(c *gin.Context) {
	actorID, ok := ActorID(c)
	if !ok {
		return
	}
	bookingID, ok := ParamUUID(c, "id")
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket number"})
		return
	}

	png, err := h.bookings.TicketQR(c, actorID, bookingID, n)
	if err != nil {
		handleError(c, err, "TicketQR")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Refund is called by the back office once a refund has been approved.
func (h *BookingHandler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	booking, err := h.bookings.Refund(c, model.RefundApproved{BookingID: req.BookingID, Amount: req.Amount})
	if err != nil {
		handleError(c, err, "Refund")
		return
	}
	c.JSON(http.StatusOK, booking)
}
