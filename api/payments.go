package api

import (
	"net/http"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type createChargeRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

type offlinePaymentRequest struct {
	BookingID int64                `json:"booking_id" binding:"required"`
	Method    domain.PaymentMethod `json:"method" binding:"required"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/payments/charges", h.createCharge)
	router.GET("/payments/charges/:chargeId", h.chargeStatus)
	router.POST("/payments/offline", h.createOffline)
	router.GET("/payments", h.list)
	router.GET("/payments/:id", h.get)
	router.POST("/payments/:id/confirm", RequireRole(domain.RoleStaff, domain.RoleAdmin), h.confirm)
}

// RegisterWebhook mounts the gateway callback. It carries no user token.
func (h *PaymentHandler) RegisterWebhook(router *gin.RouterGroup) {
	router.POST("/webhooks/omise", h.webhook)
}

func (h *PaymentHandler) createCharge(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.service.CreateCharge(c.Request.Context(), actorFrom(c), req.BookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PaymentHandler) chargeStatus(c *gin.Context) {
	p, err := h.service.CheckChargeStatus(c.Request.Context(), actorFrom(c), c.Param("chargeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) createOffline(c *gin.Context) {
	var req offlinePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.service.CreateOfflinePayment(c.Request.Context(), actorFrom(c), req.BookingID, req.Method)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) list(c *gin.Context) {
	filter := domain.PaymentFilter{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	var ok bool
	if filter.UserID, ok = queryID(c, "user_id"); !ok {
		return
	}
	if filter.BookingID, ok = queryID(c, "booking_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		filter.Status = &status
	}
	list, err := h.service.ListPayments(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PaymentHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPayment(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PaymentHandler) confirm(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.ConfirmPaymentManually(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// webhook answers 2xx once the event is applied or ignored; anything else
// makes the gateway redeliver.
func (h *PaymentHandler) webhook(c *gin.Context) {
	var event domain.ChargeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		badRequest(c, err.Error())
		return
	}
	logger.InfoContext(c.Request.Context(), "webhook received", "event_id", event.ID, "key", event.Key, "charge_id", event.Data.ID)
	if err := h.service.HandleWebhook(c.Request.Context(), event); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
