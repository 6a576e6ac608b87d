package api

import (
	"net/http"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status domain.BookingStatus `json:"status" binding:"required"`
}

type availabilityResponse struct {
	CourtID   int64  `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability", h.availability)
	router.POST("/bookings", h.create)
	router.GET("/bookings", h.list)
	router.GET("/bookings/:id", h.get)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.PATCH("/bookings/:id/status", RequireRole(domain.RoleStaff, domain.RoleAdmin), h.updateStatus)
}

func (h *BookingHandler) availability(c *gin.Context) {
	var q booking.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	available, err := h.service.CheckAvailability(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		CourtID:   q.CourtID,
		Date:      q.Date,
		StartTime: q.StartTime,
		EndTime:   q.EndTime,
		Available: available,
	})
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BookingHandler) list(c *gin.Context) {
	filter := domain.BookingFilter{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	var ok bool
	if filter.UserID, ok = queryID(c, "user_id"); !ok {
		return
	}
	if filter.VenueID, ok = queryID(c, "venue_id"); !ok {
		return
	}
	if filter.CourtID, ok = queryID(c, "court_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.BookingStatus(raw)
		if !status.Valid() {
			badRequest(c, "invalid status")
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("date_from"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.DateFrom = &d
	}
	if raw := c.Query("date_to"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.DateTo = &d
	}

	list, err := h.service.ListBookings(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	b, err := h.service.CancelBooking(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.service.UpdateBookingStatus(c.Request.Context(), actorFrom(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
