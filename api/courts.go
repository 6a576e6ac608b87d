package api

import (
	"net/http"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/service/courts"
	"github.com/gin-gonic/gin"
)

type CourtHandler struct {
	service courts.CourtUseCase
}

func NewCourtHandler(service courts.CourtUseCase) *CourtHandler {
	return &CourtHandler{service: service}
}

func (h *CourtHandler) Register(router *gin.RouterGroup) {
	router.GET("/venues/:id/courts", h.list)
	router.GET("/venues/:id/equipment", h.equipment)
	router.GET("/courts/:id", h.get)
	router.GET("/courts/:id/slots", h.slots)
}

func (h *CourtHandler) list(c *gin.Context) {
	venueID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.service.ListCourts(c.Request.Context(), venueID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CourtHandler) equipment(c *gin.Context) {
	venueID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.service.ListEquipment(c.Request.Context(), venueID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CourtHandler) get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	court, err := h.service.GetCourt(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, court)
}

func (h *CourtHandler) slots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	slots, err := h.service.CourtSlots(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
