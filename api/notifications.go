package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type NotificationLister interface {
	List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error)
}

type NotificationHandler struct {
	notifications NotificationLister
}

func NewNotificationHandler(notifications NotificationLister) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("/notifications", h.list)
}

func (h *NotificationHandler) list(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), actorFrom(c).UserID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
