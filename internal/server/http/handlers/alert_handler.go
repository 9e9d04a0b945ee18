package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/server/http/dto"
)

const streamSnapshot = "snapshot"

// AlertHandler serves the in-app alert surface.
type AlertHandler struct {
	facade AlertFacade
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(facade AlertFacade) *AlertHandler {
	return &AlertHandler{facade: facade}
}

// List handles GET /api/alerts.
func (h *AlertHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.facade.Alerts())
}

// Ack handles POST /api/alerts/:id/ack.
func (h *AlertHandler) Ack(c *gin.Context) {
	alert, err := h.facade.AckAlert(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Open handles POST /api/alerts/open with the data of a tapped push.
func (h *AlertHandler) Open(c *gin.Context) {
	var req dto.OpenAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	order, acked, err := h.facade.OpenAlert(c.Request.Context(), model.PushData{
		OrderID: req.OrderID,
		Type:    model.NotificationType(req.Type),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	if acked == nil {
		acked = []model.Alert{}
	}
	c.JSON(http.StatusOK, dto.OpenAlertResponse{Order: toOrderResponse(*order), Acknowledged: acked})
}

// Stream handles GET /api/alerts/stream. It sends the open alerts first and
// then every alert, ack and sound cue as server-sent events until the client
// leaves or the board is closed.
func (h *AlertHandler) Stream(c *gin.Context) {
	events, cancel := h.facade.WatchAlerts()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent(streamSnapshot, h.facade.Alerts())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Kind, ev)
			return true
		}
	})
}
