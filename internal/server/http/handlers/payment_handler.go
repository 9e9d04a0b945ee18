package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/server/http/dto"
)

// PaymentHandler settles orders.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Pay handles POST /api/orders/:id/payments.
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.Pay(c.Request.Context(), c.Param("id"), c.GetHeader(idempotencyHeader), model.PaymentRequest{
		Method:        model.PaymentMethod(req.Method),
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// CreateUPIIntent handles POST /api/orders/:id/payments/upi.
func (h *PaymentHandler) CreateUPIIntent(c *gin.Context) {
	intent, err := h.facade.CreateUPIIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.IntentResponse{
		ID:        intent.ID,
		OrderID:   intent.OrderID,
		QRPayload: intent.QRPayload,
		Amount:    intent.Amount,
		Status:    string(intent.Status),
		CreatedAt: intent.CreatedAt,
	})
}
