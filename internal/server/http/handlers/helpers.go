package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/server/http/dto"
	"github.com/polkiloo/orderboard/internal/server/http/middleware"
)

const idempotencyHeader = "Idempotency-Key"

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidItem),
		errors.Is(err, domainErrors.ErrInvalidPayment),
		errors.Is(err, domainErrors.ErrInvalidRole):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrNotServed),
		errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrAlreadyExists),
		errors.Is(err, domainErrors.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func toItemLines(items []dto.ItemRequest) []model.ItemLine {
	lines := make([]model.ItemLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, model.ItemLine{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return lines
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	items := make([]dto.ItemResponse, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, dto.ItemResponse{
			ID:        it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}
	resp := dto.OrderResponse{
		ID:          order.ID,
		Number:      order.Number,
		TableID:     order.TableID,
		Status:      string(order.Status),
		Served:      order.IsServed(),
		IsPaid:      order.IsPaid,
		TotalAmount: order.TotalAmount,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		ServedAt:    order.ServedAt,
		CompletedAt: order.CompletedAt,
	}
	if order.Payment != nil {
		resp.Payment = &dto.PaymentInfoResponse{
			Method:        string(order.Payment.Method),
			TransactionID: order.Payment.TransactionID,
			PaidAt:        order.Payment.PaidAt,
		}
	}
	return resp
}
