package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod describes how an order was settled.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
)

// Valid reports whether m is supported.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard:
		return true
	}
	return false
}

// Payment is a persisted payment record. There is at most one per order.
type Payment struct {
	ID            int64           `json:"id"`
	OrderID       string          `json:"orderId"`
	Method        PaymentMethod   `json:"method"`
	TransactionID string          `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paidAt"`
}

// PaymentRequest describes a settled payment. A zero Amount means the order
// total.
type PaymentRequest struct {
	Method        PaymentMethod
	TransactionID string
	Amount        decimal.Decimal
}

// PaymentIntentStatus is the gateway-side state of a QR payment.
type PaymentIntentStatus string

const (
	PaymentIntentPending PaymentIntentStatus = "pending"
	PaymentIntentPaid    PaymentIntentStatus = "paid"
	PaymentIntentFailed  PaymentIntentStatus = "failed"
	PaymentIntentExpired PaymentIntentStatus = "expired"
)

// Final reports whether the gateway will not change the status again.
func (s PaymentIntentStatus) Final() bool {
	return s == PaymentIntentPaid || s == PaymentIntentFailed || s == PaymentIntentExpired
}

// PaymentIntent tracks a QR payment request awaiting gateway confirmation.
type PaymentIntent struct {
	ID         string              `json:"id"`
	OrderID    string              `json:"orderId"`
	GatewayRef string              `json:"gatewayRef"`
	QRPayload  string              `json:"qrPayload"`
	Amount     decimal.Decimal     `json:"amount"`
	Status     PaymentIntentStatus `json:"status"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// GatewayPayment is the payment gateway's view of a request.
type GatewayPayment struct {
	Reference     string
	QRPayload     string
	Status        PaymentIntentStatus
	TransactionID string
}
