package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is the payload of POST /api/orders/:id/payments.
type PaymentRequest struct {
	Method        string          `json:"method"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}

// IntentResponse describes a QR payment awaiting confirmation.
type IntentResponse struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	QRPayload string          `json:"qrPayload"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}
