package dto

import "github.com/polkiloo/orderboard/internal/domain/model"

// OpenAlertRequest is the data a tapped push notification carries back.
type OpenAlertRequest struct {
	OrderID string `json:"orderId"`
	Type    string `json:"type"`
}

// OpenAlertResponse returns the opened order and the alerts it closed.
type OpenAlertResponse struct {
	Order        OrderResponse `json:"order"`
	Acknowledged []model.Alert `json:"acknowledged"`
}
