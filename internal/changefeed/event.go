package changefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// Tables published by the store.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// EventType is the row operation that produced an event.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event is a single row change. New is empty for deletes, Old for inserts.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	New   json.RawMessage `json:"new"`
	Old   json.RawMessage `json:"old"`
}

var errEmptyRow = errors.New("event carries no row")

// ParseEvent decodes a raw notification payload.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" {
		return Event{}, errors.New("change event without table")
	}
	switch ev.Type {
	case Insert, Update, Delete:
	default:
		return Event{}, fmt.Errorf("unknown change type %q", ev.Type)
	}
	return ev, nil
}

// row returns the image that describes the row after the change, or before
// it for deletes.
func (e Event) row() (json.RawMessage, error) {
	raw := e.New
	if e.Type == Delete {
		raw = e.Old
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errEmptyRow
	}
	return raw, nil
}

// DecodeItem converts an order_items row.
func (e Event) DecodeItem() (model.ItemRow, error) {
	var item model.ItemRow
	if e.Table != TableOrderItems {
		return item, fmt.Errorf("event for %q is not an item", e.Table)
	}
	raw, err := e.row()
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode item row: %w", err)
	}
	if item.OrderID == "" {
		return item, errors.New("item row without order id")
	}
	return item, nil
}

// DecodeOrder converts an orders row.
func (e Event) DecodeOrder() (model.OrderRow, error) {
	var order model.OrderRow
	if e.Table != TableOrders {
		return order, fmt.Errorf("event for %q is not an order", e.Table)
	}
	raw, err := e.row()
	if err != nil {
		return order, err
	}
	if err := json.Unmarshal(raw, &order); err != nil {
		return order, fmt.Errorf("decode order row: %w", err)
	}
	if order.ID == "" {
		return order, errors.New("order row without id")
	}
	return order, nil
}
