package model

import (
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
)

// Transition names a lifecycle action on an order.
type Transition string

const (
	TransitionPlace      Transition = "place"
	TransitionServe      Transition = "serve"
	TransitionPay        Transition = "pay"
	TransitionComplete   Transition = "complete"
	TransitionAddItems   Transition = "add_items"
	TransitionUpdateItem Transition = "update_item"
	TransitionDelete     Transition = "delete"
)

// Check validates t against the current snapshot. It returns
// ErrInvalidTransition for illegal moves. Repeating an already applied
// serve, pay or complete is legal and is expected to be a no-op downstream.
func (o Order) Check(t Transition) error {
	switch t {
	case TransitionServe:
		if o.IsCompleted() {
			return domainErrors.ErrInvalidTransition
		}
	case TransitionPay:
		if o.IsCompleted() && !o.IsPaid {
			return domainErrors.ErrInvalidTransition
		}
	case TransitionComplete:
		if o.IsCompleted() {
			return nil
		}
		if !o.IsServed() {
			return domainErrors.ErrNotServed
		}
		if !o.IsPaid {
			return domainErrors.ErrInvalidTransition
		}
	case TransitionUpdateItem:
		if o.IsCompleted() {
			return domainErrors.ErrInvalidTransition
		}
	case TransitionDelete:
		if o.IsCompleted() {
			return domainErrors.ErrInvalidTransition
		}
	case TransitionAddItems, TransitionPlace:
	default:
		return domainErrors.ErrInvalidTransition
	}
	return nil
}

// RevertsOnAdd reports whether adding items sends the order back to the
// kitchen queue.
func (o Order) RevertsOnAdd() bool {
	return o.IsServed()
}
