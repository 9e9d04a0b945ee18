package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrNotServed          = errors.New("order is not served yet")
	ErrInvalidItem        = errors.New("invalid order item")
	ErrInvalidPayment     = errors.New("invalid payment")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidRole        = errors.New("invalid role")
	ErrDuplicateRequest   = errors.New("request already in progress")
)
