package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint would be violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput marks caller mistakes; wrap it with the detail.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyCart is returned by checkout when the cart has no items.
	ErrEmptyCart = fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	// ErrQuantityLimit is returned when a line would exceed MaxLineQuantity.
	ErrQuantityLimit = fmt.Errorf("%w: quantity exceeds %d per line", ErrInvalidInput, MaxLineQuantity)
)
