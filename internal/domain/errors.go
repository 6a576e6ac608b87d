package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrSlotConflict      = errors.New("time slot is already booked")
	ErrInsufficientStock = errors.New("insufficient equipment stock")
	ErrEquipmentNotFound = errors.New("equipment not found")
)

var (
	ErrAlreadyPaid      = errors.New("booking is already paid")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingCancelled = errors.New("booking is cancelled")
)

var (
	ErrGateway     = errors.New("payment gateway error")
	ErrPersistence = errors.New("persistence error")
)

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrGateway) || errors.Is(err, ErrPersistence)
}
