package services

import "errors"

var (
	ErrSessionNotAvailable = errors.New("session is not available for booking")
	ErrSessionFull         = errors.New("session is full")
	ErrDuplicateBooking    = errors.New("you already have an active booking for this session")
	ErrSessionNotFound     = errors.New("session not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrMessageNotFound     = errors.New("contact message not found")
	ErrInvalidTransition   = errors.New("booking cannot change to the requested status")
	ErrCancelTooLate       = errors.New("booking can no longer be cancelled")
	ErrInvalidSettings     = errors.New("invalid academy settings")
	ErrInvalidInput        = errors.New("invalid input")
)
