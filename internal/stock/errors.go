package stock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is a caller error, not a stock shortage.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	ErrDonationNotFound = errors.New("donation not found")

	// ErrNotGift rejects Deliver calls against non-birthday-gift donations.
	ErrNotGift = errors.New("donation is not a birthday gift")
)

// InsufficientStockError reports a reservation that would drive the
// donation's remaining quantity below zero.
type InsufficientStockError struct {
	DonationID uint
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for donation %d: available %d, requested %d", e.DonationID, e.Available, e.Requested)
}

// AlreadyDeliveredError reports a second delivery attempt for a gift.
type AlreadyDeliveredError struct {
	DonationID uint
}

func (e *AlreadyDeliveredError) Error() string {
	return fmt.Sprintf("birthday gift %d has already been delivered", e.DonationID)
}

// WrongRecipientError reports a delivery attempt naming a child other than
// the gift's designated recipient.
type WrongRecipientError struct {
	DonationID  uint
	ChildID     uint
	RecipientID uint
}

func (e *WrongRecipientError) Error() string {
	return fmt.Sprintf("child %d is not the recipient of birthday gift %d", e.ChildID, e.DonationID)
}
