package payer

import (
	"errors"
	"fmt"
	"math/big"
)

var ErrFailedPayloadCreate = errors.New("failed to create PaymentPayload")

// ErrNoPaymentOptions is returned when a 402 response doesn't list any
// accepted payment requirements.
var ErrNoPaymentOptions = errors.New("no payment options available")

// ErrPaymentRequirementsMissing is returned when the selected payment
// requirements are absent.
var ErrPaymentRequirementsMissing = errors.New("payment requirements undefined")

// ErrPaymentAmountExceeded is returned when the server asks for more than
// the caller allowed.  See AmountExceededError.
var ErrPaymentAmountExceeded = errors.New("payment amount exceeds maximum allowed")

// ErrInvalidAmount is returned when an amount isn't a non-negative base-10
// integer.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrUnsupportedNetwork is returned when there's no NetworkConfig for the
// requested network.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// ErrSigningFailed is returned when the signer rejects or fails to sign
// the transfer authorization.
var ErrSigningFailed = errors.New("failed to sign payment authorization")

// ErrPaymentFailed is returned when the server answers the paid retry with
// another 402.  See PaymentFailedError.
var ErrPaymentFailed = errors.New("payment failed")

// ErrInsufficientBalance replaces any payment error reporting that the
// payer's balance is too low.
var ErrInsufficientBalance = errors.New("insufficient USDC balance to make payment")

// ErrPaymentProcessingFailed is returned when processing the payment
// failed without a usable error (e.g. a panicking signer).
var ErrPaymentProcessingFailed = errors.New("failed to process payment")

func FailedPaymentPayloadCreation(err error) error {
	return fmt.Errorf("%w: %w", ErrFailedPayloadCreate, err)
}

func UnsupportedNetwork(network string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
}

func SigningFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrSigningFailed, err)
}

// AmountExceededError carries the amount a server required and the
// ceiling the caller allowed.
type AmountExceededError struct {
	Required *big.Int
	Allowed  *big.Int
}

func (e *AmountExceededError) Error() string {
	return fmt.Sprintf("payment amount (%s) exceeds maximum allowed (%s)", e.Required, e.Allowed)
}

func (e *AmountExceededError) Unwrap() error {
	return ErrPaymentAmountExceeded
}

// PaymentFailedError carries the message a server returned when it
// refused a payment.
type PaymentFailedError struct {
	Message string
}

func (e *PaymentFailedError) Error() string {
	return "payment failed: " + e.Message
}

func (e *PaymentFailedError) Unwrap() error {
	return ErrPaymentFailed
}
