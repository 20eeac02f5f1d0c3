package services

import (
	"errors"
	"fmt"

	"paypal-checkout-service/models"
)

// ErrRefundExceedsAmount rejects refunds beyond the refundable remainder.
var ErrRefundExceedsAmount = errors.New("refund amount exceeds the refundable remainder")

// GatewayError wraps a failed remote call with a message safe to show the
// customer. The underlying error keeps the processor detail for logs.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// HardDeclineError signals a terminal decline: the customer must supply a
// different payment method. Distinguished from UnmappedStateError for UX.
type HardDeclineError struct {
	Intent      string
	RemoteState string
}

func (e *HardDeclineError) Error() string {
	return fmt.Sprintf("could not %s the payment: remote state %q", e.Intent, e.RemoteState)
}

// UnmappedStateError is raised when PayPal reports a payment status outside
// the state-mapping table. It indicates a product or configuration gap, not a
// transient failure.
type UnmappedStateError struct {
	Intent      string
	RemoteState string
}

func (e *UnmappedStateError) Error() string {
	return fmt.Sprintf("the PayPal payment is in a state we cannot handle (intent %q, status %q)", e.Intent, e.RemoteState)
}

// ConsistencyError is an amount, currency or status mismatch between the
// local order and the remote one. Reconciliation aborts with no writes.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }

// InvalidTransitionError is a programming error: an operation was invoked on
// a payment outside its required precondition state.
type InvalidTransitionError struct {
	State    models.PaymentState
	Required []models.PaymentState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("payment is in state %q, operation requires one of %v", e.State, e.Required)
}
