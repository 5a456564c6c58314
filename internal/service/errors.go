package service

import "errors"

var (
	// IllegalTransitionError means an operation was invoked in a phase it is
	// not valid in (submit while busy, retry without a print error, ...).
	IllegalTransitionError = errors.New("illegal transition of checkout phase")

	// ErrSessionCompleted means the session already reached its terminal
	// phase and accepts no further operations.
	ErrSessionCompleted = errors.New("checkout session is already completed")
)

// Operator-facing messages for the recoverable failure kinds.
const (
	msgCartUnavailable    = "cart unavailable: no open order could be resolved for this table"
	msgGatewayUnreachable = "payment gateway unreachable, nothing was charged"
	msgPrintFailed        = "receipt printing failed, payment is captured; retry or skip"
	msgFiscalUnavailable  = "fiscal signature device is not ready"
)
