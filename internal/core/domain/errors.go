package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidationFailed     = errors.New("validation failed")
	ErrDuplicateTransaction = errors.New("order with this transaction ID already exists")
	ErrStorageUnavailable   = errors.New("database is unavailable")
	ErrGatewayUnreachable   = errors.New("payment gateway is unreachable")
	ErrGatewayTimeout       = errors.New("payment gateway timed out")
	ErrConfigurationMissing = errors.New("payment system not configured")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrOrderNotFound        = errors.New("order not found")
)

// ErrPriceMismatch is returned when the submitted amount differs from the
// catalog price. It is also a validation failure.
var ErrPriceMismatch = fmt.Errorf("%w: amount does not match catalog price", ErrValidationFailed)

// Machine-readable error codes carried in API error bodies next to the
// human message. Clients match on these, never on the message text.
const (
	CodeValidationFailed     = "validation_failed"
	CodeDuplicateTransaction = "duplicate_transaction"
	CodeStorageUnavailable   = "storage_unavailable"
)
