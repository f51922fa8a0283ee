package domain

import "github.com/shopspring/decimal"

type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationPending VerificationStatus = "pending"
	VerificationError   VerificationStatus = "error"
)

// Verification is the outcome of asking the gateway about a payment reference.
// Amount is in major units.
type Verification struct {
	Status        VerificationStatus
	Reference     string
	Amount        *decimal.Decimal
	GatewayStatus string
}

func (v Verification) Verified() bool {
	return v.Status == VerificationSuccess
}
