package checkout

import "context"

// PaymentRequest is what the gateway popup is opened with. Amount is in minor units.
type PaymentRequest struct {
	Key         string
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	Metadata    map[string]string
}

type ResultKind int

const (
	ResultSuccess ResultKind = iota + 1
	ResultClosed
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultClosed:
		return "closed"
	}
	return "unknown"
}

// PaymentResult is delivered at most once per payment.
type PaymentResult struct {
	Kind      ResultKind
	Reference string
}

// Payment is an opened (or openable) gateway handshake.
// Result yields the outcome once; Cancel releases the handshake and is safe to call repeatedly.
type Payment interface {
	Open() error
	Result() <-chan PaymentResult
	Cancel()
}

// Gateway prepares a payment. The gateway protocol itself is opaque to the controller.
type Gateway interface {
	Setup(ctx context.Context, req PaymentRequest) (Payment, error)
}
