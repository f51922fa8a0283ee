package domain

// OrderStatus is our own type for statuses to avoid "magic strings".
type OrderStatus string

const (
	StatusPendingVerification OrderStatus = "pending_verification"
	StatusCompleted           OrderStatus = "completed"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPendingVerification: {StatusCompleted: true},
	StatusCompleted:           {},
}

// ParseStatus accepts an empty string as the default "completed".
func ParseStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case "":
		return StatusCompleted, true
	case StatusPendingVerification, StatusCompleted:
		return OrderStatus(s), true
	}
	return "", false
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}
