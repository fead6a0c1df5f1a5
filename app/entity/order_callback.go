package entity

import "time"

type CallbackOutcome string

const (
	CallbackAccepted  CallbackOutcome = "accepted"
	CallbackDuplicate CallbackOutcome = "duplicate"
	CallbackRejected  CallbackOutcome = "rejected"
	CallbackBusy      CallbackOutcome = "busy"
	CallbackFailed    CallbackOutcome = "failed"
)

// OrderCallback is the audit trail of every provider notification received.
type OrderCallback struct {
	ID uint64

	Provider    string
	OrderID     *string
	PayloadJSON string
	Outcome     CallbackOutcome
	Error       *string

	CreatedAt time.Time
}
