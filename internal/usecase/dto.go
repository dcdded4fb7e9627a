package usecase

import "time"

type SyncAction string

const (
	ActionCreated  SyncAction = "created"
	ActionUpdated  SyncAction = "updated"
	ActionRefunded SyncAction = "refunded"
	ActionRejected SyncAction = "rejected"
	ActionFailed   SyncAction = "failed"
	ActionSkipped  SyncAction = "skipped"
)

type SyncOrderOutput struct {
	LogID     string     `json:"log_id"`
	OrderID   string     `json:"order_id"`
	ContactID int        `json:"contact_id"`
	LeadID    int        `json:"lead_id"`
	Action    SyncAction `json:"action"`
}

// OrderSyncedEvent is emitted once a notification reaches a terminal state.
type OrderSyncedEvent struct {
	LogID        string     `json:"log_id"`
	OrderID      string     `json:"order_id,omitempty"`
	Email        string     `json:"email,omitempty"`
	PaymentState string     `json:"payment_state,omitempty"`
	Status       string     `json:"status"`
	Action       SyncAction `json:"action"`
	ContactID    int        `json:"contact_id,omitempty"`
	LeadID       int        `json:"lead_id,omitempty"`
	Error        string     `json:"error,omitempty"`
	Attempt      int        `json:"attempt"`
	OccurredAt   time.Time  `json:"occurred_at"`
}
