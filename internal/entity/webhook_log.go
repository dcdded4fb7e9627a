package entity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookLogStatus string

const (
	WebhookLogPending WebhookLogStatus = "pending"
	WebhookLogSuccess WebhookLogStatus = "success"
	WebhookLogError   WebhookLogStatus = "error"
)

// WebhookLog is the audit record kept for every inbound notification.
type WebhookLog struct {
	ID           string           `json:"id"`
	Payload      json.RawMessage  `json:"payload"`
	Status       WebhookLogStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	OrderID      string           `json:"order_id,omitempty"`
	ContactID    int              `json:"contact_id,omitempty"`
	LeadID       int              `json:"lead_id,omitempty"`
	Attempts     int              `json:"attempts"`
	CreatedAt    time.Time        `json:"created_at"`
	ProcessedAt  *time.Time       `json:"processed_at,omitempty"`
}

// NewWebhookLog creates a pending record for a raw payload.
func NewWebhookLog(payload []byte) *WebhookLog {
	return &WebhookLog{
		ID:        uuid.New().String(),
		Payload:   append(json.RawMessage(nil), payload...),
		Status:    WebhookLogPending,
		Attempts:  1,
		CreatedAt: time.Now().UTC(),
	}
}

// WebhookLogRepository persists audit records. Implementations must make
// MarkSuccess and MarkError stamp ProcessedAt.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *WebhookLog) error
	FindByID(ctx context.Context, id string) (*WebhookLog, error)
	MarkSuccess(ctx context.Context, id, orderID string, contactID, leadID int) error
	MarkError(ctx context.Context, id, orderID, message string) error
	// BeginRetry moves an error record to pending and bumps Attempts. Any
	// other status gives ErrWebhookLogNotRetryable.
	BeginRetry(ctx context.Context, id string) error
	// ListFailed returns error records older than olderThan with fewer than maxAttempts attempts.
	ListFailed(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*WebhookLog, error)
}
