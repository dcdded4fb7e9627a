package usecase

import (
	"context"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
)

type OrderExtractor interface {
	Decode(raw []byte) (map[string]any, error)
	ExtractDocument(doc map[string]any) (*entity.Order, error)
}

type CRMClient interface {
	FindContactByEmail(ctx context.Context, email string) (*amocrm.Contact, error)
	FindContactByPhone(ctx context.Context, phone string) (*amocrm.Contact, error)
	CreateContact(ctx context.Context, email, name, phone string) (*amocrm.Contact, error)
	FindLeadByOrderID(ctx context.Context, orderID string) (*amocrm.Lead, error)
	CreateLead(ctx context.Context, contactID int, order *entity.Order) (*amocrm.Lead, error)
	UpdateLead(ctx context.Context, leadID int, order *entity.Order, targetStage *int) (*amocrm.Lead, error)
	UpdateLeadForRefund(ctx context.Context, leadID int, order *entity.Order) (*amocrm.Lead, error)
}

type EventPublisher interface {
	PublishOrderSynced(ctx context.Context, event OrderSyncedEvent) error
}

type FailureNotifier interface {
	NotifySyncFailure(ctx context.Context, event OrderSyncedEvent) error
}

type SyncRecorder interface {
	ObserveSync(action, status string, elapsed time.Duration)
}
