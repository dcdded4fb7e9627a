package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
)

type MockWebhookLogRepository struct {
	mock.Mock
}

func (m *MockWebhookLogRepository) Create(ctx context.Context, log *entity.WebhookLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockWebhookLogRepository) FindByID(ctx context.Context, id string) (*entity.WebhookLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookLog), args.Error(1)
}

func (m *MockWebhookLogRepository) MarkSuccess(ctx context.Context, id, orderID string, contactID, leadID int) error {
	return m.Called(ctx, id, orderID, contactID, leadID).Error(0)
}

func (m *MockWebhookLogRepository) MarkError(ctx context.Context, id, orderID, message string) error {
	return m.Called(ctx, id, orderID, message).Error(0)
}

func (m *MockWebhookLogRepository) BeginRetry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWebhookLogRepository) ListFailed(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entity.WebhookLog, error) {
	args := m.Called(ctx, olderThan, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.WebhookLog), args.Error(1)
}

type MockCRMClient struct {
	mock.Mock
}

func (m *MockCRMClient) FindContactByEmail(ctx context.Context, email string) (*amocrm.Contact, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Contact), args.Error(1)
}

func (m *MockCRMClient) FindContactByPhone(ctx context.Context, phone string) (*amocrm.Contact, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Contact), args.Error(1)
}

func (m *MockCRMClient) CreateContact(ctx context.Context, email, name, phone string) (*amocrm.Contact, error) {
	args := m.Called(ctx, email, name, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Contact), args.Error(1)
}

func (m *MockCRMClient) FindLeadByOrderID(ctx context.Context, orderID string) (*amocrm.Lead, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Lead), args.Error(1)
}

func (m *MockCRMClient) CreateLead(ctx context.Context, contactID int, order *entity.Order) (*amocrm.Lead, error) {
	args := m.Called(ctx, contactID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Lead), args.Error(1)
}

func (m *MockCRMClient) UpdateLead(ctx context.Context, leadID int, order *entity.Order, targetStage *int) (*amocrm.Lead, error) {
	args := m.Called(ctx, leadID, order, targetStage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Lead), args.Error(1)
}

func (m *MockCRMClient) UpdateLeadForRefund(ctx context.Context, leadID int, order *entity.Order) (*amocrm.Lead, error) {
	args := m.Called(ctx, leadID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amocrm.Lead), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderSynced(ctx context.Context, event OrderSyncedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifySyncFailure(ctx context.Context, event OrderSyncedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockSyncRecorder struct {
	mock.Mock
}

func (m *MockSyncRecorder) ObserveSync(action, status string, elapsed time.Duration) {
	m.Called(action, status, elapsed)
}
