package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/radario"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

const paidStage = 77419554

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type syncFixture struct {
	logs      *MockWebhookLogRepository
	crm       *MockCRMClient
	publisher *MockPublisher
	notifier  *MockNotifier
	uc        *SyncOrderUseCase
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		logs:      new(MockWebhookLogRepository),
		crm:       new(MockCRMClient),
		publisher: new(MockPublisher),
		notifier:  new(MockNotifier),
	}
	f.uc = NewSyncOrderUseCase(
		f.logs,
		radario.NewExtractor(func() time.Time { return fixedNow }),
		mapping.NewMapper(nil),
		f.crm,
		paidStage,
		logging.NewWithWriter(io.Discard, "error"),
	)
	f.uc.Publisher = f.publisher
	f.uc.Notifier = f.notifier
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func (f *syncFixture) assertExpectations(t *testing.T) {
	f.logs.AssertExpectations(t)
	f.crm.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func orderWith(fn func(o *entity.Order) bool) any {
	return mock.MatchedBy(fn)
}

func eventWith(status string, action SyncAction) any {
	return mock.MatchedBy(func(e OrderSyncedEvent) bool {
		return e.Status == status && e.Action == action
	})
}

const paidPayload = `{"Id":"ORD-1","Email":"a@b.com","Status":"Paid","PaymentSystemStatus":"Paid","Amount":1500.00,"Event":{"Title":"Мастер-класс"}}`

func TestSyncOrderCreatesContactAndLead(t *testing.T) {
	f := newSyncFixture()
	var logID string

	f.logs.On("Create", mock.Anything, mock.AnythingOfType("*entity.WebhookLog")).
		Run(func(args mock.Arguments) { logID = args.Get(1).(*entity.WebhookLog).ID }).
		Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(nil, nil)
	f.crm.On("CreateContact", mock.Anything, "a@b.com", "A", "").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(nil, nil)
	f.crm.On("CreateLead", mock.Anything, 10, orderWith(func(o *entity.Order) bool {
		return o.OrderID == "ORD-1" &&
			o.EventType == entity.EventMasterClass &&
			o.PaymentState == entity.PaymentPaid &&
			o.AmountMinor == 150000
	})).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 10, 20).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, eventWith("success", ActionCreated)).Return(nil)

	out, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	require.NoError(t, err)
	assert.Equal(t, logID, out.LogID)
	assert.Equal(t, 10, out.ContactID)
	assert.Equal(t, 20, out.LeadID)
	assert.Equal(t, ActionCreated, out.Action)
	f.crm.AssertNotCalled(t, "FindContactByPhone", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderUpdatesExistingLeadToPaidStage(t *testing.T) {
	f := newSyncFixture()

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(&amocrm.Lead{ID: 20}, nil)
	f.crm.On("UpdateLead", mock.Anything, 20, mock.Anything, mock.MatchedBy(func(stage *int) bool {
		return stage != nil && *stage == paidStage
	})).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 10, 20).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, eventWith("success", ActionUpdated)).Return(nil)

	out, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, out.Action)
	f.crm.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.crm.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderPendingUpdateKeepsStage(t *testing.T) {
	f := newSyncFixture()
	payload := `{"Id":"ORD-1","Email":"a@b.com","Status":"Pending","Event":{"Title":"Лекция"}}`

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(&amocrm.Lead{ID: 20}, nil)
	f.crm.On("UpdateLead", mock.Anything, 20, mock.Anything, (*int)(nil)).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 10, 20).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.Execute(context.Background(), []byte(payload))

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestSyncOrderRefundsExistingLead(t *testing.T) {
	f := newSyncFixture()
	payload := `{"Id":"ORD-1","Email":"a@b.com","Status":"Refunded","Event":{"Title":"Концерт"}}`

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(&amocrm.Lead{ID: 20}, nil)
	f.crm.On("UpdateLeadForRefund", mock.Anything, 20, orderWith(func(o *entity.Order) bool {
		return o.IsRefunded() && o.RefundDate != nil && o.RefundDate.Equal(fixedNow)
	})).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 10, 20).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, eventWith("success", ActionRefunded)).Return(nil)

	out, err := f.uc.Execute(context.Background(), []byte(payload))

	require.NoError(t, err)
	assert.Equal(t, ActionRefunded, out.Action)
	f.crm.AssertNotCalled(t, "UpdateLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderFindsContactByPhone(t *testing.T) {
	f := newSyncFixture()
	payload := `{"Id":"ORD-1","Email":"a@b.com","Phone":"+79001234567","Status":"Paid","EventId":3}`

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(nil, nil)
	f.crm.On("FindContactByPhone", mock.Anything, "+79001234567").Return(&amocrm.Contact{ID: 11}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(nil, nil)
	f.crm.On("CreateLead", mock.Anything, 11, mock.Anything).Return(&amocrm.Lead{ID: 21}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 11, 21).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.Execute(context.Background(), []byte(payload))

	require.NoError(t, err)
	f.crm.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderMissingEmail(t *testing.T) {
	f := newSyncFixture()
	payload := `{"Id":"ORD-1","Status":"Paid","Event":{"Title":"x"}}`

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.logs.On("MarkError", mock.Anything, mock.Anything, "", "No email provided").Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, eventWith("error", ActionRejected)).Return(nil)
	f.notifier.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Execute(context.Background(), []byte(payload))

	assert.Nil(t, out)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeValidation, domainErr.Code)
	assert.Equal(t, "No email provided", domainErr.Message)
	assert.Empty(t, f.crm.Calls)
	f.assertExpectations(t)
}

func TestSyncOrderMissingSeveralFields(t *testing.T) {
	f := newSyncFixture()

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.logs.On("MarkError", mock.Anything, mock.Anything, "", "Missing required fields: id, status, event").Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.Execute(context.Background(), []byte(`{"model":{"Email":"a@b.com"}}`))

	assert.True(t, IsDomainError(err))
	f.assertExpectations(t)
}

func TestSyncOrderMalformedJSONWritesNoAudit(t *testing.T) {
	f := newSyncFixture()

	_, err := f.uc.Execute(context.Background(), []byte(`{"model":`))

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeInvalidJSON, domainErr.Code)
	assert.Empty(t, f.logs.Calls)
	assert.Empty(t, f.crm.Calls)
}

func TestSyncOrderAuditCreateFailureSkipsCRM(t *testing.T) {
	f := newSyncFixture()
	f.logs.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	var technicalErr *TechnicalError
	require.ErrorAs(t, err, &technicalErr)
	assert.Equal(t, CodeAuditLog, technicalErr.Code)
	assert.Empty(t, f.crm.Calls)
	assert.Empty(t, f.publisher.Calls)
}

func TestSyncOrderCRMFailureMarksError(t *testing.T) {
	f := newSyncFixture()
	apiErr := &amocrm.APIError{Method: "POST", Path: "/leads", StatusCode: 400, Body: "bad field"}

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(nil, nil)
	f.crm.On("CreateLead", mock.Anything, 10, mock.Anything).Return(nil, apiErr)
	f.logs.On("MarkError", mock.Anything, mock.Anything, "ORD-1", mock.MatchedBy(func(msg string) bool {
		return msg == "mutate: "+apiErr.Error()
	})).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.MatchedBy(func(e OrderSyncedEvent) bool {
		return e.Status == "error" && e.Action == ActionFailed && e.ContactID == 10 && e.OrderID == "ORD-1"
	})).Return(nil)
	f.notifier.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	assert.Nil(t, out)
	var technicalErr *TechnicalError
	require.ErrorAs(t, err, &technicalErr)
	assert.Equal(t, CodeCRMAPI, technicalErr.Code)
	assert.ErrorIs(t, err, apiErr)
	f.logs.AssertNotCalled(t, "MarkSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderAuthFailure(t *testing.T) {
	f := newSyncFixture()

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(nil, &amocrm.AuthError{})
	f.logs.On("MarkError", mock.Anything, mock.Anything, "ORD-1", mock.Anything).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(nil)

	_, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	var technicalErr *TechnicalError
	require.ErrorAs(t, err, &technicalErr)
	assert.Equal(t, CodeCRMAuth, technicalErr.Code)
	f.crm.AssertNotCalled(t, "FindLeadByOrderID", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSyncOrderSideEffectFailuresDoNotChangeOutcome(t *testing.T) {
	f := newSyncFixture()
	metrics := new(MockSyncRecorder)
	f.uc.Metrics = metrics

	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(&amocrm.Lead{ID: 20}, nil)
	f.crm.On("UpdateLead", mock.Anything, 20, mock.Anything, mock.Anything).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, mock.Anything, "ORD-1", 10, 20).Return(errors.New("db down"))
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	metrics.On("ObserveSync", "updated", "success", time.Duration(0)).Return()

	out, err := f.uc.Execute(context.Background(), []byte(paidPayload))

	require.NoError(t, err)
	assert.Equal(t, 20, out.LeadID)
	metrics.AssertExpectations(t)
	f.assertExpectations(t)
}

func TestReplaySkipsSuccessfulRecord(t *testing.T) {
	f := newSyncFixture()
	f.logs.On("FindByID", mock.Anything, "log-1").Return(&entity.WebhookLog{
		ID: "log-1", Status: entity.WebhookLogSuccess, OrderID: "ORD-1", ContactID: 10, LeadID: 20,
	}, nil)

	out, err := f.uc.Replay(context.Background(), "log-1")

	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Equal(t, 20, out.LeadID)
	f.logs.AssertNotCalled(t, "BeginRetry", mock.Anything, mock.Anything)
	assert.Empty(t, f.crm.Calls)
}

func TestReplayReprocessesFailedRecord(t *testing.T) {
	f := newSyncFixture()
	f.logs.On("FindByID", mock.Anything, "log-2").Return(&entity.WebhookLog{
		ID: "log-2", Status: entity.WebhookLogError, Payload: []byte(paidPayload), Attempts: 1,
	}, nil)
	f.logs.On("BeginRetry", mock.Anything, "log-2").Return(nil)
	f.crm.On("FindContactByEmail", mock.Anything, "a@b.com").Return(&amocrm.Contact{ID: 10}, nil)
	f.crm.On("FindLeadByOrderID", mock.Anything, "ORD-1").Return(&amocrm.Lead{ID: 20}, nil)
	f.crm.On("UpdateLead", mock.Anything, 20, mock.Anything, mock.Anything).Return(&amocrm.Lead{ID: 20}, nil)
	f.logs.On("MarkSuccess", mock.Anything, "log-2", "ORD-1", 10, 20).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, mock.MatchedBy(func(e OrderSyncedEvent) bool {
		return e.Attempt == 2 && e.Status == "success"
	})).Return(nil)

	out, err := f.uc.Replay(context.Background(), "log-2")

	require.NoError(t, err)
	assert.Equal(t, "log-2", out.LogID)
	f.logs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestReplayUnknownRecord(t *testing.T) {
	f := newSyncFixture()
	f.logs.On("FindByID", mock.Anything, "missing").Return(nil, entity.ErrWebhookLogNotFound)

	_, err := f.uc.Replay(context.Background(), "missing")

	assert.True(t, IsTechnicalError(err))
	assert.ErrorIs(t, err, entity.ErrWebhookLogNotFound)
}

func TestReplaySkipsRecordsNotAwaitingRetry(t *testing.T) {
	tests := []struct {
		name   string
		record *entity.WebhookLog
	}{
		{"in flight", &entity.WebhookLog{ID: "log-3", Status: entity.WebhookLogPending, Attempts: 1}},
		{"attempts exhausted", &entity.WebhookLog{ID: "log-3", Status: entity.WebhookLogError, Attempts: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture()
			f.uc.MaxAttempts = 3
			f.logs.On("FindByID", mock.Anything, "log-3").Return(tt.record, nil)

			out, err := f.uc.Replay(context.Background(), "log-3")

			require.NoError(t, err)
			assert.Equal(t, ActionSkipped, out.Action)
			f.logs.AssertNotCalled(t, "BeginRetry", mock.Anything, mock.Anything)
			assert.Empty(t, f.crm.Calls)
		})
	}
}

func TestReplaySkipsWhenAnotherWorkerClaimedRecord(t *testing.T) {
	f := newSyncFixture()
	f.logs.On("FindByID", mock.Anything, "log-4").Return(&entity.WebhookLog{
		ID: "log-4", Status: entity.WebhookLogError, Payload: []byte(paidPayload), Attempts: 1,
	}, nil)
	f.logs.On("BeginRetry", mock.Anything, "log-4").Return(entity.ErrWebhookLogNotRetryable)

	out, err := f.uc.Replay(context.Background(), "log-4")

	require.NoError(t, err)
	assert.Equal(t, ActionSkipped, out.Action)
	assert.Empty(t, f.crm.Calls)
	f.logs.AssertExpectations(t)
}

func TestReplayUndecodablePayloadReportsFailure(t *testing.T) {
	f := newSyncFixture()
	metrics := new(MockSyncRecorder)
	f.uc.Metrics = metrics

	f.logs.On("FindByID", mock.Anything, "log-5").Return(&entity.WebhookLog{
		ID: "log-5", Status: entity.WebhookLogError, Payload: []byte(`[1,2]`), Attempts: 1,
	}, nil)
	f.logs.On("BeginRetry", mock.Anything, "log-5").Return(nil)
	f.logs.On("MarkError", mock.Anything, "log-5", "", mock.Anything).Return(nil)
	f.publisher.On("PublishOrderSynced", mock.Anything, eventWith("error", ActionRejected)).Return(nil)
	f.notifier.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(nil)
	metrics.On("ObserveSync", "rejected", "error", time.Duration(0)).Return()

	_, err := f.uc.Replay(context.Background(), "log-5")

	assert.True(t, IsDomainError(err))
	assert.Empty(t, f.crm.Calls)
	metrics.AssertExpectations(t)
	f.assertExpectations(t)
}
