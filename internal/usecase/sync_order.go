package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
	"github.com/oktavaklaster/radario-amocrm/internal/mapping"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

// SyncOrderUseCase reconciles one Radario notification into an amoCRM contact
// and lead: validate, identify contact, identify lead, mutate, log.
type SyncOrderUseCase struct {
	Logs        entity.WebhookLogRepository
	Extractor   OrderExtractor
	Mapper      *mapping.Mapper
	CRM         CRMClient
	PaidStageID int
	// MaxAttempts caps Replay; zero means no cap.
	MaxAttempts int

	Publisher EventPublisher
	Notifier  FailureNotifier
	Metrics   SyncRecorder
	Logger    *logging.Logger

	now func() time.Time
}

func NewSyncOrderUseCase(
	logs entity.WebhookLogRepository,
	extractor OrderExtractor,
	mapper *mapping.Mapper,
	crm CRMClient,
	paidStageID int,
	logger *logging.Logger,
) *SyncOrderUseCase {
	if mapper == nil {
		mapper = mapping.NewMapper(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncOrderUseCase{
		Logs:        logs,
		Extractor:   extractor,
		Mapper:      mapper,
		CRM:         crm,
		PaidStageID: paidStageID,
		Logger:      logger,
		now:         time.Now,
	}
}

// Execute handles a raw webhook body. Malformed JSON is rejected before an
// audit record exists; every other outcome is recorded.
func (uc *SyncOrderUseCase) Execute(ctx context.Context, raw []byte) (*SyncOrderOutput, error) {
	doc, err := uc.Extractor.Decode(raw)
	if err != nil {
		uc.observe(ActionRejected, entity.WebhookLogError, time.Time{})
		return nil, &DomainError{Code: CodeInvalidJSON, Message: err.Error()}
	}

	record := entity.NewWebhookLog(raw)
	if err := uc.Logs.Create(ctx, record); err != nil {
		uc.Logger.Error("failed to create webhook log", "error", err)
		return nil, &TechnicalError{Code: CodeAuditLog, Message: "failed to record webhook", Err: err}
	}

	return uc.process(ctx, record, doc)
}

// Replay re-runs a stored notification. Records that succeeded, are being
// processed elsewhere, or have used up MaxAttempts are skipped.
func (uc *SyncOrderUseCase) Replay(ctx context.Context, logID string) (*SyncOrderOutput, error) {
	record, err := uc.Logs.FindByID(ctx, logID)
	if err != nil {
		return nil, &TechnicalError{Code: CodeAuditLog, Message: "failed to load webhook log", Err: err}
	}
	if record.Status != entity.WebhookLogError {
		return skipped(record), nil
	}
	if uc.MaxAttempts > 0 && record.Attempts >= uc.MaxAttempts {
		uc.Logger.Warn("replay attempts exhausted", "log_id", record.ID, "attempts", record.Attempts)
		return skipped(record), nil
	}

	if err := uc.Logs.BeginRetry(ctx, record.ID); err != nil {
		if errors.Is(err, entity.ErrWebhookLogNotRetryable) {
			uc.Logger.Info("replay already claimed", "log_id", record.ID)
			return skipped(record), nil
		}
		return nil, &TechnicalError{Code: CodeAuditLog, Message: "failed to start retry", Err: err}
	}
	record.Attempts++
	record.Status = entity.WebhookLogPending

	started := uc.clock()
	doc, err := uc.Extractor.Decode(record.Payload)
	if err != nil {
		uc.markError(ctx, record, nil, err.Error())
		uc.finish(ctx, record, nil, ActionRejected, 0, 0, err.Error(), started)
		return nil, &DomainError{Code: CodeInvalidJSON, Message: err.Error()}
	}

	uc.Logger.Info("replaying webhook", "log_id", record.ID, "attempt", record.Attempts)
	return uc.process(ctx, record, doc)
}

func skipped(record *entity.WebhookLog) *SyncOrderOutput {
	return &SyncOrderOutput{
		LogID:     record.ID,
		OrderID:   record.OrderID,
		ContactID: record.ContactID,
		LeadID:    record.LeadID,
		Action:    ActionSkipped,
	}
}

func (uc *SyncOrderUseCase) process(ctx context.Context, record *entity.WebhookLog, doc map[string]any) (*SyncOrderOutput, error) {
	started := uc.clock()
	logger := uc.Logger.With("log_id", record.ID)

	order, err := uc.Extractor.ExtractDocument(doc)
	if err != nil {
		var missing *entity.MissingFieldError
		if !errors.As(err, &missing) {
			uc.markError(ctx, record, nil, err.Error())
			uc.finish(ctx, record, nil, ActionFailed, 0, 0, err.Error(), started)
			return nil, classify(err)
		}
		logger.Warn("webhook rejected", "reason", missing.Error())
		uc.markError(ctx, record, nil, missing.Error())
		uc.finish(ctx, record, nil, ActionRejected, 0, 0, missing.Error(), started)
		return nil, &DomainError{Code: CodeValidation, Message: missing.Error()}
	}

	uc.Mapper.Classify(order)
	logger = logger.With("order_id", order.OrderID, "payment_state", string(order.PaymentState))

	var (
		contact *amocrm.Contact
		lead    *amocrm.Lead
		action  SyncAction
	)

	pipeline := NewPipeline().
		AddStep("identify_contact", func(ctx context.Context) error {
			var err error
			contact, err = uc.identifyContact(ctx, order)
			return err
		}).
		AddStep("identify_lead", func(ctx context.Context) error {
			var err error
			lead, err = uc.CRM.FindLeadByOrderID(ctx, order.OrderID)
			return err
		}).
		AddStep("mutate", func(ctx context.Context) error {
			var err error
			lead, action, err = uc.mutate(ctx, contact, lead, order)
			return err
		})

	if err := pipeline.Run(ctx); err != nil {
		logger.Error("order sync failed", "error", err)
		uc.markError(ctx, record, order, err.Error())
		contactID := 0
		if contact != nil {
			contactID = contact.ID
		}
		uc.finish(ctx, record, order, ActionFailed, contactID, 0, err.Error(), started)
		return nil, classify(err)
	}

	if err := uc.Logs.MarkSuccess(ctx, record.ID, order.OrderID, contact.ID, lead.ID); err != nil {
		logger.Error("failed to mark webhook log success", "error", err)
	}
	record.Status = entity.WebhookLogSuccess

	logger.Info("order synced", "action", string(action), "contact_id", contact.ID, "lead_id", lead.ID)
	uc.finish(ctx, record, order, action, contact.ID, lead.ID, "", started)

	return &SyncOrderOutput{
		LogID:     record.ID,
		OrderID:   order.OrderID,
		ContactID: contact.ID,
		LeadID:    lead.ID,
		Action:    action,
	}, nil
}

func (uc *SyncOrderUseCase) identifyContact(ctx context.Context, order *entity.Order) (*amocrm.Contact, error) {
	contact, err := uc.CRM.FindContactByEmail(ctx, order.Email)
	if err != nil || contact != nil {
		return contact, err
	}

	if order.Phone != "" {
		contact, err = uc.CRM.FindContactByPhone(ctx, order.Phone)
		if err != nil || contact != nil {
			return contact, err
		}
	}

	return uc.CRM.CreateContact(ctx, order.Email, order.CustomerName, order.Phone)
}

func (uc *SyncOrderUseCase) mutate(ctx context.Context, contact *amocrm.Contact, lead *amocrm.Lead, order *entity.Order) (*amocrm.Lead, SyncAction, error) {
	switch {
	case lead == nil:
		created, err := uc.CRM.CreateLead(ctx, contact.ID, order)
		if err != nil {
			return nil, "", err
		}
		if created == nil {
			return nil, "", fmt.Errorf("lead for order %s was not created", order.OrderID)
		}
		return created, ActionCreated, nil
	case order.IsRefunded():
		refunded, err := uc.CRM.UpdateLeadForRefund(ctx, lead.ID, order)
		return refunded, ActionRefunded, err
	default:
		var stage *int
		if order.PaymentState == entity.PaymentPaid && uc.PaidStageID != 0 {
			paid := uc.PaidStageID
			stage = &paid
		}
		updated, err := uc.CRM.UpdateLead(ctx, lead.ID, order, stage)
		return updated, ActionUpdated, err
	}
}

func (uc *SyncOrderUseCase) markError(ctx context.Context, record *entity.WebhookLog, order *entity.Order, message string) {
	orderID := ""
	if order != nil {
		orderID = order.OrderID
	}
	record.Status = entity.WebhookLogError
	record.ErrorMessage = message
	if err := uc.Logs.MarkError(ctx, record.ID, orderID, message); err != nil {
		uc.Logger.Error("failed to mark webhook log error", "log_id", record.ID, "error", err)
	}
}

// finish runs the side effects of a terminal state. None of them can change
// the outcome returned to the caller.
func (uc *SyncOrderUseCase) finish(ctx context.Context, record *entity.WebhookLog, order *entity.Order, action SyncAction, contactID, leadID int, message string, started time.Time) {
	uc.observe(action, record.Status, started)

	event := OrderSyncedEvent{
		LogID:      record.ID,
		Status:     string(record.Status),
		Action:     action,
		ContactID:  contactID,
		LeadID:     leadID,
		Error:      message,
		Attempt:    record.Attempts,
		OccurredAt: uc.clock().UTC(),
	}
	if order != nil {
		event.OrderID = order.OrderID
		event.Email = order.Email
		event.PaymentState = string(order.PaymentState)
	}

	if uc.Publisher != nil {
		if err := uc.Publisher.PublishOrderSynced(ctx, event); err != nil {
			uc.Logger.Warn("failed to publish order.synced", "log_id", record.ID, "error", err)
		}
	}

	if record.Status == entity.WebhookLogError && uc.Notifier != nil {
		if err := uc.Notifier.NotifySyncFailure(ctx, event); err != nil {
			uc.Logger.Warn("failed to notify operator", "log_id", record.ID, "error", err)
		}
	}
}

func (uc *SyncOrderUseCase) observe(action SyncAction, status entity.WebhookLogStatus, started time.Time) {
	if uc.Metrics == nil {
		return
	}
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = uc.clock().Sub(started)
	}
	uc.Metrics.ObserveSync(string(action), string(status), elapsed)
}

func (uc *SyncOrderUseCase) clock() time.Time {
	if uc.now == nil {
		return time.Now()
	}
	return uc.now()
}
