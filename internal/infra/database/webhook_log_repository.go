package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

const webhookLogColumns = `id, payload, status, COALESCE(error_message, ''), COALESCE(order_id, ''),
	COALESCE(contact_id, 0), COALESCE(lead_id, 0), attempts, created_at, processed_at`

const uniqueViolation = "23505"

type WebhookLogRepository struct {
	DB *sql.DB
}

func NewWebhookLogRepository(db *sql.DB) *WebhookLogRepository {
	return &WebhookLogRepository{DB: db}
}

func (r *WebhookLogRepository) Create(ctx context.Context, log *entity.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query,
		log.ID,
		string(log.Payload),
		string(log.Status),
		log.Attempts,
		log.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", entity.ErrWebhookLogExists, log.ID)
	}
	return err
}

func (r *WebhookLogRepository) FindByID(ctx context.Context, id string) (*entity.WebhookLog, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+webhookLogColumns+` FROM webhook_logs WHERE id = $1`, id)
	log, err := scanWebhookLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrWebhookLogNotFound
	}
	return log, err
}

func (r *WebhookLogRepository) MarkSuccess(ctx context.Context, id, orderID string, contactID, leadID int) error {
	query := `
		UPDATE webhook_logs
		SET status = $2, order_id = $3, contact_id = $4, lead_id = $5,
			error_message = NULL, processed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(entity.WebhookLogSuccess), nullString(orderID), contactID, leadID)
}

func (r *WebhookLogRepository) MarkError(ctx context.Context, id, orderID, message string) error {
	query := `
		UPDATE webhook_logs
		SET status = $2, order_id = COALESCE($3, order_id), error_message = $4, processed_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(entity.WebhookLogError), nullString(orderID), message)
}

func (r *WebhookLogRepository) BeginRetry(ctx context.Context, id string) error {
	query := `
		UPDATE webhook_logs
		SET status = $2, attempts = attempts + 1
		WHERE id = $1 AND status = $3
	`
	err := r.exec(ctx, query, id, string(entity.WebhookLogPending), string(entity.WebhookLogError))
	if !errors.Is(err, entity.ErrWebhookLogNotFound) {
		return err
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM webhook_logs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return entity.ErrWebhookLogNotRetryable
	}
	return entity.ErrWebhookLogNotFound
}

func (r *WebhookLogRepository) ListFailed(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entity.WebhookLog, error) {
	query := `SELECT ` + webhookLogColumns + `
		FROM webhook_logs
		WHERE status = $1 AND created_at < $2 AND attempts < $3
		ORDER BY created_at
		LIMIT $4`

	rows, err := r.DB.QueryContext(ctx, query, string(entity.WebhookLogError), olderThan, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*entity.WebhookLog
	for rows.Next() {
		log, err := scanWebhookLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *WebhookLogRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrWebhookLogNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhookLog(row rowScanner) (*entity.WebhookLog, error) {
	var (
		log         entity.WebhookLog
		payload     []byte
		status      string
		processedAt sql.NullTime
	)
	err := row.Scan(
		&log.ID,
		&payload,
		&status,
		&log.ErrorMessage,
		&log.OrderID,
		&log.ContactID,
		&log.LeadID,
		&log.Attempts,
		&log.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}
	log.Payload = payload
	log.Status = entity.WebhookLogStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		log.ProcessedAt = &t
	}
	return &log, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
