package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
)

const webhookLogBucket = "webhook_logs"

var errNotApplicable = errors.New("change not applicable")

// BoltWebhookLogStore keeps audit records in a local BoltDB file. It serves
// single-instance deployments without Postgres.
type BoltWebhookLogStore struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltWebhookLogStore(path string) (*BoltWebhookLogStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(webhookLogBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltWebhookLogStore{db: db, now: time.Now}, nil
}

func (s *BoltWebhookLogStore) Close() error {
	return s.db.Close()
}

func (s *BoltWebhookLogStore) Create(_ context.Context, log *entity.WebhookLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(webhookLogBucket))
		if b.Get([]byte(log.ID)) != nil {
			return fmt.Errorf("%w: %s", entity.ErrWebhookLogExists, log.ID)
		}
		return b.Put([]byte(log.ID), data)
	})
}

func (s *BoltWebhookLogStore) FindByID(_ context.Context, id string) (*entity.WebhookLog, error) {
	var log entity.WebhookLog
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(webhookLogBucket)).Get([]byte(id))
		if v == nil {
			return entity.ErrWebhookLogNotFound
		}
		return json.Unmarshal(v, &log)
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *BoltWebhookLogStore) MarkSuccess(_ context.Context, id, orderID string, contactID, leadID int) error {
	return s.modify(id, func(log *entity.WebhookLog) bool {
		now := s.now().UTC()
		log.Status = entity.WebhookLogSuccess
		log.OrderID = orderID
		log.ContactID = contactID
		log.LeadID = leadID
		log.ErrorMessage = ""
		log.ProcessedAt = &now
		return true
	})
}

func (s *BoltWebhookLogStore) MarkError(_ context.Context, id, orderID, message string) error {
	return s.modify(id, func(log *entity.WebhookLog) bool {
		now := s.now().UTC()
		log.Status = entity.WebhookLogError
		if orderID != "" {
			log.OrderID = orderID
		}
		log.ErrorMessage = message
		log.ProcessedAt = &now
		return true
	})
}

func (s *BoltWebhookLogStore) BeginRetry(_ context.Context, id string) error {
	err := s.modify(id, func(log *entity.WebhookLog) bool {
		if log.Status != entity.WebhookLogError {
			return false
		}
		log.Status = entity.WebhookLogPending
		log.Attempts++
		return true
	})
	if errors.Is(err, errNotApplicable) {
		return entity.ErrWebhookLogNotRetryable
	}
	return err
}

func (s *BoltWebhookLogStore) ListFailed(_ context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entity.WebhookLog, error) {
	var logs []*entity.WebhookLog
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(webhookLogBucket)).ForEach(func(_, v []byte) error {
			var log entity.WebhookLog
			if err := json.Unmarshal(v, &log); err != nil {
				return err
			}
			if log.Status == entity.WebhookLogError && log.CreatedAt.Before(olderThan) && log.Attempts < maxAttempts {
				logs = append(logs, &log)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.Before(logs[j].CreatedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// modify loads, changes and stores one record in a single transaction. fn
// returning false leaves the record untouched and gives errNotApplicable.
func (s *BoltWebhookLogStore) modify(id string, fn func(log *entity.WebhookLog) bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(webhookLogBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return entity.ErrWebhookLogNotFound
		}

		var log entity.WebhookLog
		if err := json.Unmarshal(v, &log); err != nil {
			return err
		}
		if !fn(&log) {
			return errNotApplicable
		}

		data, err := json.Marshal(&log)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}
