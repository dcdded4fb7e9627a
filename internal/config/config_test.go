package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AMOCRM_SUBDOMAIN", "")
	t.Setenv("AMOCRM_PIPELINE_ID", "")
	t.Setenv("REPLAY_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "oktavachecks", cfg.ServiceName)
	assert.Equal(t, 9713218, cfg.AmoCRM.PipelineID)
	assert.Equal(t, 77419818, cfg.AmoCRM.StatusNewID)
	assert.Equal(t, 77419554, cfg.AmoCRM.StatusPaidID)
	assert.Equal(t, 143, cfg.AmoCRM.StatusLostID)
	assert.Equal(t, 986103, cfg.AmoCRM.FieldOrderNumber)
	assert.Equal(t, 30*time.Second, cfg.AmoCRM.Timeout)
	assert.False(t, cfg.ReplayEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AMOCRM_SUBDOMAIN", "infooktavaklasterru")
	t.Setenv("AMOCRM_RPS", "2.5")
	t.Setenv("AMOCRM_FIELD_REFUND_DATE", "0")
	t.Setenv("REPLAY_ENABLED", "true")
	t.Setenv("REPLAY_INTERVAL", "90s")
	t.Setenv("MAIL_PORT", "not-a-number")
	t.Setenv("AMOCRM_EVENT_TYPE_ENUMS", "Концерт=501, Лекция = 502,broken,Квест=x")

	cfg := Load()

	assert.Equal(t, "https://infooktavaklasterru.amocrm.ru/api/v4", cfg.AmoCRM.BaseURL())
	assert.Equal(t, "https://infooktavaklasterru.amocrm.ru/oauth2/access_token", cfg.AmoCRM.TokenURL())
	assert.Equal(t, 2.5, cfg.AmoCRM.RPS)
	assert.Equal(t, 0, cfg.AmoCRM.FieldRefundDate)
	assert.True(t, cfg.ReplayEnabled)
	assert.Equal(t, 90*time.Second, cfg.ReplayInterval)
	assert.Equal(t, 587, cfg.MailPort)
	assert.Equal(t, map[string]int{"Концерт": 501, "Лекция": 502}, cfg.AmoCRM.EventTypeEnums)
	assert.Empty(t, cfg.AmoCRM.PaymentStatusEnums)
}
