package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	ServiceName string
	LogLevel    string

	DatabaseURL string
	BoltPath    string

	RedisAddr     string
	RedisPassword string

	AMQPURL string

	AmoCRM AmoCRMConfig

	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string
	MailAlertTo  string

	ReplayEnabled     bool
	ReplayInterval    time.Duration
	ReplayMinAge      time.Duration
	ReplayMaxAttempts int
}

// AmoCRMConfig groups the CRM account, pipeline and custom field settings.
type AmoCRMConfig struct {
	Subdomain    string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccessToken  string
	RefreshToken string
	Timeout      time.Duration
	RPS          float64

	PipelineID   int
	StatusNewID  int
	StatusPaidID int
	StatusLostID int

	FieldOrderNumber   int
	FieldOrderRef      int
	FieldEventType     int
	FieldPaymentStatus int
	FieldDescription   int
	FieldTicketsCount  int
	FieldEventDate     int
	FieldPaymentDate   int
	FieldRefundDate    int

	// Enum ids keyed by canonical label, e.g. "Концерт=1234,Лекция=1235".
	EventTypeEnums            map[string]int
	PaymentStatusEnums        map[string]int
	EventTypeFallbackEnum     int
	PaymentStatusFallbackEnum int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "oktavachecks"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		BoltPath:    getEnv("BOLT_PATH", "webhook_logs.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AMQPURL: getEnv("AMQP_URL", ""),

		AmoCRM: AmoCRMConfig{
			Subdomain:    getEnv("AMOCRM_SUBDOMAIN", ""),
			ClientID:     getEnv("AMOCRM_CLIENT_ID", ""),
			ClientSecret: getEnv("AMOCRM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("AMOCRM_REDIRECT_URI", ""),
			AccessToken:  getEnv("AMOCRM_ACCESS_TOKEN", ""),
			RefreshToken: getEnv("AMOCRM_REFRESH_TOKEN", ""),
			Timeout:      getEnvAsDuration("AMOCRM_TIMEOUT", 30*time.Second),
			RPS:          getEnvAsFloat("AMOCRM_RPS", 7),

			PipelineID:   getEnvAsInt("AMOCRM_PIPELINE_ID", 9713218),
			StatusNewID:  getEnvAsInt("AMOCRM_STATUS_NEW_ID", 77419818),
			StatusPaidID: getEnvAsInt("AMOCRM_STATUS_PAID_ID", 77419554),
			StatusLostID: getEnvAsInt("AMOCRM_STATUS_LOST_ID", 143),

			FieldOrderNumber:   getEnvAsInt("AMOCRM_FIELD_ORDER_NUMBER", 986103),
			FieldOrderRef:      getEnvAsInt("AMOCRM_FIELD_ORDER_REF", 986269),
			FieldEventType:     getEnvAsInt("AMOCRM_FIELD_EVENT_TYPE", 986255),
			FieldPaymentStatus: getEnvAsInt("AMOCRM_FIELD_PAYMENT_STATUS", 986257),
			FieldDescription:   getEnvAsInt("AMOCRM_FIELD_DESCRIPTION", 986259),
			FieldTicketsCount:  getEnvAsInt("AMOCRM_FIELD_TICKETS_COUNT", 986261),
			FieldEventDate:     getEnvAsInt("AMOCRM_FIELD_EVENT_DATE", 986263),
			FieldPaymentDate:   getEnvAsInt("AMOCRM_FIELD_PAYMENT_DATE", 986265),
			FieldRefundDate:    getEnvAsInt("AMOCRM_FIELD_REFUND_DATE", 986267),

			EventTypeEnums:            getEnvAsIntMap("AMOCRM_EVENT_TYPE_ENUMS"),
			PaymentStatusEnums:        getEnvAsIntMap("AMOCRM_PAYMENT_STATUS_ENUMS"),
			EventTypeFallbackEnum:     getEnvAsInt("AMOCRM_EVENT_TYPE_FALLBACK_ENUM", 0),
			PaymentStatusFallbackEnum: getEnvAsInt("AMOCRM_PAYMENT_STATUS_FALLBACK_ENUM", 0),
		},

		MailHost:     getEnv("MAIL_HOST", ""),
		MailPort:     getEnvAsInt("MAIL_PORT", 587),
		MailUser:     getEnv("MAIL_USER", ""),
		MailPassword: getEnv("MAIL_PASS", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@oktavaklaster.ru"),
		MailAlertTo:  getEnv("MAIL_ALERT_TO", ""),

		ReplayEnabled:     getEnvAsBool("REPLAY_ENABLED", false),
		ReplayInterval:    getEnvAsDuration("REPLAY_INTERVAL", 5*time.Minute),
		ReplayMinAge:      getEnvAsDuration("REPLAY_MIN_AGE", 10*time.Minute),
		ReplayMaxAttempts: getEnvAsInt("REPLAY_MAX_ATTEMPTS", 3),
	}
}

// BaseURL is the tenant API root, e.g. https://acme.amocrm.ru/api/v4.
func (c AmoCRMConfig) BaseURL() string {
	return "https://" + c.Subdomain + ".amocrm.ru/api/v4"
}

// TokenURL is the OAuth2 token endpoint of the tenant.
func (c AmoCRMConfig) TokenURL() string {
	return "https://" + c.Subdomain + ".amocrm.ru/oauth2/access_token"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsIntMap parses "key=1,other=2". Malformed pairs are skipped.
func getEnvAsIntMap(key string) map[string]int {
	result := make(map[string]int)
	for _, pair := range strings.Split(getEnv(key, ""), ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || strings.TrimSpace(name) == "" {
			continue
		}
		result[strings.TrimSpace(name)] = id
	}
	return result
}
