package mail

// SyncFailureData feeds the operator alert template.
type SyncFailureData struct {
	Service      string
	LogID        string
	OrderID      string
	Email        string
	PaymentState string
	Action       string
	Attempt      int
	Error        string
	OccurredAt   string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AlertTo  string
	Service  string

	dialer dialer
}
