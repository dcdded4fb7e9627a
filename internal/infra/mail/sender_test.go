package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func newTestSender(d dialer) *EmailSender {
	s := NewEmailSender("smtp.example.com", 587, "user", "secret", "no-reply@oktavaklaster.ru", "ops@oktavaklaster.ru", "oktavachecks")
	s.dialer = d
	return s
}

func TestNotifySyncFailure(t *testing.T) {
	d := &recordingDialer{}
	event := usecase.OrderSyncedEvent{
		LogID:        "log-1",
		OrderID:      "ORD-1",
		Email:        "a@b.com",
		PaymentState: "paid",
		Status:       "error",
		Action:       usecase.ActionFailed,
		Error:        "amocrm POST /leads: status 400 <script>",
		Attempt:      2,
		OccurredAt:   time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, newTestSender(d).NotifySyncFailure(context.Background(), event))
	require.Len(t, d.sent, 1)

	subject, body := decodeMessage(t, d.sent[0])
	assert.Equal(t, []string{"ops@oktavaklaster.ru"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, "[oktavachecks] Ошибка синхронизации заказа ORD-1", subject)
	assert.Contains(t, body, "15.10.2026 12:30:00")
	assert.Contains(t, body, "Оплачен")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestNotifySyncFailureWithoutOrder(t *testing.T) {
	d := &recordingDialer{}
	event := usecase.OrderSyncedEvent{LogID: "log-2", Status: "error", Action: usecase.ActionRejected, Error: "No email provided"}

	require.NoError(t, newTestSender(d).NotifySyncFailure(context.Background(), event))
	subject, body := decodeMessage(t, d.sent[0])
	assert.Equal(t, "[oktavachecks] Ошибка обработки вебхука Radario", subject)
	assert.Contains(t, body, "не определён")
}

func TestNotifySyncFailureSMTPError(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}

	err := newTestSender(d).NotifySyncFailure(context.Background(), usecase.OrderSyncedEvent{OrderID: "ORD-1"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestNotifySyncFailureCancelled(t *testing.T) {
	d := &recordingDialer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, newTestSender(d).NotifySyncFailure(ctx, usecase.OrderSyncedEvent{}), context.Canceled)
	assert.Empty(t, d.sent)
}

// decodeMessage renders m as it goes over the wire and returns the decoded
// subject and HTML body.
func decodeMessage(t *testing.T, m *gomail.Message) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(&buf)
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)

	var part io.Reader = msg.Body
	encoding := msg.Header.Get("Content-Transfer-Encoding")
	if strings.HasPrefix(mediaType, "multipart/") {
		p, err := multipart.NewReader(msg.Body, params["boundary"]).NextPart()
		require.NoError(t, err)
		part = p
		encoding = p.Header.Get("Content-Transfer-Encoding")
	}
	if strings.EqualFold(encoding, "quoted-printable") {
		part = quotedprintable.NewReader(part)
	}

	body, err := io.ReadAll(part)
	require.NoError(t, err)
	return subject, string(body)
}
