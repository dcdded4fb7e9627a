package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

const maxWebhookBody = 1 << 20

// SyncOrderExecutor runs the reconciliation for one raw notification.
type SyncOrderExecutor interface {
	Execute(ctx context.Context, raw []byte) (*usecase.SyncOrderOutput, error)
}

type WebhookHandler struct {
	SyncOrder SyncOrderExecutor
	Logger    *logging.Logger
}

type webhookResponse struct {
	Status    string `json:"status"`
	ContactID int    `json:"contact_id,omitempty"`
	LeadID    int    `json:"lead_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

func NewWebhookHandler(syncOrder SyncOrderExecutor, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		SyncOrder: syncOrder,
		Logger:    logger,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, webhookResponse{Status: "error", Message: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: "failed to read body"})
		return
	}

	output, err := h.SyncOrder.Execute(r.Context(), body)
	if err != nil {
		var domainErr *usecase.DomainError
		if errors.As(err, &domainErr) {
			h.Logger.Warn("radario webhook rejected", "code", domainErr.Code, "error", domainErr.Message)
			writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: domainErr.Message})
			return
		}

		h.Logger.Error("radario webhook failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Status: "error", Message: errorMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Status:    "success",
		ContactID: output.ContactID,
		LeadID:    output.LeadID,
	})
}

func errorMessage(err error) string {
	var techErr *usecase.TechnicalError
	if errors.As(err, &techErr) {
		return techErr.Message
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
