package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"skoolstore/internal/app/settlement"
	"skoolstore/internal/payment"
)

type WebhookHandler struct {
	service settlement.SettlementService
	logger  *zap.Logger
}

func NewWebhookHandler(s settlement.SettlementService, l *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: s, logger: l}
}

// HandlePaymentWebhook acknowledges every correctly signed delivery with
// {received: true}, including unrecognized event kinds and internal
// post-processing failures. Only a bad signature produces a 400 — that is
// the one condition where making the gateway retry is wrong anyway.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get(payment.SignatureHeader)
	if err := h.service.HandleNotification(r.Context(), body, signature); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid signature"})
			return
		}
		h.logger.Error("Unexpected settlement handler error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
