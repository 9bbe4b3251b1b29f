package webhook

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/settlement"
)

func RegisterRoutes(r chi.Router, s settlement.SettlementService, l *zap.Logger) {
	handler := NewWebhookHandler(s, l.With(zap.String("component", "WebhookHTTPHandler")))
	r.Post("/webhooks/payment", handler.HandlePaymentWebhook)
}
