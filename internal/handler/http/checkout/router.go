package checkout

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/checkout"
)

func RegisterRoutes(r chi.Router, s checkout.CheckoutService, l *zap.Logger) {
	handler := NewCheckoutHandler(s, l.With(zap.String("component", "CheckoutHTTPHandler")))
	r.Post("/checkout", handler.Checkout)
}
