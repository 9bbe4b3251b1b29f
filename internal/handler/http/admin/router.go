package admin

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/auth"
	"skoolstore/internal/app/orders"
)

func RegisterRoutes(r chi.Router, gate *auth.Gate, orderService orders.OrderService, l *zap.Logger) {
	handler := NewAdminHandler(gate, orderService, l.With(zap.String("component", "AdminHTTPHandler")))

	r.Route("/admin/orders", func(r chi.Router) {
		r.Get("/", handler.GetAllOrders)
		r.Get("/{orderID}", handler.GetOrder)
		r.Patch("/{orderID}/status", handler.UpdateOrderStatus)
	})
}
