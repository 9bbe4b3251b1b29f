package storefront

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/orders"
	"skoolstore/internal/repository/grant_repo"
	"skoolstore/internal/repository/product_repo"
)

func RegisterRoutes(
	r chi.Router,
	productRepo product_repo.ProductRepository,
	grantRepo grant_repo.GrantRepository,
	orderService orders.OrderService,
	l *zap.Logger,
) {
	handler := NewStorefrontHandler(productRepo, grantRepo, orderService,
		l.With(zap.String("component", "StorefrontHTTPHandler")))

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handler.GetAllProducts)
		r.Get("/{slug}", handler.GetProductBySlug)
	})

	r.Route("/me", func(r chi.Router) {
		r.Get("/orders", handler.GetMyOrders)
		r.Get("/library", handler.GetMyLibrary)
	})
}
