package storefront

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/auth"
	"skoolstore/internal/app/orders"
	"skoolstore/internal/domain"
	"skoolstore/internal/repository/grant_repo"
	"skoolstore/internal/repository/product_repo"
)

type ProductResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Price      int64     `json:"price"`
	CategoryID string    `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type GrantResponse struct {
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id"`
	GrantedAt time.Time `json:"granted_at"`
}

type StorefrontHandler struct {
	productRepo  product_repo.ProductRepository
	grantRepo    grant_repo.GrantRepository
	orderService orders.OrderService
	logger       *zap.Logger
}

func NewStorefrontHandler(
	productRepo product_repo.ProductRepository,
	grantRepo grant_repo.GrantRepository,
	orderService orders.OrderService,
	l *zap.Logger,
) *StorefrontHandler {
	return &StorefrontHandler{
		productRepo:  productRepo,
		grantRepo:    grantRepo,
		orderService: orderService,
		logger:       l,
	}
}

func (h *StorefrontHandler) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productRepo.GetAllProducts(r.Context())
	if err != nil {
		h.logger.Error("Error getting products", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

func (h *StorefrontHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, "Product slug is required", http.StatusBadRequest)
		return
	}

	product, err := h.productRepo.GetProductBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, "Product not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting product", zap.String("slug", slug), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *StorefrontHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromRequest(r)
	if userID == "" {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	res, err := h.orderService.GetOrdersByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Error getting orders for user", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetMyLibrary lists the products the caller has been granted access to.
func (h *StorefrontHandler) GetMyLibrary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromRequest(r)
	if userID == "" {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	grants, err := h.grantRepo.GetGrantsByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Error getting grants for user", zap.String("user_id", userID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	res := make([]GrantResponse, len(grants))
	for i, grant := range grants {
		res[i] = GrantResponse{
			ProductID: grant.ProductID,
			OrderID:   grant.OrderID,
			GrantedAt: grant.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func mapProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		Price:      p.Price,
		CategoryID: p.CategoryID,
		CreatedAt:  p.CreatedAt,
	}
}

func mapProducts(products []*domain.Product) []ProductResponse {
	res := make([]ProductResponse, len(products))
	for i, p := range products {
		res[i] = mapProduct(p)
	}
	return res
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
