package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skoolstore/internal/app/auth"
	"skoolstore/internal/app/orders"
)

type AdminHandler struct {
	gate         *auth.Gate
	orderService orders.OrderService
	logger       *zap.Logger
}

func NewAdminHandler(gate *auth.Gate, orderService orders.OrderService, l *zap.Logger) *AdminHandler {
	return &AdminHandler{gate: gate, orderService: orderService, logger: l}
}

// requireAdmin resolves the caller through the Access Gate. Authenticated
// non-admins get a hard 403, anonymous callers a 401.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	access := h.gate.Authorize(r.Context(), auth.UserIDFromRequest(r))
	if !access.IsAuthenticated {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return false
	}
	if !access.IsAuthorized {
		h.logger.Warn("Non-admin user attempted admin operation", zap.String("user_id", access.UserID))
		writeError(w, "Admin access required", http.StatusForbidden)
		return false
	}
	return true
}

func (h *AdminHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	res, err := h.orderService.GetAllOrders(r.Context())
	if err != nil {
		h.logger.Error("Error getting all orders", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	res, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeError(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting order", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	orderID := chi.URLParam(r, "orderID")

	var req orders.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		writeError(w, "Status is required", http.StatusBadRequest)
		return
	}

	res, err := h.orderService.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			writeError(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, orders.ErrInvalidStatus):
			writeError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("Error updating order status", zap.String("order_id", orderID), zap.Error(err))
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
