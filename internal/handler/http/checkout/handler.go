package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"skoolstore/internal/app/auth"
	"skoolstore/internal/app/checkout"
)

type CheckoutHandler struct {
	service checkout.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(s checkout.CheckoutService, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: s, logger: l}
}

// Checkout returns either {checkout_url} or {error}, never both.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for Checkout", zap.Error(err))
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID := auth.UserIDFromRequest(r)
	res, err := h.service.Checkout(r.Context(), userID, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrUnauthenticated):
			writeError(w, err.Error(), http.StatusUnauthorized)
		case errors.Is(err, checkout.ErrInvalidCart):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, checkout.ErrPaymentGateway):
			writeError(w, err.Error(), http.StatusBadGateway)
		default:
			h.logger.Error("Error creating checkout session", zap.Error(err))
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
