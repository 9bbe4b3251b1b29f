package orders

import "time"

type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type OrderResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	Status            string              `json:"status"`
	TotalAmount       int64               `json:"total_amount"`
	CheckoutSessionID string              `json:"checkout_session_id,omitempty"`
	PaymentIntentID   string              `json:"payment_intent_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	Items             []OrderItemResponse `json:"items,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}
