package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

var (
	ErrInvalidOrderData     = errors.New("invalid order data")
	ErrInvalidStatus        = errors.New("unknown order status")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrCompletedIsImmutable = errors.New("completed orders cannot be modified")
)

type Order struct {
	ID                string
	UserID            string
	Status            OrderStatus
	TotalAmount       int64
	CheckoutSessionID string
	PaymentIntentID   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Title     string
	UnitPrice int64
	Quantity  int64
}

func NewOrder(id, userID string, totalAmount int64) (*Order, error) {
	if id == "" || userID == "" || totalAmount <= 0 {
		return nil, ErrInvalidOrderData
	}
	now := time.Now()
	return &Order{
		ID:          id,
		UserID:      userID,
		Status:      OrderStatusPending,
		TotalAmount: totalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func NewOrderItem(id, orderID, productID, title string, unitPrice, quantity int64) (*OrderItem, error) {
	if id == "" || orderID == "" || productID == "" || unitPrice <= 0 || quantity <= 0 {
		return nil, ErrInvalidOrderData
	}
	return &OrderItem{
		ID:        id,
		OrderID:   orderID,
		ProductID: productID,
		Title:     title,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}, nil
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// MarkCompleted is the settlement transition. It is only legal from pending;
// the persistence layer additionally enforces it with a conditional update so
// concurrent duplicate notifications cannot complete the same order twice.
func (o *Order) MarkCompleted(paymentIntentID string) error {
	if o.Status != OrderStatusPending {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusCompleted
	o.PaymentIntentID = paymentIntentID
	o.UpdatedAt = time.Now()
	return nil
}

// AdminSetStatus applies an operator-initiated status change. The completed
// status is reserved for the settlement path, and a completed order never
// changes again.
func (o *Order) AdminSetStatus(status OrderStatus) error {
	if !ValidOrderStatus(status) {
		return ErrInvalidStatus
	}
	if status == OrderStatusCompleted {
		return ErrInvalidTransition
	}
	if o.Status == OrderStatusCompleted {
		return ErrCompletedIsImmutable
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}
