package order_repo

import (
	"context"

	"skoolstore/internal/domain"
)

type OrderRepository interface {
	// CreateOrderWithItems persists the order and all of its items in one
	// transaction. The quoted unit prices on the items are written verbatim.
	CreateOrderWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error

	// SetCheckoutSession patches the externally issued checkout session id
	// onto an existing order.
	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error

	// ClaimCompletedBySession atomically moves the order matching the session
	// id from pending to completed and records the payment intent. It returns
	// sql.ErrNoRows when no pending order holds that session id, which is how
	// duplicate settlement deliveries lose the race.
	ClaimCompletedBySession(ctx context.Context, sessionID, paymentIntentID string) (*domain.Order, error)

	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	GetAllOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}
