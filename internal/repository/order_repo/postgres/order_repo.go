package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/repository/order_repo"
)

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

func (r *pgOrderRepository) CreateOrderWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order creation", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic during order creation transaction, rolling back", zap.String("order_id", order.ID))
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back order creation transaction due to error", zap.String("order_id", order.ID), zap.Error(err))
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
			if err != nil {
				r.logger.Error("Failed to commit order creation transaction", zap.String("order_id", order.ID), zap.Error(err))
			} else {
				r.logger.Debug("Order creation transaction committed", zap.String("order_id", order.ID))
			}
		}
	}()

	orderQuery := `INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.Status, order.TotalAmount, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tx failed to create order: %w", err)
	}
	r.logger.Debug("Order inserted in transaction", zap.String("order_id", order.ID))

	itemQuery := `INSERT INTO order_items (id, order_id, product_id, title, unit_price, quantity) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range items {
		_, err = tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.ProductID, item.Title, item.UnitPrice, item.Quantity)
		if err != nil {
			return fmt.Errorf("tx failed to create order item for product %s: %w", item.ProductID, err)
		}
	}
	r.logger.Debug("Order items inserted in transaction", zap.String("order_id", order.ID), zap.Int("count", len(items)))

	return err
}

func (r *pgOrderRepository) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	query := `UPDATE orders SET checkout_session_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, orderID, sessionID, time.Now())
	if err != nil {
		r.logger.Error("Failed to set checkout session on order", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to set checkout session on order %s: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No rows affected when setting checkout session, order might not exist", zap.String("order_id", orderID))
		return sql.ErrNoRows
	}
	r.logger.Debug("Checkout session recorded on order", zap.String("order_id", orderID), zap.String("session_id", sessionID))
	return nil
}

func (r *pgOrderRepository) ClaimCompletedBySession(ctx context.Context, sessionID, paymentIntentID string) (*domain.Order, error) {
	query := `UPDATE orders
		SET status = $1, payment_intent_id = $2, updated_at = $3
		WHERE checkout_session_id = $4 AND status = $5
		RETURNING id, user_id, status, total_amount, checkout_session_id, payment_intent_id, created_at, updated_at`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query,
		domain.OrderStatusCompleted, paymentIntentID, time.Now(), sessionID, domain.OrderStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to claim order completion by session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to claim order completion for session %s: %w", sessionID, err)
	}
	r.logger.Debug("Order claimed as completed", zap.String("order_id", order.ID), zap.String("session_id", sessionID))
	return order, nil
}

func (r *pgOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT id, user_id, status, total_amount, checkout_session_id, payment_intent_id, created_at, updated_at FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get order by ID", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return order, nil
}

func (r *pgOrderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	query := `SELECT id, user_id, status, total_amount, checkout_session_id, payment_intent_id, created_at, updated_at FROM orders WHERE checkout_session_id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get order by session ID", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by session ID %s: %w", sessionID, err)
	}
	return order, nil
}

func (r *pgOrderRepository) GetOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT id, user_id, status, total_amount, checkout_session_id, payment_intent_id, created_at, updated_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query orders for user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get orders by user ID %s: %w", userID, err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *pgOrderRepository) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT id, user_id, status, total_amount, checkout_session_id, payment_intent_id, created_at, updated_at FROM orders ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query all orders", zap.Error(err))
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *pgOrderRepository) GetOrderItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, title, unit_price, quantity FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to query order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Title, &item.UnitPrice, &item.Quantity); err != nil {
			r.logger.Error("Failed to scan order item row", zap.String("order_id", orderID), zap.Error(err))
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (r *pgOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, orderID, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No rows affected when updating order status, order might not exist", zap.String("order_id", orderID))
		return sql.ErrNoRows
	}
	r.logger.Debug("Order status updated", zap.String("order_id", orderID), zap.String("new_status", string(status)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var sessionID, intentID sql.NullString
	if err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &sessionID, &intentID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		order.CheckoutSessionID = sessionID.String
	}
	if intentID.Valid {
		order.PaymentIntentID = intentID.String
	}
	return order, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}
