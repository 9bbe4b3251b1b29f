package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/infrastructure/kafka"
	"skoolstore/internal/repository/order_repo"
	"skoolstore/internal/repository/outbox_repo"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]*OrderResponse, error)
	GetAllOrders(ctx context.Context) ([]*OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*OrderResponse, error)
	ProcessOutbox(ctx context.Context) error
}

type orderService struct {
	orderRepo     order_repo.OrderRepository
	outboxRepo    outbox_repo.OutboxRepository
	kafkaProducer kafka.Producer
	logger        *zap.Logger
}

func NewOrderService(
	orderRepo order_repo.OrderRepository,
	outboxRepo outbox_repo.OutboxRepository,
	kafkaProducer kafka.Producer,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		outboxRepo:    outboxRepo,
		kafkaProducer: kafkaProducer,
		logger:        logger,
	}
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("Order not found", zap.String("order_id", orderID))
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to get order from repository", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}

	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to get order items from repository", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrderToResponse(order, items), nil
}

func (s *orderService) GetOrdersByUserID(ctx context.Context, userID string) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get orders for user from repository", zap.String("user_id", userID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrdersToResponse(orders), nil
}

func (s *orderService) GetAllOrders(ctx context.Context) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetAllOrders(ctx)
	if err != nil {
		s.logger.Error("Failed to get all orders from repository", zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrdersToResponse(orders), nil
}

// UpdateOrderStatus applies an operator status change. The domain rules keep
// the settlement transition out of reach: completed cannot be set here, and
// a completed order never changes again.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to get order for status update", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}

	if err := order.AdminSetStatus(domain.OrderStatus(status)); err != nil {
		s.logger.Warn("Rejected order status change",
			zap.String("order_id", orderID),
			zap.String("requested_status", status),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to update order status in database",
			zap.String("order_id", orderID),
			zap.String("new_status", string(order.Status)),
			zap.Error(err))
		return nil, errors.New("failed to update order status")
	}

	s.logger.Info("Order status updated by admin",
		zap.String("order_id", orderID),
		zap.String("new_status", string(order.Status)))
	return mapOrderToResponse(order, nil), nil
}

func (s *orderService) ProcessOutbox(ctx context.Context) error {
	messages, err := s.outboxRepo.GetUnsentMessages(ctx)
	if err != nil {
		s.logger.Error("Failed to get unsent outbox messages", zap.Error(err))
		return fmt.Errorf("failed to get unsent outbox messages: %w", err)
	}

	if len(messages) == 0 {
		s.logger.Debug("No unsent outbox messages found.")
		return nil
	}

	s.logger.Info("Processing unsent outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := s.kafkaProducer.Produce(ctx, msg.Topic, msg.Payload); err != nil {
			s.logger.Error("Failed to produce outbox message to Kafka",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}
		if err := s.outboxRepo.MarkMessageSent(ctx, msg.ID); err != nil {
			s.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		} else {
			s.logger.Debug("Outbox message sent and marked as sent", zap.String("message_id", msg.ID))
		}
	}
	return nil
}

func mapOrderToResponse(order *domain.Order, items []*domain.OrderItem) *OrderResponse {
	resp := &OrderResponse{
		ID:                order.ID,
		UserID:            order.UserID,
		Status:            string(order.Status),
		TotalAmount:       order.TotalAmount,
		CheckoutSessionID: order.CheckoutSessionID,
		PaymentIntentID:   order.PaymentIntentID,
		CreatedAt:         order.CreatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

func mapOrdersToResponse(orders []*domain.Order) []*OrderResponse {
	responses := make([]*OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrderToResponse(order, nil)
	}
	return responses
}
