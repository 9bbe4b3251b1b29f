package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/metrics"
	"skoolstore/internal/payment"
	"skoolstore/internal/repository/order_repo"
	"skoolstore/internal/util"
)

var (
	ErrUnauthenticated = errors.New("checkout requires an authenticated caller")
	ErrInvalidCart     = errors.New("cart is empty or contains invalid lines")
	ErrPaymentGateway  = errors.New("payment gateway error")
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID string, items []CartItem) (*CheckoutResponse, error)
}

type checkoutService struct {
	orderRepo  order_repo.OrderRepository
	gateway    payment.Gateway
	successURL string
	cancelURL  string
	metrics    *metrics.StoreMetrics
	logger     *zap.Logger
}

func NewCheckoutService(
	orderRepo order_repo.OrderRepository,
	gateway payment.Gateway,
	successURL string,
	cancelURL string,
	m *metrics.StoreMetrics,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:  orderRepo,
		gateway:    gateway,
		successURL: successURL,
		cancelURL:  cancelURL,
		metrics:    m,
		logger:     logger,
	}
}

// Checkout runs the full orchestration: validate, persist the pending order
// with its items, request a hosted session, and patch the session id back
// onto the order. The steps are strictly sequential; each depends on the
// previous one's result. The database and the payment provider are not
// covered by one transaction: a gateway failure leaves the order pending
// with no session id, and the shopper is never charged.
func (s *checkoutService) Checkout(ctx context.Context, userID string, items []CartItem) (*CheckoutResponse, error) {
	if userID == "" {
		s.metrics.CheckoutFailures.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}
	if err := validateCart(items); err != nil {
		s.metrics.CheckoutFailures.WithLabelValues("invalid_cart").Inc()
		return nil, err
	}

	var total int64
	for _, item := range items {
		total += item.UnitPrice * item.Quantity
	}

	orderID := util.GenerateUUID()
	order, err := domain.NewOrder(orderID, userID, total)
	if err != nil {
		s.logger.Error("Failed to build order from cart", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrInvalidCart
	}

	orderItems := make([]*domain.OrderItem, 0, len(items))
	for _, item := range items {
		orderItem, err := domain.NewOrderItem(util.GenerateUUID(), orderID, item.ProductID, item.Title, item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, ErrInvalidCart
		}
		orderItems = append(orderItems, orderItem)
	}

	if err := s.orderRepo.CreateOrderWithItems(ctx, order, orderItems); err != nil {
		s.logger.Error("Failed to persist order and items", zap.String("order_id", orderID), zap.Error(err))
		s.metrics.CheckoutFailures.WithLabelValues("persistence").Inc()
		return nil, errors.New("failed to create order")
	}
	s.logger.Info("Pending order created",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.Int64("total_amount", total),
		zap.Int("item_count", len(orderItems)))

	lineItems := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, payment.LineItem{
			Name:       item.Title,
			UnitAmount: item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}

	session, err := s.gateway.CreateSession(ctx, payment.SessionParams{
		LineItems:  lineItems,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			"order_id": orderID,
			"user_id":  userID,
		},
	})
	if err != nil {
		// The order stays pending with no session id. Nothing is rolled
		// back; the shopper sees the error and was not charged.
		s.logger.Error("Payment gateway session creation failed, order left pending",
			zap.String("order_id", orderID),
			zap.Error(err))
		s.metrics.CheckoutFailures.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if err := s.orderRepo.SetCheckoutSession(ctx, orderID, session.ID); err != nil {
		s.logger.Error("Failed to record checkout session on order",
			zap.String("order_id", orderID),
			zap.String("session_id", session.ID),
			zap.Error(err))
		s.metrics.CheckoutFailures.WithLabelValues("persistence").Inc()
		return nil, errors.New("failed to finalize checkout")
	}

	s.metrics.CheckoutSessionsCreated.Inc()
	s.logger.Info("Checkout session created",
		zap.String("order_id", orderID),
		zap.String("session_id", session.ID))

	return &CheckoutResponse{OrderID: orderID, CheckoutURL: session.URL}, nil
}

func validateCart(items []CartItem) error {
	if len(items) == 0 {
		return ErrInvalidCart
	}
	for _, item := range items {
		if item.ProductID == "" || item.UnitPrice <= 0 || item.Quantity <= 0 {
			return ErrInvalidCart
		}
	}
	return nil
}
