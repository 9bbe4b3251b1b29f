package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/metrics"
	"skoolstore/internal/payment"
	"skoolstore/internal/repository/grant_repo"
	"skoolstore/internal/repository/order_repo"
	"skoolstore/internal/repository/outbox_repo"
	"skoolstore/internal/util"
)

type SettlementService interface {
	// HandleNotification processes one raw webhook delivery. It returns
	// payment.ErrInvalidSignature when the signature does not verify;
	// every other outcome is acknowledged with a nil error so the gateway
	// never retries a correctly authenticated notification.
	HandleNotification(ctx context.Context, body []byte, signature string) error
}

type settlementService struct {
	orderRepo           order_repo.OrderRepository
	grantRepo           grant_repo.GrantRepository
	outboxRepo          outbox_repo.OutboxRepository
	gateway             payment.Gateway
	orderCompletedTopic string
	metrics             *metrics.StoreMetrics
	logger              *zap.Logger
}

func NewSettlementService(
	orderRepo order_repo.OrderRepository,
	grantRepo grant_repo.GrantRepository,
	outboxRepo outbox_repo.OutboxRepository,
	gateway payment.Gateway,
	orderCompletedTopic string,
	m *metrics.StoreMetrics,
	logger *zap.Logger,
) SettlementService {
	return &settlementService{
		orderRepo:           orderRepo,
		grantRepo:           grantRepo,
		outboxRepo:          outboxRepo,
		gateway:             gateway,
		orderCompletedTopic: orderCompletedTopic,
		metrics:             m,
		logger:              logger,
	}
}

func (s *settlementService) HandleNotification(ctx context.Context, body []byte, signature string) error {
	// Signature verification runs before the payload is trusted for
	// anything, including parsing for business data.
	event, err := s.gateway.VerifyAndParse(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Warn("Rejected webhook with invalid signature")
			return payment.ErrInvalidSignature
		}
		s.logger.Error("Failed to decode verified webhook payload", zap.Error(err))
		return nil
	}

	if event.Type != payment.EventCheckoutSessionCompleted {
		s.logger.Debug("Ignoring webhook event of unhandled type", zap.String("event_type", event.Type))
		return nil
	}

	sessionID := event.Data.SessionID
	if sessionID == "" {
		s.logger.Warn("Completed-session event carries no session id", zap.String("event_id", event.ID))
		return nil
	}

	if _, err := s.orderRepo.GetOrderBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Settlement notification references unknown session, dropping",
				zap.String("session_id", sessionID),
				zap.String("event_id", event.ID))
			s.metrics.UnknownSessionEvents.Inc()
			return nil
		}
		s.logger.Error("Failed to look up order for settlement", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}

	// Single-writer-wins: the conditional update claims the pending order,
	// and only the claimant grants entitlements. A redelivery or a
	// concurrent duplicate finds no pending row and stops here.
	order, err := s.orderRepo.ClaimCompletedBySession(ctx, sessionID, event.Data.PaymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("Order already completed, duplicate settlement delivery ignored",
				zap.String("session_id", sessionID),
				zap.String("event_id", event.ID))
			s.metrics.DuplicateSettlements.Inc()
			return nil
		}
		s.logger.Error("Failed to complete order for settlement", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}

	s.metrics.SettlementsCompleted.Inc()
	s.logger.Info("Order completed by settlement",
		zap.String("order_id", order.ID),
		zap.String("session_id", sessionID),
		zap.String("payment_intent_id", event.Data.PaymentIntentID))

	userID := event.Data.Metadata["user_id"]
	if userID == "" {
		userID = order.UserID
	} else if userID != order.UserID {
		s.logger.Warn("Webhook metadata user differs from order owner, using metadata user",
			zap.String("order_id", order.ID),
			zap.String("metadata_user_id", userID),
			zap.String("order_user_id", order.UserID))
	}

	s.grantEntitlements(ctx, order, userID)
	s.recordOrderCompletedEvent(ctx, order)
	return nil
}

// grantEntitlements writes one grant per order item. Each grant is
// independent: a failed write is logged and skipped so the remaining items
// still get their access.
func (s *settlementService) grantEntitlements(ctx context.Context, order *domain.Order, userID string) {
	items, err := s.orderRepo.GetOrderItems(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to load order items for entitlement grant",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return
	}

	for _, item := range items {
		grant := &domain.UserProductGrant{
			ID:        util.GenerateUUID(),
			UserID:    userID,
			ProductID: item.ProductID,
			OrderID:   order.ID,
			CreatedAt: time.Now(),
		}
		if err := s.grantRepo.CreateGrant(ctx, grant); err != nil {
			if errors.Is(err, domain.ErrGrantAlreadyExists) {
				s.logger.Info("Product grant already exists, skipping",
					zap.String("order_id", order.ID),
					zap.String("product_id", item.ProductID))
				continue
			}
			s.logger.Error("Failed to create product grant, continuing with remaining items",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
			s.metrics.GrantFailures.Inc()
			continue
		}
		s.metrics.GrantsCreated.Inc()
		s.logger.Info("Product grant created",
			zap.String("user_id", userID),
			zap.String("product_id", item.ProductID),
			zap.String("order_id", order.ID))
	}
}

func (s *settlementService) recordOrderCompletedEvent(ctx context.Context, order *domain.Order) {
	payload, err := json.Marshal(domain.OrderCompletedEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		PaymentIntentID: order.PaymentIntentID,
		CompletedAt:     order.UpdatedAt,
	})
	if err != nil {
		s.logger.Error("Failed to marshal order completed event", zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	msg := &domain.OutboxMessage{
		ID:        util.GenerateUUID(),
		Topic:     s.orderCompletedTopic,
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.outboxRepo.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to enqueue order completed event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
