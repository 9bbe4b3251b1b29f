package orders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skoolstore/internal/domain"
)

type fakeOrderRepo struct {
	orders       map[string]*domain.Order
	items        map[string][]*domain.OrderItem
	updateCalls  int
	updateStatus domain.OrderStatus
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*domain.Order),
		items:  make(map[string][]*domain.OrderItem),
	}
}

func (f *fakeOrderRepo) CreateOrderWithItems(_ context.Context, order *domain.Order, items []*domain.OrderItem) error {
	f.orders[order.ID] = order
	f.items[order.ID] = items
	return nil
}

func (f *fakeOrderRepo) SetCheckoutSession(_ context.Context, orderID, sessionID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	order.CheckoutSessionID = sessionID
	return nil
}

func (f *fakeOrderRepo) ClaimCompletedBySession(_ context.Context, _, _ string) (*domain.Order, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrderBySessionID(_ context.Context, _ string) (*domain.Order, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeOrderRepo) GetOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetAllOrders(_ context.Context) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range f.orders {
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeOrderRepo) GetOrderItems(_ context.Context, orderID string) ([]*domain.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	if _, ok := f.orders[orderID]; !ok {
		return sql.ErrNoRows
	}
	f.updateCalls++
	f.updateStatus = status
	return nil
}

type fakeOutboxRepo struct {
	messages []*domain.OutboxMessage
	sent     map[string]bool
	fetchErr error
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{sent: make(map[string]bool)}
}

func (f *fakeOutboxRepo) CreateMessage(_ context.Context, msg *domain.OutboxMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeOutboxRepo) GetUnsentMessages(_ context.Context) ([]*domain.OutboxMessage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*domain.OutboxMessage
	for _, msg := range f.messages {
		if !f.sent[msg.ID] {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkMessageSent(_ context.Context, id string) error {
	f.sent[id] = true
	return nil
}

type fakeProducer struct {
	produced   []string
	failTopics map[string]bool
}

func (f *fakeProducer) Produce(_ context.Context, topic string, _ []byte) error {
	if f.failTopics[topic] {
		return errors.New("broker unavailable")
	}
	f.produced = append(f.produced, topic)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func seedOrder(t *testing.T, repo *fakeOrderRepo, id, userID string, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(id, userID, 2000)
	require.NoError(t, err)
	order.Status = status
	item, err := domain.NewOrderItem(id+"-i1", id, "p1", "Course", 2000, 1)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrderWithItems(context.Background(), order, []*domain.OrderItem{item}))
	return order
}

func TestGetOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, newFakeOutboxRepo(), &fakeProducer{}, zap.NewNop())
	seedOrder(t, repo, "o1", "u1", domain.OrderStatusPending)

	resp, err := svc.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, "pending", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p1", resp.Items[0].ProductID)

	_, err = svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrdersByUserID(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, newFakeOutboxRepo(), &fakeProducer{}, zap.NewNop())
	seedOrder(t, repo, "o1", "u1", domain.OrderStatusPending)
	seedOrder(t, repo, "o2", "u1", domain.OrderStatusCompleted)
	seedOrder(t, repo, "o3", "u2", domain.OrderStatusPending)

	resp, err := svc.GetOrdersByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, resp, 2)
}

func TestUpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   domain.OrderStatus
		requested string
		wantErr   error
		wantCalls int
	}{
		{"cancel pending", domain.OrderStatusPending, "cancelled", nil, 1},
		{"fail pending", domain.OrderStatusPending, "failed", nil, 1},
		{"completed is reserved for settlement", domain.OrderStatusPending, "completed", ErrInvalidStatus, 0},
		{"completed orders are immutable", domain.OrderStatusCompleted, "cancelled", ErrInvalidStatus, 0},
		{"unknown status", domain.OrderStatusPending, "shipped", ErrInvalidStatus, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeOrderRepo()
			svc := NewOrderService(repo, newFakeOutboxRepo(), &fakeProducer{}, zap.NewNop())
			seedOrder(t, repo, "o1", "u1", tt.current)

			resp, err := svc.UpdateOrderStatus(context.Background(), "o1", tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.requested, resp.Status)
			}
			assert.Equal(t, tt.wantCalls, repo.updateCalls)
		})
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc := NewOrderService(newFakeOrderRepo(), newFakeOutboxRepo(), &fakeProducer{}, zap.NewNop())

	_, err := svc.UpdateOrderStatus(context.Background(), "missing", "cancelled")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestProcessOutbox(t *testing.T) {
	outbox := newFakeOutboxRepo()
	producer := &fakeProducer{}
	svc := NewOrderService(newFakeOrderRepo(), outbox, producer, zap.NewNop())

	outbox.messages = []*domain.OutboxMessage{
		{ID: "m1", Topic: "order_completed_events", Payload: []byte(`{"order_id":"o1"}`), Status: domain.OutboxStatusPending, CreatedAt: time.Now()},
		{ID: "m2", Topic: "order_completed_events", Payload: []byte(`{"order_id":"o2"}`), Status: domain.OutboxStatusPending, CreatedAt: time.Now()},
	}

	require.NoError(t, svc.ProcessOutbox(context.Background()))
	assert.Len(t, producer.produced, 2)
	assert.True(t, outbox.sent["m1"])
	assert.True(t, outbox.sent["m2"])

	// A second pass finds nothing left to publish.
	producer.produced = nil
	require.NoError(t, svc.ProcessOutbox(context.Background()))
	assert.Empty(t, producer.produced)
}

func TestProcessOutbox_ProduceFailureLeavesMessagePending(t *testing.T) {
	outbox := newFakeOutboxRepo()
	producer := &fakeProducer{failTopics: map[string]bool{"order_completed_events": true}}
	svc := NewOrderService(newFakeOrderRepo(), outbox, producer, zap.NewNop())

	outbox.messages = []*domain.OutboxMessage{
		{ID: "m1", Topic: "order_completed_events", Payload: []byte(`{}`), Status: domain.OutboxStatusPending, CreatedAt: time.Now()},
	}

	require.NoError(t, svc.ProcessOutbox(context.Background()))
	assert.False(t, outbox.sent["m1"], "unpublished messages stay pending for the next tick")

	// Broker recovers, the relay drains the backlog.
	producer.failTopics = nil
	require.NoError(t, svc.ProcessOutbox(context.Background()))
	assert.True(t, outbox.sent["m1"])
}
