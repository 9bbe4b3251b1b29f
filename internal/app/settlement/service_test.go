package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skoolstore/internal/domain"
	"skoolstore/internal/metrics"
	"skoolstore/internal/payment"
)

type fakeOrderRepo struct {
	orders map[string]*domain.Order
	items  map[string][]*domain.OrderItem
	trace  *[]string
}

func newFakeOrderRepo(trace *[]string) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*domain.Order),
		items:  make(map[string][]*domain.OrderItem),
		trace:  trace,
	}
}

func (f *fakeOrderRepo) addOrder(order *domain.Order, items ...*domain.OrderItem) {
	f.orders[order.ID] = order
	f.items[order.ID] = items
}

func (f *fakeOrderRepo) record(step string) {
	if f.trace != nil {
		*f.trace = append(*f.trace, step)
	}
}

func (f *fakeOrderRepo) CreateOrderWithItems(_ context.Context, order *domain.Order, items []*domain.OrderItem) error {
	f.addOrder(order, items...)
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

func (f *fakeOrderRepo) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	f.record("lookup")
	for _, order := range f.orders {
		if order.CheckoutSessionID == sessionID {
			return order, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ClaimCompletedBySession mirrors the conditional-update semantics of the
// postgres repository: only a pending order with the session id is claimed.
func (f *fakeOrderRepo) ClaimCompletedBySession(_ context.Context, sessionID, paymentIntentID string) (*domain.Order, error) {
	for _, order := range f.orders {
		if order.CheckoutSessionID == sessionID && order.Status == domain.OrderStatusPending {
			order.Status = domain.OrderStatusCompleted
			order.PaymentIntentID = paymentIntentID
			return order, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(_ context.Context, _ string) ([]*domain.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) GetAllOrders(_ context.Context) ([]*domain.Order, error) { return nil, nil }

func (f *fakeOrderRepo) GetOrderItems(_ context.Context, orderID string) ([]*domain.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, _ string, _ domain.OrderStatus) error {
	return nil
}

type fakeGrantRepo struct {
	grants       []*domain.UserProductGrant
	failProducts map[string]bool
}

func newFakeGrantRepo() *fakeGrantRepo {
	return &fakeGrantRepo{failProducts: make(map[string]bool)}
}

func (f *fakeGrantRepo) CreateGrant(_ context.Context, grant *domain.UserProductGrant) error {
	if f.failProducts[grant.ProductID] {
		return errors.New("grant write failed")
	}
	for _, existing := range f.grants {
		if existing.UserID == grant.UserID && existing.ProductID == grant.ProductID && existing.OrderID == grant.OrderID {
			return domain.ErrGrantAlreadyExists
		}
	}
	f.grants = append(f.grants, grant)
	return nil
}

func (f *fakeGrantRepo) GetGrantsByUserID(_ context.Context, userID string) ([]*domain.UserProductGrant, error) {
	var out []*domain.UserProductGrant
	for _, grant := range f.grants {
		if grant.UserID == userID {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) GetGrantsByOrderID(_ context.Context, orderID string) ([]*domain.UserProductGrant, error) {
	var out []*domain.UserProductGrant
	for _, grant := range f.grants {
		if grant.OrderID == orderID {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) UserHasProduct(_ context.Context, userID, productID string) (bool, error) {
	for _, grant := range f.grants {
		if grant.UserID == userID && grant.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

type fakeOutboxRepo struct {
	messages []*domain.OutboxMessage
}

func (f *fakeOutboxRepo) CreateMessage(_ context.Context, msg *domain.OutboxMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeOutboxRepo) GetUnsentMessages(_ context.Context) ([]*domain.OutboxMessage, error) {
	return f.messages, nil
}

func (f *fakeOutboxRepo) MarkMessageSent(_ context.Context, _ string) error { return nil }

// spyGateway records verification order so tests can assert that signature
// checking happens before any order lookup.
type spyGateway struct {
	secret string
	trace  *[]string
}

func (g *spyGateway) CreateSession(_ context.Context, _ payment.SessionParams) (*payment.Session, error) {
	return nil, errors.New("not used in settlement")
}

func (g *spyGateway) VerifyAndParse(body []byte, signature string) (*payment.Event, error) {
	if g.trace != nil {
		*g.trace = append(*g.trace, "verify")
	}
	if err := payment.VerifySignature(body, signature, g.secret); err != nil {
		return nil, err
	}
	event := &payment.Event{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return event, nil
}

const testSecret = "whsec_test"

type fixture struct {
	svc       SettlementService
	orderRepo *fakeOrderRepo
	grantRepo *fakeGrantRepo
	outbox    *fakeOutboxRepo
	trace     []string
}

func newFixture() *fixture {
	fx := &fixture{}
	fx.orderRepo = newFakeOrderRepo(&fx.trace)
	fx.grantRepo = newFakeGrantRepo()
	fx.outbox = &fakeOutboxRepo{}
	fx.svc = NewSettlementService(
		fx.orderRepo,
		fx.grantRepo,
		fx.outbox,
		&spyGateway{secret: testSecret, trace: &fx.trace},
		"order_completed_events",
		metrics.NewStoreMetricsWith(prometheus.NewRegistry()),
		zap.NewNop(),
	)
	return fx
}

func completedEventBody(t *testing.T, sessionID, paymentIntentID, userID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": payment.EventCheckoutSessionCompleted,
		"data": map[string]any{
			"session_id":        sessionID,
			"payment_intent_id": paymentIntentID,
			"metadata":          map[string]string{"user_id": userID},
		},
	})
	require.NoError(t, err)
	return body
}

func pendingOrder(t *testing.T, id, userID, sessionID string, total int64) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(id, userID, total)
	require.NoError(t, err)
	order.CheckoutSessionID = sessionID
	return order
}

func TestHandleNotification_InvalidSignatureRejectedBeforeLookup(t *testing.T) {
	fx := newFixture()
	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")

	err := fx.svc.HandleNotification(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Equal(t, []string{"verify"}, fx.trace, "no order lookup may happen on a bad signature")
}

func TestHandleNotification_UnrelatedEventTypeAcknowledged(t *testing.T) {
	fx := newFixture()
	body := []byte(`{"id":"evt_2","type":"invoice.paid","data":{}}`)

	err := fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret))
	assert.NoError(t, err)
	assert.Empty(t, fx.grantRepo.grants)
}

func TestHandleNotification_UnknownSessionAcknowledged(t *testing.T) {
	fx := newFixture()
	body := completedEventBody(t, "cs_missing", "pi_1", "u1")

	err := fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret))
	assert.NoError(t, err, "unknown sessions are acknowledged to avoid poison-pill retries")
	assert.Empty(t, fx.grantRepo.grants)
}

func TestHandleNotification_CompletesOrderAndGrants(t *testing.T) {
	fx := newFixture()
	order := pendingOrder(t, "o1", "u1", "cs_test_1", 2000)
	item, err := domain.NewOrderItem("i1", "o1", "p1", "Course", 2000, 1)
	require.NoError(t, err)
	fx.orderRepo.addOrder(order, item)

	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")
	require.NoError(t, fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret)))

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, "pi_1", order.PaymentIntentID)

	require.Len(t, fx.grantRepo.grants, 1)
	grant := fx.grantRepo.grants[0]
	assert.Equal(t, "u1", grant.UserID)
	assert.Equal(t, "p1", grant.ProductID)
	assert.Equal(t, "o1", grant.OrderID)

	require.Len(t, fx.outbox.messages, 1)
	var event domain.OrderCompletedEvent
	require.NoError(t, json.Unmarshal(fx.outbox.messages[0].Payload, &event))
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
}

func TestHandleNotification_Idempotent(t *testing.T) {
	fx := newFixture()
	order := pendingOrder(t, "o1", "u1", "cs_test_1", 2000)
	item, err := domain.NewOrderItem("i1", "o1", "p1", "Course", 2000, 1)
	require.NoError(t, err)
	fx.orderRepo.addOrder(order, item)

	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")
	signature := payment.SignPayload(body, testSecret)

	require.NoError(t, fx.svc.HandleNotification(context.Background(), body, signature))
	require.Len(t, fx.grantRepo.grants, 1)

	// Redelivery of the identical notification changes nothing.
	require.NoError(t, fx.svc.HandleNotification(context.Background(), body, signature))
	assert.Len(t, fx.grantRepo.grants, 1, "grant count unchanged after duplicate delivery")
	assert.Len(t, fx.outbox.messages, 1, "completed event published once")
	assert.Equal(t, "pi_1", order.PaymentIntentID)
}

func TestHandleNotification_OneGrantPerItemRegardlessOfQuantity(t *testing.T) {
	fx := newFixture()
	order := pendingOrder(t, "o1", "u1", "cs_test_1", 9000)
	i1, _ := domain.NewOrderItem("i1", "o1", "p1", "Course A", 2000, 1)
	i2, _ := domain.NewOrderItem("i2", "o1", "p2", "Course B", 2000, 2)
	i3, _ := domain.NewOrderItem("i3", "o1", "p3", "Course C", 3000, 1)
	fx.orderRepo.addOrder(order, i1, i2, i3)

	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")
	require.NoError(t, fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret)))

	require.Len(t, fx.grantRepo.grants, 3, "one grant per item, not per quantity")
	products := map[string]bool{}
	for _, grant := range fx.grantRepo.grants {
		products[grant.ProductID] = true
	}
	assert.Len(t, products, 3)
}

func TestHandleNotification_PartialGrantFailureContinues(t *testing.T) {
	fx := newFixture()
	order := pendingOrder(t, "o1", "u1", "cs_test_1", 6000)
	i1, _ := domain.NewOrderItem("i1", "o1", "p1", "Course A", 2000, 1)
	i2, _ := domain.NewOrderItem("i2", "o1", "p2", "Course B", 2000, 1)
	i3, _ := domain.NewOrderItem("i3", "o1", "p3", "Course C", 2000, 1)
	fx.orderRepo.addOrder(order, i1, i2, i3)
	fx.grantRepo.failProducts["p2"] = true

	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")
	err := fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret))
	assert.NoError(t, err, "grant failures never surface to the gateway")

	require.Len(t, fx.grantRepo.grants, 2, "remaining items still granted")
	for _, grant := range fx.grantRepo.grants {
		assert.NotEqual(t, "p2", grant.ProductID)
	}
}

func TestHandleNotification_EndToEndScenario(t *testing.T) {
	fx := newFixture()
	order := pendingOrder(t, "o1", "u1", "cs_test_1", 2000)
	item, err := domain.NewOrderItem("i1", "o1", "p1", "Course", 2000, 1)
	require.NoError(t, err)
	fx.orderRepo.addOrder(order, item)

	assert.Equal(t, int64(2000), order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	body := completedEventBody(t, "cs_test_1", "pi_1", "u1")
	require.NoError(t, fx.svc.HandleNotification(context.Background(), body, payment.SignPayload(body, testSecret)))

	stored, err := fx.orderRepo.GetOrderByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, stored.Status)
	assert.Equal(t, "pi_1", stored.PaymentIntentID)

	grants, err := fx.grantRepo.GetGrantsByOrderID(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "u1", grants[0].UserID)
	assert.Equal(t, "p1", grants[0].ProductID)
}
