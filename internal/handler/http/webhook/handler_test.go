package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"skoolstore/internal/payment"
)

type fakeSettlementService struct {
	err          error
	gotBody      string
	gotSignature string
}

func (f *fakeSettlementService) HandleNotification(_ context.Context, body []byte, signature string) error {
	f.gotBody = string(body)
	f.gotSignature = signature
	return f.err
}

func newTestRouter(svc *fakeSettlementService) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return r
}

func TestHandlePaymentWebhook_InvalidSignature(t *testing.T) {
	router := newTestRouter(&fakeSettlementService{err: payment.ErrInvalidSignature})

	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set(payment.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid signature"}`, rec.Body.String())
}

func TestHandlePaymentWebhook_Acknowledged(t *testing.T) {
	svc := &fakeSettlementService{}
	router := newTestRouter(svc)

	body := `{"type":"checkout.session.completed","data":{"session_id":"cs_test_1"}}`
	req := httptest.NewRequest("POST", "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(payment.SignatureHeader, "abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, body, svc.gotBody, "handler passes the raw body through untouched")
	assert.Equal(t, "abc123", svc.gotSignature)
}
