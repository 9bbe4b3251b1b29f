package payment

import (
	"context"
	"errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// EventCheckoutSessionCompleted is the only notification kind this service
// acts on. Everything else is acknowledged and ignored.
const EventCheckoutSessionCompleted = "checkout.session.completed"

var ErrInvalidSignature = errors.New("webhook signature verification failed")

type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
}

type SessionParams struct {
	LineItems  []LineItem        `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

// Session is a hosted checkout session issued by the payment provider.
// The URL is where the shopper is redirected to pay.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	SessionID       string            `json:"session_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Metadata        map[string]string `json:"metadata"`
}

// Gateway is the translation layer to the hosted payment provider: session
// creation on the way out, signature verification and event decoding on the
// way back in.
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	VerifyAndParse(payload []byte, signature string) (*Event, error)
}
