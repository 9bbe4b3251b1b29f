package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// VerifyAndParse checks the signature against the shared webhook secret
// before the payload is decoded. The signature is the hex HMAC-SHA256 of the
// raw body; comparison is constant time.
func (c *hostedClient) VerifyAndParse(payload []byte, signature string) (*Event, error) {
	if err := VerifySignature(payload, signature, c.webhookSecret); err != nil {
		return nil, err
	}

	event := &Event{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return event, nil
}

func VerifySignature(payload []byte, signature, secret string) error {
	if signature == "" || secret == "" {
		return ErrInvalidSignature
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignPayload produces the signature the provider would attach. Used by
// tests and local tooling.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
