package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type ClientConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

type hostedClient struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewHostedClient(cfg ClientConfig, l *zap.Logger) Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &hostedClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        l,
	}
}

type providerError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *hostedClient) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Checkout session request failed", zap.Error(err))
		return nil, fmt.Errorf("checkout session request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read session response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var perr providerError
		if jsonErr := json.Unmarshal(respBody, &perr); jsonErr == nil && perr.Error.Message != "" {
			c.logger.Error("Payment provider rejected session creation",
				zap.Int("status", resp.StatusCode),
				zap.String("provider_message", perr.Error.Message))
			return nil, fmt.Errorf("payment provider error: %s", perr.Error.Message)
		}
		c.logger.Error("Payment provider rejected session creation", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	session := &Session{}
	if err := json.Unmarshal(respBody, session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("payment provider returned incomplete session")
	}

	c.logger.Debug("Checkout session created", zap.String("session_id", session.ID))
	return session, nil
}
