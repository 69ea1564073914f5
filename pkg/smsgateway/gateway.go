package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Gateway delivers SMS messages. The OTP service depends only on this
// interface; the concrete provider is chosen from configuration.
type Gateway interface {
	SendSMS(ctx context.Context, phoneNo, message string) error
}

// MSG91Gateway sends SMS through the MSG91 HTTP API.
type MSG91Gateway struct {
	baseURL    string
	authKey    string
	senderID   string
	httpClient *http.Client
}

// NewMSG91Gateway creates a gateway for the MSG91 SMS API.
func NewMSG91Gateway(baseURL, authKey, senderID string) *MSG91Gateway {
	return &MSG91Gateway{
		baseURL:  baseURL,
		authKey:  authKey,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type msg91Request struct {
	Sender  string `json:"sender"`
	Mobile  string `json:"mobiles"`
	Message string `json:"message"`
	Route   string `json:"route"`
}

// SendSMS posts the message to MSG91. A non-2xx response is an error.
func (g *MSG91Gateway) SendSMS(ctx context.Context, phoneNo, message string) error {
	payload, err := json.Marshal(msg91Request{
		Sender:  g.senderID,
		Mobile:  phoneNo,
		Message: message,
		Route:   "4", // transactional route
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v2/sendsms", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", g.authKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MockGateway logs messages instead of sending them. Used in development
// and tests.
type MockGateway struct {
	Sent []SentMessage
}

// SentMessage records a message delivered through the mock gateway.
type SentMessage struct {
	PhoneNo string
	Message string
}

// NewMockGateway creates a mock SMS gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SendSMS records the message and logs it.
func (g *MockGateway) SendSMS(_ context.Context, phoneNo, message string) error {
	g.Sent = append(g.Sent, SentMessage{PhoneNo: phoneNo, Message: message})
	log.Info().Str("phone_no", phoneNo).Str("message", message).Msg("mock sms sent")
	return nil
}
