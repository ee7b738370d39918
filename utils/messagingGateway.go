package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MessageSender delivers a text message to a phone number on a channel
// ("sms" or "whatsapp").
type MessageSender interface {
	SendMessage(ctx context.Context, channel, phone, message string) error
}

// GatewayClient posts messages to an HTTP messaging gateway.
type GatewayClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewGatewayClient(baseURL, token string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type gatewayMessage struct {
	Channel string `json:"channel"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (g *GatewayClient) SendMessage(ctx context.Context, channel, phone, message string) error {
	body, err := json.Marshal(gatewayMessage{Channel: channel, Phone: phone, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging gateway request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("messaging gateway returned %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
