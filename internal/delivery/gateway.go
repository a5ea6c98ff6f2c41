package delivery

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

// GatewayConfig addresses one chat on a WhatsApp HTTP gateway.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Session string
	ChatID  string
	Timeout time.Duration
}

// GatewayChannel sends image messages through a WhatsApp HTTP gateway.
type GatewayChannel struct {
	cfg    GatewayConfig
	client *http.Client
}

// NewGatewayChannel creates a gateway channel. A nil client gets one with cfg.Timeout.
func NewGatewayChannel(cfg GatewayConfig, client *http.Client) *GatewayChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GatewayChannel{cfg: cfg, client: client}
}

func (c *GatewayChannel) Name() string {
	return "gateway:" + c.cfg.ChatID
}

type gatewayFile struct {
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
}

type gatewayRequest struct {
	Session string      `json:"session"`
	ChatID  string      `json:"chatId"`
	File    gatewayFile `json:"file"`
	Caption string      `json:"caption"`
}

func (c *GatewayChannel) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(gatewayRequest{
		Session: c.cfg.Session,
		ChatID:  c.cfg.ChatID,
		File:    gatewayFile{URL: msg.PhotoURL, Mimetype: "image/jpeg"},
		Caption: msg.Caption,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/sendImage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
