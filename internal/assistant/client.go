// Package assistant forwards free-text questions to an OpenAI-compatible
// Chat Completions endpoint and returns the model's reply verbatim.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/pkg/logger"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("assistant not configured: missing API key")

// Client calls the language model
type Client struct {
	cfg    config.AssistantConfig
	client *http.Client
	log    *zap.Logger
}

// NewClient creates a new assistant client
func NewClient(cfg config.AssistantConfig) *Client {
	if cfg.PathSuffix == "" {
		cfg.PathSuffix = "/v1/chat/completions"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("assistant"),
	}
}

// BuildRequest wraps message in a Chat Completions request, prefixed with
// the configured system prompt
func BuildRequest(cfg config.AssistantConfig, message string) *models.ChatCompletionRequest {
	var messages []models.ChatMessage
	if cfg.SystemPrompt != "" {
		messages = append(messages, models.ChatMessage{Role: "system", Content: cfg.SystemPrompt})
	}
	messages = append(messages, models.ChatMessage{Role: "user", Content: message})

	req := &models.ChatCompletionRequest{
		Model:     cfg.Model,
		Messages:  messages,
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.Temperature > 0 {
		t := cfg.Temperature
		req.Temperature = &t
	}
	return req
}

// ExtractReply returns the first choice's content unchanged
func ExtractReply(resp *models.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("empty reply")
	}
	return reply, nil
}

// Reply sends message to the model and returns its answer
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	log := logger.FromContext(ctx, c.log)

	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	chatReq := BuildRequest(c.cfg, message)
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	targetURL := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.PathSuffix
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	log.Debug("sending request to assistant",
		zap.String("target_url", targetURL),
		zap.String("model", chatReq.Model),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach assistant: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("assistant returned %d: %s", resp.StatusCode, upstreamMessage(respBody))
	}

	var chatResp models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	reply, err := ExtractReply(&chatResp)
	if err != nil {
		return "", err
	}

	log.Info("assistant replied",
		zap.String("model", chatResp.Model),
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
	)
	return reply, nil
}

// upstreamMessage pulls a readable message out of an error body
func upstreamMessage(body []byte) string {
	var errResp models.UpstreamErrorBody
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error.Message != "" {
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}
