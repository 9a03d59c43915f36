package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatrelay/internal/interfaces"

	"go.uber.org/zap"
)

var ErrEmptyChannel = errors.New("channel id is required")

// StatusError carries a non-2xx response from the chat server.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat server returned status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// ChatClient posts messages to the chat server's REST API.
type ChatClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewChatClient uses a client without a timeout when httpClient is nil.
// Cancellation comes from the caller's context.
func NewChatClient(baseURL string, httpClient *http.Client, logger *zap.Logger) interfaces.Messenger {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ChatClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// SendMessage issues a single POST to /api/v1/messages/{channelID}. The channel
// ID goes into the path as given. The response body is returned unmodified.
func (c *ChatClient) SendMessage(ctx context.Context, channelID, content, token string) (json.RawMessage, error) {
	if channelID == "" {
		return nil, ErrEmptyChannel
	}

	url := c.baseURL + "/api/v1/messages/" + channelID
	data, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending chat message", zap.String("channel_id", channelID), zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("chat message request failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("chat server rejected message",
			zap.String("channel_id", channelID),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response", body))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	return json.RawMessage(body), nil
}
