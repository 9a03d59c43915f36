package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatrelay/internal/entities"
	"chatrelay/internal/interfaces"

	"go.uber.org/zap"
)

var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrEmptyContent    = errors.New("message content is empty")
)

// RelayService forwards messages to the messenger registered for their platform.
type RelayService struct {
	messengers map[string]interfaces.Messenger
	logger     *zap.Logger
}

func NewRelayService(logger *zap.Logger) *RelayService {
	return &RelayService{
		messengers: make(map[string]interfaces.Messenger),
		logger:     logger,
	}
}

// Register binds a messenger to a platform name. Not safe for use after serving starts.
func (s *RelayService) Register(platform string, m interfaces.Messenger) {
	s.messengers[platform] = m
}

// Platforms lists the registered platform names.
func (s *RelayService) Platforms() []string {
	names := make([]string, 0, len(s.messengers))
	for name := range s.messengers {
		names = append(names, name)
	}
	return names
}

// Relay sends msg once through its platform's messenger and returns the
// remote response unchanged. Errors from the messenger are returned as-is.
func (s *RelayService) Relay(ctx context.Context, msg entities.Message, token string) (json.RawMessage, error) {
	m, ok := s.messengers[msg.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, msg.Platform)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyContent
	}

	resp, err := m.SendMessage(ctx, msg.ChannelID, msg.Content, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info("message relayed",
		zap.String("platform", msg.Platform),
		zap.String("channel_id", msg.ChannelID))
	return resp, nil
}
