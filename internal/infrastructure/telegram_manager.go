package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"chatrelay/internal/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramMessenger sends through the Telegram Bot API. The token passed to
// SendMessage is the bot token; one BotAPI is kept per token.
type TelegramMessenger struct {
	bots       map[string]*tgbotapi.BotAPI
	mu         sync.Mutex
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// defaultTelegramTimeout bounds each Bot API call when no client is supplied.
const defaultTelegramTimeout = 30 * time.Second

func NewTelegramMessenger(endpoint string, httpClient *http.Client, logger *zap.Logger) interfaces.Messenger {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTelegramTimeout}
	}
	return &TelegramMessenger{
		bots:       make(map[string]*tgbotapi.BotAPI),
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// contextClient binds every Bot API request to ctx.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// bot returns the cached bot for token, creating it on first use. The getMe
// call runs without holding t.mu.
func (t *TelegramMessenger) bot(ctx context.Context, token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	bot, ok := t.bots[token]
	t.mu.Unlock()
	if ok {
		return bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, t.endpoint, contextClient{ctx: ctx, client: t.httpClient})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	bot.Client = t.httpClient

	t.mu.Lock()
	defer t.mu.Unlock()
	if cached, ok := t.bots[token]; ok {
		return cached, nil
	}
	t.bots[token] = bot
	t.logger.Info("telegram bot connected", zap.String("bot", bot.Self.UserName))
	return bot, nil
}

// SendMessage posts content to the chat identified by channelID.
func (t *TelegramMessenger) SendMessage(ctx context.Context, channelID, content, token string) (json.RawMessage, error) {
	if channelID == "" {
		return nil, ErrEmptyChannel
	}
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", channelID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cached, err := t.bot(ctx, token)
	if err != nil {
		return nil, err
	}

	// Shallow copy so this call's context does not leak into the cached bot.
	bot := *cached
	bot.Client = contextClient{ctx: ctx, client: t.httpClient}

	sent, err := bot.Send(tgbotapi.NewMessage(chatID, content))
	if err != nil {
		t.logger.Error("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return json.Marshal(sent)
}

// Bots returns how many bot tokens are cached.
func (t *TelegramMessenger) Bots() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bots)
}
