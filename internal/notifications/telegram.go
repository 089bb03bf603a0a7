// Package notifications delivers commute summaries to the configured outbound
// channels. Each channel adapts one provider API behind the types.Channel
// contract; the Dispatcher fans a message out to every enabled channel and
// reports failure only when none of them got the message through.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"commutewatch/internal/types"
)

// telegramBaseURL is the Bot API host; overridable for tests.
const telegramBaseURL = "https://api.telegram.org"

// Doer is the outbound HTTP contract, satisfied by external.BaseClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TelegramChannel sends messages through the Telegram Bot API.
type TelegramChannel struct {
	doer     Doer
	baseURL  string
	botToken types.SecretString
	chatID   string
}

// TelegramChannelConfig holds the configuration for creating a TelegramChannel.
type TelegramChannelConfig struct {
	Doer     Doer
	BaseURL  string // defaults to the public Bot API host
	BotToken types.SecretString
	ChatID   string
}

// NewTelegramChannel creates a TelegramChannel with the given configuration.
func NewTelegramChannel(cfg TelegramChannelConfig) *TelegramChannel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return &TelegramChannel{
		doer:     cfg.Doer,
		baseURL:  baseURL,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
	}
}

// Type returns the channel identifier.
func (c *TelegramChannel) Type() types.ChannelType { return types.ChannelTelegram }

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts the message via sendMessage with Markdown formatting.
func (c *TelegramChannel) Send(ctx context.Context, message string) (*types.DeliveryResult, error) {
	payload, err := json.Marshal(telegramSendRequest{
		ChatID:    c.chatID,
		Text:      message,
		ParseMode: "Markdown",
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "encoding telegram payload", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken.Unmask())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building telegram request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return &types.DeliveryResult{
			Channel:       types.ChannelTelegram,
			Status:        types.DeliveryFailed,
			FailureReason: err.Error(),
			Retryable:     true,
		}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFailed, "reading telegram response", err)
	}

	var parsed telegramSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFailed, "decoding telegram response", err)
	}

	if !parsed.OK {
		result := &types.DeliveryResult{
			Channel:       types.ChannelTelegram,
			Status:        types.DeliveryFailed,
			FailureReason: parsed.Description,
			Retryable:     resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
		return result, types.NewAppError(
			types.ErrCodeDeliveryFailed,
			fmt.Sprintf("telegram rejected message: %s", parsed.Description),
			nil,
		)
	}

	return &types.DeliveryResult{
		Channel:           types.ChannelTelegram,
		Status:            types.DeliverySent,
		ProviderMessageID: strconv.FormatInt(parsed.Result.MessageID, 10),
	}, nil
}
