package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"commutewatch/internal/types"
)

// twilioBaseURL is the Messages API host; overridable for tests.
const twilioBaseURL = "https://api.twilio.com"

// TwilioChannel sends WhatsApp messages through the Twilio Messages API.
type TwilioChannel struct {
	doer       Doer
	baseURL    string
	accountSID types.SecretString
	authToken  types.SecretString
	from       string
	to         string
}

// TwilioChannelConfig holds the configuration for creating a TwilioChannel.
type TwilioChannelConfig struct {
	Doer       Doer
	BaseURL    string // defaults to the public Twilio API host
	AccountSID types.SecretString
	AuthToken  types.SecretString
	From       string
	To         string
}

// NewTwilioChannel creates a TwilioChannel with the given configuration.
func NewTwilioChannel(cfg TwilioChannelConfig) *TwilioChannel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	return &TwilioChannel{
		doer:       cfg.Doer,
		baseURL:    baseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       whatsappAddress(cfg.From),
		to:         whatsappAddress(cfg.To),
	}
}

// whatsappAddress ensures the number carries the whatsapp: channel prefix
// Twilio expects.
func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// Type returns the channel identifier.
func (c *TwilioChannel) Type() types.ChannelType { return types.ChannelWhatsApp }

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error description on failure
}

// Send posts the message as a form-encoded create-message request with basic
// auth, the shape Twilio's REST API expects.
func (c *TwilioChannel) Send(ctx context.Context, message string) (*types.DeliveryResult, error) {
	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", c.to)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID.Unmask())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building twilio request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID.Unmask(), c.authToken.Unmask())

	resp, err := c.doer.Do(req)
	if err != nil {
		return &types.DeliveryResult{
			Channel:       types.ChannelWhatsApp,
			Status:        types.DeliveryFailed,
			FailureReason: err.Error(),
			Retryable:     true,
		}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFailed, "reading twilio response", err)
	}

	var parsed twilioMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, types.NewAppError(types.ErrCodeDeliveryFailed, "decoding twilio response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result := &types.DeliveryResult{
			Channel:       types.ChannelWhatsApp,
			Status:        types.DeliveryFailed,
			FailureReason: parsed.Message,
			Retryable:     resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
		return result, types.NewAppError(
			types.ErrCodeDeliveryFailed,
			fmt.Sprintf("twilio rejected message (status %d): %s", resp.StatusCode, parsed.Message),
			nil,
		)
	}

	return &types.DeliveryResult{
		Channel:           types.ChannelWhatsApp,
		Status:            types.DeliverySent,
		ProviderMessageID: parsed.SID,
	}, nil
}
