package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"commutewatch/internal/types"
)

func TestTelegramChannel_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botbot-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload telegramSendRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.ChatID != "12345" {
			t.Errorf("chat_id = %q", payload.ChatID)
		}
		if payload.ParseMode != "Markdown" {
			t.Errorf("parse_mode = %q", payload.ParseMode)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]int{"message_id": 777},
		})
	}))
	defer server.Close()

	ch := NewTelegramChannel(TelegramChannelConfig{
		Doer:     http.DefaultClient,
		BaseURL:  server.URL,
		BotToken: types.SecretString("bot-token"),
		ChatID:   "12345",
	})

	result, err := ch.Send(context.Background(), "*113X* arriving in 4 minutes")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Status != types.DeliverySent {
		t.Errorf("status = %s", result.Status)
	}
	if result.ProviderMessageID != "777" {
		t.Errorf("message id = %q", result.ProviderMessageID)
	}
}

func TestTelegramChannel_APIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer server.Close()

	ch := NewTelegramChannel(TelegramChannelConfig{
		Doer:     http.DefaultClient,
		BaseURL:  server.URL,
		BotToken: types.SecretString("bot-token"),
		ChatID:   "nope",
	})

	result, err := ch.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if result == nil || result.Status != types.DeliveryFailed {
		t.Fatalf("result = %+v", result)
	}
	if result.Retryable {
		t.Error("a 400 rejection is not retryable")
	}
	if result.FailureReason != "Bad Request: chat not found" {
		t.Errorf("failure reason = %q", result.FailureReason)
	}
}

func TestTwilioChannel_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "auth-token" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("From"); got != "whatsapp:+15550001111" {
			t.Errorf("From = %q", got)
		}
		if got := r.FormValue("To"); got != "whatsapp:+15552223333" {
			t.Errorf("To = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "SM999", "status": "queued"})
	}))
	defer server.Close()

	ch := NewTwilioChannel(TwilioChannelConfig{
		Doer:       http.DefaultClient,
		BaseURL:    server.URL,
		AccountSID: types.SecretString("AC123"),
		AuthToken:  types.SecretString("auth-token"),
		From:       "+15550001111",
		To:         "whatsapp:+15552223333", // already prefixed, left alone
	})

	result, err := ch.Send(context.Background(), "train delayed")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.ProviderMessageID != "SM999" {
		t.Errorf("sid = %q", result.ProviderMessageID)
	}
}

func TestTwilioChannel_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"message": "service unavailable"})
	}))
	defer server.Close()

	ch := NewTwilioChannel(TwilioChannelConfig{
		Doer:       http.DefaultClient,
		BaseURL:    server.URL,
		AccountSID: types.SecretString("AC123"),
		AuthToken:  types.SecretString("auth-token"),
		From:       "+15550001111",
		To:         "+15552223333",
	})

	result, err := ch.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !result.Retryable {
		t.Error("a 503 should be retryable")
	}
}
