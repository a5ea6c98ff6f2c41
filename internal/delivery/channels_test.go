package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayChannel_Send(t *testing.T) {
	var got gatewayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sendImage", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ch := NewGatewayChannel(GatewayConfig{
		BaseURL: server.URL + "/",
		APIKey:  "secret",
		Session: "radar",
		ChatID:  "120363@newsletter",
	}, nil)

	err := ch.Send(context.Background(), Message{PhotoURL: "https://x/p.jpg", Caption: "🏆 Lomba"})
	require.NoError(t, err)

	assert.Equal(t, "gateway:120363@newsletter", ch.Name())
	assert.Equal(t, "radar", got.Session)
	assert.Equal(t, "120363@newsletter", got.ChatID)
	assert.Equal(t, "https://x/p.jpg", got.File.URL)
	assert.Equal(t, "🏆 Lomba", got.Caption)
}

func TestGatewayChannel_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session not started", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	ch := NewGatewayChannel(GatewayConfig{BaseURL: server.URL, ChatID: "x"}, nil)
	err := ch.Send(context.Background(), Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "session not started")
}

type recordingSender struct {
	sent []tgbotapi.Chattable
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{MessageID: 1}, nil
}

func TestTelegramChannel_SendsPhotoWithCaption(t *testing.T) {
	sender := &recordingSender{}
	ch := &TelegramChannel{bot: sender, chatID: -1001234}

	require.NoError(t, ch.Send(context.Background(), Message{PhotoURL: "https://x/p.jpg", Caption: "hello"}))

	require.Len(t, sender.sent, 1)
	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-1001234), photo.ChatID)
	assert.Equal(t, "hello", photo.Caption)
	assert.Equal(t, tgbotapi.FileURL("https://x/p.jpg"), photo.File)
	assert.Equal(t, "telegram:-1001234", ch.Name())
}

func TestNewTelegramChannel_AgainstFakeAPI(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		methods = append(methods, method)
		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Radar","username":"radar_bot"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":-100,"type":"channel"}}}`))
		}
	}))
	defer server.Close()

	ch, err := NewTelegramChannel(TelegramConfig{BotToken: "token", ChatID: -100, Endpoint: server.URL + "/bot%s/%s"}, server.Client())
	require.NoError(t, err)

	require.NoError(t, ch.Send(context.Background(), Message{PhotoURL: "https://x/p.jpg", Caption: "hi"}))
	assert.Equal(t, []string{"getMe", "sendPhoto"}, methods)
}

func TestTelegramChannel_StalledAPIHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Radar","username":"radar_bot"}}`))
			return
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ch, err := NewTelegramChannel(TelegramConfig{
		BotToken: "token",
		ChatID:   -100,
		Endpoint: server.URL + "/bot%s/%s",
		Timeout:  time.Second,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = ch.Send(ctx, Message{PhotoURL: "https://x/p.jpg", Caption: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTelegramChannel_ClientTimeoutWithoutDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Radar","username":"radar_bot"}}`))
			return
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ch, err := NewTelegramChannel(TelegramConfig{
		BotToken: "token",
		ChatID:   -100,
		Endpoint: server.URL + "/bot%s/%s",
		Timeout:  150 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	start := time.Now()
	err = ch.Send(context.Background(), Message{PhotoURL: "https://x/p.jpg"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
