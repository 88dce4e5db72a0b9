package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const telegramAPIURL = "https://api.telegram.org"

// Telegram posts alerts through the Bot API. Without a token or chat id it
// does nothing.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewTelegram(token, chatID string, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("component", "telegram"),
	}
}

// WithBaseURL points the client at another Bot API host.
func (t *Telegram) WithBaseURL(url string) *Telegram {
	t.baseURL = url
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) Send(ctx context.Context, a Alert) error {
	if t.token == "" || t.chatID == "" {
		t.logger.Debug("telegram not configured, skipping")
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: a.Message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
