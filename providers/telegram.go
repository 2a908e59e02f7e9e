package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramAPI is the Bot API base URL
const TelegramAPI = "https://api.telegram.org"

// Telegram sends job summaries to a chat through the Bot API
type Telegram struct {
	botToken string
	baseURL  string
	client   *HTTPClient
}

// NewTelegram registers the bot token
func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		botToken: botToken,
		baseURL:  TelegramAPI,
		client:   NewHTTPClient(5*time.Second, 0),
	}
}

// Send posts summary to the chat identified by contact
func (t *Telegram) Send(ctx context.Context, contact, summary string) error {
	if t.botToken == "" || contact == "" {
		return errors.New("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	form := url.Values{}
	form.Set("chat_id", contact)
	form.Set("text", summary)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
