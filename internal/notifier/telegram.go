package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/orb-scanner/internal/datasource"
	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
)

// ErrDeliveryFailed marks a message that did not reach the chat
var ErrDeliveryFailed = errors.New("delivery failed")

// Notifier delivers a batch of signals
type Notifier interface {
	Notify(ctx context.Context, signals []models.Signal) error
}

// TelegramConfig configures the Telegram sink
type TelegramConfig struct {
	APIURL       string
	BotToken     string
	ChatID       string
	Timeout      time.Duration
	FallbackPath string
	Window       string
	Location     *time.Location
}

// TelegramNotifier posts Markdown messages through the Bot API sendMessage call
type TelegramNotifier struct {
	cfg    TelegramConfig
	client *datasource.RateLimitedHTTPClient
	logger logrus.FieldLogger
	now    func() time.Time
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// HTTPClientConfig returns the Bot API client settings. The client keeps its
// own circuit breaker so provider outages do not block delivery.
func HTTPClientConfig(timeout time.Duration) datasource.HTTPClientConfig {
	cfg := datasource.DefaultHTTPClientConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.MaxRetries = 2
	cfg.RateLimit = 1
	return cfg
}

// NewTelegramNotifier creates a Telegram sink. A nil client gets a dedicated
// one built from HTTPClientConfig.
func NewTelegramNotifier(cfg TelegramConfig, client *datasource.RateLimitedHTTPClient, logger logrus.FieldLogger) *TelegramNotifier {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if client == nil {
		client = datasource.NewRateLimitedHTTPClient(HTTPClientConfig(cfg.Timeout), logger)
	}
	return &TelegramNotifier{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// Notify formats and sends signals. On failure the rendered message is saved
// to the fallback file and an error wrapping ErrDeliveryFailed is returned.
func (n *TelegramNotifier) Notify(ctx context.Context, signals []models.Signal) error {
	message := FormatMessage(signals, n.now().In(n.cfg.Location), n.cfg.Window)

	sendErr := n.send(ctx, message)
	if sendErr == nil {
		if n.logger != nil {
			n.logger.WithField("signals", len(signals)).Info("Telegram message sent")
		}
		return nil
	}

	metrics.RecordDeliveryFailure()
	if err := n.writeFallback(message); err != nil {
		return fmt.Errorf("%w: %v (fallback not written: %v)", ErrDeliveryFailed, sendErr, err)
	}
	return fmt.Errorf("%w: %v", ErrDeliveryFailed, sendErr)
}

// FallbackPath returns where undelivered messages are saved
func (n *TelegramNotifier) FallbackPath() string {
	return n.cfg.FallbackPath
}

func (n *TelegramNotifier) send(ctx context.Context, message string) error {
	if n.cfg.BotToken == "" || n.cfg.ChatID == "" {
		return fmt.Errorf("telegram credentials are not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("chat_id", n.cfg.ChatID)
	form.Set("text", message)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.cfg.APIURL, "/"), n.cfg.BotToken)
	resp, err := n.client.Post(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sendMessage returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to parse sendMessage response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("sendMessage rejected: %s", parsed.Description)
	}
	return nil
}

func (n *TelegramNotifier) writeFallback(message string) error {
	if n.cfg.FallbackPath == "" {
		return fmt.Errorf("no fallback file configured")
	}
	if dir := filepath.Dir(n.cfg.FallbackPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(n.cfg.FallbackPath, []byte(message), 0o644); err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.WithField("path", n.cfg.FallbackPath).Warn("Telegram message saved locally")
	}
	return nil
}

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
