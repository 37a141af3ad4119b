package telegram

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/funnelbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultLongPoll = 10 * time.Second
	// Extra time an API call may take beyond the long poll window.
	apiSlack = 20 * time.Second
)

// NewBot builds a bot from cfg without starting it. The webhook run mode
// listens on webhook.listen:webhook.port; every other mode long-polls.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, errors.New("telegram: nil config provided")
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: newPoller(cfg),
		Client: newAPIClient(longPollTimeout(cfg)),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

func isWebhook(cfg *coreconfig.Config) bool {
	return strings.EqualFold(strings.TrimSpace(cfg.Telegram.RunMode), coreconfig.RunModeWebhook)
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPoll
}

func newPoller(cfg *coreconfig.Config) tele.Poller {
	if isWebhook(cfg) {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

// newAPIClient returns the client for Bot API calls. getUpdates holds the
// response for up to poll, so every deadline leaves room for it. Each
// request is attempted once.
func newAPIClient(poll time.Duration) *http.Client {
	budget := poll + apiSlack
	return &http.Client{
		Timeout: budget + 5*time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          64,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: budget,
		},
	}
}
