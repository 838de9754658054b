package telegram

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"

	defaultLongPollTimeout = 10 * time.Second
)

// WebhookOptions declares where the webhook listener binds and the public
// URL Telegram is told to deliver updates to.
type WebhookOptions struct {
	Listen string
	Port   int
	URL    string
}

// PollerOptions selects the update delivery mode. Anything that is not
// webhook falls back to long polling.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns the telebot poller matching the configured run mode.
func BuildPoller(opts PollerOptions) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), RunModeWebhook) {
		return webhookPoller(opts.Webhook)
	}
	return longPoller(opts.LongPollTimeoutSeconds)
}

func webhookPoller(opts WebhookOptions) *tele.Webhook {
	return &tele.Webhook{
		Listen:   fmt.Sprintf("%s:%d", opts.Listen, opts.Port),
		Endpoint: &tele.WebhookEndpoint{PublicURL: opts.URL},
	}
}

func longPoller(timeoutSec int) *tele.LongPoller {
	timeout := defaultLongPollTimeout
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout}
}
