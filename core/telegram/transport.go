package telegram

import (
	"net"
	"net/http"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/squonkradio/core/config"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultPollTimeout = 10 * time.Second
	// uploadTimeout bounds one Bot API request. sendAudio with a full mp3
	// and file downloads are the slow ones.
	uploadTimeout = 2 * time.Minute
)

// AllowedUpdates lists the update kinds the bot handles. Telegram drops
// everything else before delivery.
var AllowedUpdates = []string{"message", "callback_query"}

// BuildPoller returns a webhook listener in webhook mode and a long poller
// otherwise.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		wh := cfg.Webhook
		return &tele.Webhook{
			Listen:         net.JoinHostPort(wh.Listen, strconv.Itoa(wh.Port)),
			SecretToken:    wh.SecretToken,
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: wh.URL},
		}
	}
	return &tele.LongPoller{Timeout: pollTimeout(cfg), AllowedUpdates: AllowedUpdates}
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeout; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultPollTimeout
}

// newHTTPClient sizes the client for this bot: few hosts, long uploads and
// a getUpdates call that is held open for the poll timeout.
func newHTTPClient(poll time.Duration) *http.Client {
	timeout := uploadTimeout
	if min := poll + 15*time.Second; timeout < min {
		timeout = min
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}
