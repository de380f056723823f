package push

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/planloop/planloop-api/internal/domain"
)

// Result classifies one delivery attempt.
type Result int

const (
	// ResultOK means the push service accepted the message.
	ResultOK Result = iota

	// ResultTransient means delivery failed in a way that may succeed on a
	// later attempt (network errors, timeouts, 5xx, rate limiting). The
	// subscription is left untouched; the next due window retries
	// naturally because the last-sent marker was never advanced.
	ResultTransient

	// ResultGone means the push service reported the endpoint as
	// permanently dead (expired or revoked subscription). The caller must
	// delete the subscription record.
	ResultGone
)

// String returns the labels used in logs.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultTransient:
		return "transient"
	case ResultGone:
		return "gone"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a single delivery attempt, carrying
// the underlying error for logging when delivery failed.
type Outcome struct {
	Result Result
	Err    error
}

// Dispatcher delivers one payload to one subscription's endpoint. A
// dispatcher attempts delivery exactly once per call; retry policy belongs
// to the caller.
type Dispatcher interface {
	Send(ctx context.Context, sub *domain.PushSubscription, payload Payload) Outcome
}

// VAPIDConfig holds the application server identity for Web Push.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string

	// Subscriber is the operator contact (mailto: or https: URL) push
	// services may use to reach whoever runs this application server.
	Subscriber string
}

// WebPushDispatcher is the production Dispatcher backed by the Web Push
// protocol. It is an explicitly constructed dependency: all transport
// configuration lives on the instance, never in package-level state.
type WebPushDispatcher struct {
	vapid   VAPIDConfig
	timeout time.Duration
	client  *http.Client
}

// NewWebPushDispatcher creates a dispatcher with the given VAPID identity
// and per-attempt timeout. A nil client falls back to a default HTTP
// client; the per-attempt timeout is enforced via context regardless.
func NewWebPushDispatcher(
	vapid VAPIDConfig,
	timeout time.Duration,
	client *http.Client,
) *WebPushDispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &WebPushDispatcher{
		vapid:   vapid,
		timeout: timeout,
		client:  client,
	}
}

// Ensure WebPushDispatcher implements Dispatcher
var _ Dispatcher = (*WebPushDispatcher)(nil)

// Send implements Dispatcher. The message is encrypted and posted to the
// subscription's endpoint; the response status is classified into an
// Outcome. Context cancellation and timeouts surface as transient failures.
func (d *WebPushDispatcher) Send(
	ctx context.Context,
	sub *domain.PushSubscription,
	payload Payload,
) Outcome {
	body, err := payload.Marshal()
	if err != nil {
		return Outcome{
			Result: ResultTransient,
			Err:    fmt.Errorf("failed to marshal payload: %w", err),
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(sendCtx, body,
		&webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.KeyP256dh,
				Auth:   sub.KeyAuth,
			},
		},
		&webpush.Options{
			HTTPClient:      d.client,
			Subscriber:      d.vapid.Subscriber,
			VAPIDPublicKey:  d.vapid.PublicKey,
			VAPIDPrivateKey: d.vapid.PrivateKey,
			TTL:             defaultTTLSeconds,
		},
	)
	if err != nil {
		return Outcome{
			Result: ResultTransient,
			Err:    fmt.Errorf("push delivery failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	return classifyStatus(resp.StatusCode)
}

// defaultTTLSeconds is how long push services may queue an undelivered
// message. Window notifications are only meaningful on the day they fire,
// so one day is plenty.
const defaultTTLSeconds = 86400

// classifyStatus maps a push service response status to an Outcome.
// 404 and 410 are the statuses push services use for subscriptions that
// will never again accept messages.
func classifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return Outcome{Result: ResultOK}
	case status == http.StatusNotFound || status == http.StatusGone:
		return Outcome{
			Result: ResultGone,
			Err:    fmt.Errorf("endpoint gone: push service returned %d", status),
		}
	default:
		return Outcome{
			Result: ResultTransient,
			Err:    fmt.Errorf("push service returned %d", status),
		}
	}
}
