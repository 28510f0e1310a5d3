package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/moltboard/moltbot/db/models"
)

// Header names are load-bearing for the remote verifier.
const (
	SignatureHeader = "X-Moltboard-Signature"
	TimestampHeader = "X-Moltboard-Timestamp"

	defaultTimeout = 10 * time.Second
	maxErrorChars  = 500
)

// IntegrationStore is the persistence surface the dispatcher needs: durable
// status bookkeeping is the only trace a failed delivery leaves behind.
type IntegrationStore interface {
	UpdateIntegrationStatus(ctx context.Context, id, status string, errMsg *string) error
}

// OutboundMessage is the chat message relayed to the gateway.
type OutboundMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type payloadMeta struct {
	TenantID      string `json:"tenantId"`
	UserID        string `json:"userId"`
	IntegrationID string `json:"integrationId"`
	Timestamp     string `json:"timestamp"`
}

type payload struct {
	Type    string          `json:"type"`
	Message OutboundMessage `json:"message"`
	Meta    payloadMeta     `json:"meta"`
}

// Result reports one delivery attempt. Delivery failures are results, never
// errors: there is no retry, no backoff and no queue.
type Result struct {
	Success   bool
	Error     string
	LatencyMs int64
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher signs and POSTs outbound payloads to a tenant-configured gateway
// URL, one attempt per call.
type Dispatcher struct {
	store   IntegrationStore
	client  *http.Client
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewDispatcher(store IntegrationStore, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	d := &Dispatcher{
		store:   store,
		client:  &http.Client{},
		log:     slog.Default(),
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Send serializes the payload once, signs the exact bytes with the
// integration's secret and POSTs them. The integration's status record is
// updated durably on both outcomes; a failed status write is logged, not
// returned.
func (d *Dispatcher) Send(ctx context.Context, integ models.Integration, msg OutboundMessage) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	now := d.now().UTC()

	body, err := json.Marshal(payload{
		Type:    "message",
		Message: msg,
		Meta: payloadMeta{
			TenantID:      integ.TenantID,
			UserID:        integ.UserID,
			IntegrationID: integ.ID,
			Timestamp:     now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return d.fail(ctx, integ, 0, fmt.Sprintf("encode payload: %v", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, integ.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return d.fail(ctx, integ, 0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(integ.WebhookSecret, body))
	req.Header.Set(TimestampHeader, now.Format(time.RFC3339))

	start := time.Now()
	resp, err := d.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return d.fail(ctx, integ, latency, fmt.Sprintf("deliver: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return d.fail(ctx, integ, latency, fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, snippet))
	}

	if err := d.store.UpdateIntegrationStatus(ctx, integ.ID, models.IntegrationConnected, nil); err != nil {
		d.log.Warn("webhook_status_update_error", "integration_id", integ.ID, "error", err.Error())
	}
	d.log.Info("webhook_delivered", "integration_id", integ.ID, "latency_ms", latency)
	return Result{Success: true, LatencyMs: latency}
}

func (d *Dispatcher) fail(ctx context.Context, integ models.Integration, latency int64, msg string) Result {
	msg = truncate(msg, maxErrorChars)
	if err := d.store.UpdateIntegrationStatus(ctx, integ.ID, models.IntegrationError, &msg); err != nil {
		d.log.Warn("webhook_status_update_error", "integration_id", integ.ID, "error", err.Error())
	}
	d.log.Warn("webhook_delivery_error", "integration_id", integ.ID, "latency_ms", latency, "error", msg)
	return Result{Success: false, Error: msg, LatencyMs: latency}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
