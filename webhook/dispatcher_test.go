package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moltboard/moltbot/db/models"
)

type fakeIntegrationStore struct {
	mu       sync.Mutex
	statuses []string
	lastErr  *string
}

func (f *fakeIntegrationStore) UpdateIntegrationStatus(_ context.Context, _ string, status string, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.lastErr = errMsg
	return nil
}

func testIntegration(url string) models.Integration {
	return models.Integration{
		ID:            "int-1",
		TenantID:      "t1",
		UserID:        "u1",
		WebhookURL:    url,
		WebhookSecret: "s3cret",
		Enabled:       true,
		Status:        models.IntegrationPending,
	}
}

func testMessage() OutboundMessage {
	return OutboundMessage{
		ID:        "m1",
		Content:   "Created task **call John**",
		Author:    "agent",
		CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherSendSuccess(t *testing.T) {
	var gotBody []byte
	var gotSig, gotTS, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		gotTS = r.Header.Get(TimestampHeader)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := &fakeIntegrationStore{}
	d, err := NewDispatcher(store)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := d.Send(context.Background(), testIntegration(srv.URL), testMessage())
	if !res.Success {
		t.Fatalf("send failed: %s", res.Error)
	}
	if res.LatencyMs < 0 {
		t.Fatalf("latency = %d", res.LatencyMs)
	}

	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if gotTS == "" {
		t.Fatalf("missing timestamp header")
	}
	// The signature must verify over the exact received bytes.
	if !Verify("s3cret", gotBody, gotSig) {
		t.Fatalf("signature does not verify over received body")
	}

	var decoded struct {
		Type    string `json:"type"`
		Message struct {
			ID string `json:"id"`
		} `json:"message"`
		Meta struct {
			TenantID      string `json:"tenantId"`
			IntegrationID string `json:"integrationId"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Type != "message" || decoded.Message.ID != "m1" || decoded.Meta.TenantID != "t1" || decoded.Meta.IntegrationID != "int-1" {
		t.Fatalf("unexpected payload: %s", gotBody)
	}

	if len(store.statuses) != 1 || store.statuses[0] != models.IntegrationConnected {
		t.Fatalf("statuses = %v", store.statuses)
	}
}

func TestDispatcherSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	store := &fakeIntegrationStore{}
	d, err := NewDispatcher(store)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := d.Send(context.Background(), testIntegration(srv.URL), testMessage())
	if res.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Error, "502") {
		t.Fatalf("error = %q", res.Error)
	}
	if len(store.statuses) != 1 || store.statuses[0] != models.IntegrationError {
		t.Fatalf("statuses = %v", store.statuses)
	}
	if store.lastErr == nil || *store.lastErr == "" {
		t.Fatalf("error message not recorded")
	}
}

func TestDispatcherSendNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse connections

	store := &fakeIntegrationStore{}
	d, err := NewDispatcher(store)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := d.Send(context.Background(), testIntegration(srv.URL), testMessage())
	if res.Success {
		t.Fatalf("expected failure")
	}
	if len(store.statuses) != 1 || store.statuses[0] != models.IntegrationError {
		t.Fatalf("statuses = %v", store.statuses)
	}
}

func TestDispatcherTruncatesLongErrors(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, long, http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeIntegrationStore{}
	d, err := NewDispatcher(store)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := d.Send(context.Background(), testIntegration(srv.URL), testMessage())
	if res.Success {
		t.Fatalf("expected failure")
	}
	if len(res.Error) > maxErrorChars {
		t.Fatalf("error length = %d, want <= %d", len(res.Error), maxErrorChars)
	}
}
