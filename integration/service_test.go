package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/moltboard/moltbot/db/models"
)

type fakeIntegrationStore struct {
	integs []*models.Integration
	nextID int
}

func (f *fakeIntegrationStore) InsertIntegration(_ context.Context, integ *models.Integration) error {
	f.nextID++
	if integ.ID == "" {
		integ.ID = fmt.Sprintf("integ-%d", f.nextID)
	}
	f.integs = append(f.integs, integ)
	return nil
}

func (f *fakeIntegrationStore) FindIntegration(_ context.Context, id string) (*models.Integration, error) {
	for _, integ := range f.integs {
		if integ.ID == id {
			return integ, nil
		}
	}
	return nil, fmt.Errorf("integration %s not found", id)
}

func (f *fakeIntegrationStore) ListEnabledIntegrations(_ context.Context, tenantID string) ([]models.Integration, error) {
	var out []models.Integration
	for _, integ := range f.integs {
		if integ.TenantID == tenantID && integ.Enabled {
			out = append(out, *integ)
		}
	}
	return out, nil
}

func (f *fakeIntegrationStore) UpdateIntegrationSecrets(_ context.Context, id, keyHash, keyPrefix, webhookSecret string) error {
	integ, err := f.FindIntegration(context.Background(), id)
	if err != nil {
		return err
	}
	integ.APIKeyHash = keyHash
	integ.APIKeyPrefix = keyPrefix
	integ.WebhookSecret = webhookSecret
	return nil
}

func testService(t *testing.T) (*Service, *fakeIntegrationStore) {
	t.Helper()
	store := &fakeIntegrationStore{}
	svc, err := NewService(store, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestNewAPIKey_Shape(t *testing.T) {
	key, err := NewAPIKey()
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if !strings.HasPrefix(key, "mb_") {
		t.Fatalf("key = %q", key)
	}
	if len(key) != len("mb_")+32 {
		t.Fatalf("key length = %d", len(key))
	}

	other, err := NewAPIKey()
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if key == other {
		t.Fatal("two keys collided")
	}
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	key, _ := NewAPIKey()
	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == key || strings.Contains(hash, key) {
		t.Fatal("hash leaks the raw key")
	}
	if !VerifyAPIKey(hash, key) {
		t.Fatal("valid key rejected")
	}
	if VerifyAPIKey(hash, key+"x") {
		t.Fatal("tampered key accepted")
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("mb_1f2e3d4c"); got != "mb_1f2e3d4c..." {
		t.Fatalf("mask = %q", got)
	}
	if got := MaskKey(""); got != "" {
		t.Fatalf("mask of empty = %q", got)
	}
}

func TestCreate_ReturnsOneTimeCredentials(t *testing.T) {
	svc, store := testService(t)

	integ, creds, err := svc.Create(context.Background(), "t1", "mike", "Slack bridge", "https://hooks.example.com/molt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if creds.APIKey == "" || creds.WebhookSecret == "" {
		t.Fatalf("creds = %+v", creds)
	}
	if integ.APIKeyHash == creds.APIKey {
		t.Fatal("raw key persisted")
	}
	if integ.APIKeyPrefix != KeyPrefix(creds.APIKey) {
		t.Fatalf("prefix = %q", integ.APIKeyPrefix)
	}
	if integ.Status != models.IntegrationPending || !integ.Enabled {
		t.Fatalf("integration = %+v", integ)
	}
	if len(store.integs) != 1 {
		t.Fatalf("stored = %d", len(store.integs))
	}
}

func TestCreate_RejectsBadWebhookURL(t *testing.T) {
	svc, _ := testService(t)
	if _, _, err := svc.Create(context.Background(), "t1", "mike", "bad", "ftp://example.com"); err == nil {
		t.Fatal("want error for non-http url")
	}
}

func TestRegenerate_InvalidatesOldKey(t *testing.T) {
	svc, _ := testService(t)
	integ, old, err := svc.Create(context.Background(), "t1", "mike", "Slack bridge", "https://hooks.example.com/molt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fresh, err := svc.Regenerate(context.Background(), integ.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if fresh.APIKey == old.APIKey || fresh.WebhookSecret == old.WebhookSecret {
		t.Fatal("rotation reused credentials")
	}

	if _, err := svc.Authenticate(context.Background(), "t1", old.APIKey); err == nil {
		t.Fatal("old key still authenticates")
	}
	got, err := svc.Authenticate(context.Background(), "t1", fresh.APIKey)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != integ.ID {
		t.Fatalf("authenticated wrong integration: %s", got.ID)
	}
}

func TestList_MasksKeys(t *testing.T) {
	svc, _ := testService(t)
	_, creds, err := svc.Create(context.Background(), "t1", "mike", "Slack bridge", "https://hooks.example.com/molt")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	views, err := svc.List(context.Background(), "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d", len(views))
	}
	view := views[0]
	if view.MaskedKey != KeyPrefix(creds.APIKey)+"..." {
		t.Fatalf("masked = %q", view.MaskedKey)
	}
	if strings.Contains(view.MaskedKey, creds.APIKey) {
		t.Fatal("view leaks the raw key")
	}
}
