package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moltboard/moltbot/db/models"
)

type Store interface {
	InsertIntegration(ctx context.Context, integ *models.Integration) error
	FindIntegration(ctx context.Context, id string) (*models.Integration, error)
	ListEnabledIntegrations(ctx context.Context, tenantID string) ([]models.Integration, error)
	UpdateIntegrationSecrets(ctx context.Context, id, keyHash, keyPrefix, webhookSecret string) error
}

// Credentials carries the raw secrets returned to the caller at mint time.
// They are never retrievable again.
type Credentials struct {
	APIKey        string
	WebhookSecret string
}

// View is the read model for integrations: everything except the secrets,
// with the key reduced to its masked prefix.
type View struct {
	ID            string
	Name          string
	WebhookURL    string
	MaskedKey     string
	Enabled       bool
	Status        string
	MessagesSent  int64
	LastError     *string
	LastMessageAt *time.Time
}

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}, nil
}

// Create provisions a new integration and returns its one-time credentials.
func (s *Service) Create(ctx context.Context, tenantID, userID, name, webhookURL string) (*models.Integration, Credentials, error) {
	name = strings.TrimSpace(name)
	webhookURL = strings.TrimSpace(webhookURL)
	if tenantID == "" {
		return nil, Credentials{}, fmt.Errorf("tenant id is required")
	}
	if name == "" {
		return nil, Credentials{}, fmt.Errorf("name is required")
	}
	if !strings.HasPrefix(webhookURL, "http://") && !strings.HasPrefix(webhookURL, "https://") {
		return nil, Credentials{}, fmt.Errorf("webhook url must be http(s)")
	}

	creds, hash, prefix, err := mintCredentials()
	if err != nil {
		return nil, Credentials{}, err
	}

	integ := &models.Integration{
		TenantID:      tenantID,
		UserID:        userID,
		Name:          name,
		WebhookURL:    webhookURL,
		APIKeyHash:    hash,
		APIKeyPrefix:  prefix,
		WebhookSecret: creds.WebhookSecret,
		Enabled:       true,
		Status:        models.IntegrationPending,
	}
	if err := s.store.InsertIntegration(ctx, integ); err != nil {
		return nil, Credentials{}, err
	}
	s.log.Info("integration_created", "integration_id", integ.ID, "tenant_id", tenantID, "key_prefix", prefix)
	return integ, creds, nil
}

// Regenerate rotates both the API key and the webhook secret. The old
// credentials stop working immediately.
func (s *Service) Regenerate(ctx context.Context, id string) (Credentials, error) {
	integ, err := s.store.FindIntegration(ctx, id)
	if err != nil {
		return Credentials{}, err
	}

	creds, hash, prefix, err := mintCredentials()
	if err != nil {
		return Credentials{}, err
	}
	if err := s.store.UpdateIntegrationSecrets(ctx, integ.ID, hash, prefix, creds.WebhookSecret); err != nil {
		return Credentials{}, err
	}
	s.log.Info("integration_key_rotated", "integration_id", integ.ID, "key_prefix", prefix)
	return creds, nil
}

// Authenticate resolves a raw API key to the enabled integration it belongs
// to. The prefix narrows the candidates before the bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, tenantID, rawKey string) (*models.Integration, error) {
	integs, err := s.store.ListEnabledIntegrations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	prefix := KeyPrefix(rawKey)
	for i := range integs {
		if integs[i].APIKeyPrefix != prefix {
			continue
		}
		if VerifyAPIKey(integs[i].APIKeyHash, rawKey) {
			return &integs[i], nil
		}
	}
	return nil, fmt.Errorf("invalid api key")
}

// List returns masked read models for every enabled integration of a tenant.
func (s *Service) List(ctx context.Context, tenantID string) ([]View, error) {
	integs, err := s.store.ListEnabledIntegrations(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(integs))
	for _, integ := range integs {
		views = append(views, View{
			ID:            integ.ID,
			Name:          integ.Name,
			WebhookURL:    integ.WebhookURL,
			MaskedKey:     MaskKey(integ.APIKeyPrefix),
			Enabled:       integ.Enabled,
			Status:        integ.Status,
			MessagesSent:  integ.MessagesSent,
			LastError:     integ.LastError,
			LastMessageAt: integ.LastMessageAt,
		})
	}
	return views, nil
}

func mintCredentials() (Credentials, string, string, error) {
	key, err := NewAPIKey()
	if err != nil {
		return Credentials{}, "", "", err
	}
	secret, err := NewWebhookSecret()
	if err != nil {
		return Credentials{}, "", "", err
	}
	hash, err := HashAPIKey(key)
	if err != nil {
		return Credentials{}, "", "", err
	}
	return Credentials{APIKey: key, WebhookSecret: secret}, hash, KeyPrefix(key), nil
}
