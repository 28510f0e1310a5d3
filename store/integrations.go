package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/moltboard/moltbot/db/models"
)

func (s *Store) InsertIntegration(ctx context.Context, integ *models.Integration) error {
	return s.db.WithContext(ctx).Create(integ).Error
}

func (s *Store) FindIntegration(ctx context.Context, id string) (*models.Integration, error) {
	var integ models.Integration
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&integ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("integration %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &integ, nil
}

func (s *Store) ListEnabledIntegrations(ctx context.Context, tenantID string) ([]models.Integration, error) {
	var integs []models.Integration
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("created_at asc").
		Find(&integs).Error
	return integs, err
}

// UpdateIntegrationSecrets replaces the stored credentials (key rotation).
func (s *Store) UpdateIntegrationSecrets(ctx context.Context, id, keyHash, keyPrefix, webhookSecret string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"api_key_hash":   keyHash,
			"api_key_prefix": keyPrefix,
			"webhook_secret": webhookSecret,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("integration %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateIntegrationStatus records the outcome of one delivery attempt. A
// connected status clears the error bookkeeping, bumps the connection
// timestamps and increments the sent counter; an error status records the
// (caller-truncated) message and its timestamp.
func (s *Store) UpdateIntegrationStatus(ctx context.Context, id, status string, errMsg *string) error {
	now := time.Now().UTC()
	updates := map[string]any{"status": status}
	switch status {
	case models.IntegrationConnected:
		updates["last_error"] = nil
		updates["last_error_at"] = nil
		updates["last_connected_at"] = now
		updates["last_message_at"] = now
		updates["messages_sent"] = gorm.Expr("messages_sent + 1")
	case models.IntegrationError:
		updates["last_error"] = errMsg
		updates["last_error_at"] = now
	}
	res := s.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("integration %s: %w", id, ErrNotFound)
	}
	return nil
}
