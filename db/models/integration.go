package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Integration connection statuses.
const (
	IntegrationPending   = "pending"
	IntegrationConnected = "connected"
	IntegrationError     = "error"
)

// Integration is the per-tenant record connecting Moltboard to an external
// chat-gateway webhook endpoint. The raw API key and webhook secret are only
// ever returned to the client at creation/regeneration time; reads expose the
// masked prefix only.
type Integration struct {
	ID string `gorm:"primaryKey;type:text"`

	TenantID string `gorm:"type:text;not null;index"`
	UserID   string `gorm:"type:text;index"`
	Name     string `gorm:"type:text;not null"`

	WebhookURL string `gorm:"type:text;not null"`

	APIKeyHash   string `gorm:"type:text;not null"`
	APIKeyPrefix string `gorm:"type:text;not null"`

	// HMAC-SHA256 signing secret for outbound payloads. Empty disables
	// signature verification on the receiving side.
	WebhookSecret string `gorm:"type:text"`

	Enabled bool   `gorm:"not null;default:1"`
	Status  string `gorm:"type:text;not null;default:'pending'"`

	MessagesSent     int64 `gorm:"not null;default:0"`
	MessagesReceived int64 `gorm:"not null;default:0"`

	LastError       *string `gorm:"type:text"`
	LastErrorAt     *time.Time
	LastConnectedAt *time.Time
	LastMessageAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Integration) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
