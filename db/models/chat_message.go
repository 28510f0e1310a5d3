package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat message statuses. Only human-authored messages awaiting a bot reply
// carry a status.
const (
	MessagePending    = "pending"
	MessageProcessing = "processing"
	MessageComplete   = "complete"
)

type ChatMessage struct {
	ID string `gorm:"primaryKey;type:text"`

	// Empty BoardID means the message is global (not attached to a board).
	BoardID string `gorm:"type:text;index"`

	AuthorKind string `gorm:"type:text;not null;index"`
	AuthorUser string `gorm:"type:text"`

	Content string `gorm:"type:text;not null"`
	Status  string `gorm:"type:text"`

	// Correlation fields.
	TaskID  string `gorm:"type:text;index"`
	ReplyTo string `gorm:"type:text"`

	// MetaType marks a proactive alert subtype (stuck-task-alert,
	// daily-briefing, task-created). Indexed so the idempotence check can
	// query "same alert for this task in the last 24h" cheaply.
	MetaType string            `gorm:"type:text;index"`
	Meta     map[string]string `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"index"`
}

func (m *ChatMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
