package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID string `gorm:"primaryKey;type:text"`

	TenantID string `gorm:"type:text;not null;index"`
	Title    string `gorm:"type:text;not null"`

	Archived   bool `gorm:"not null;default:0"`
	ArchivedAt *time.Time

	Columns []Column `gorm:"foreignKey:BoardID;references:ID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Board) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type Column struct {
	ID string `gorm:"primaryKey;type:text"`

	BoardID  string `gorm:"type:text;not null;index"`
	Title    string `gorm:"type:text;not null"`
	Position int    `gorm:"not null;default:0"`
}

func (c *Column) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
