package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an append-only chat line.
type Message struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	User      string    `gorm:"column:user_name;not null"`
	Text      string    `gorm:"column:message;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
