package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultSessionName = "New Chat"

type ChatSession struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PrincipalID uuid.UUID `gorm:"type:uuid;column:principal_id;not null;index" json:"principal_id"`
	Name        string    `gorm:"column:name;not null;default:'New Chat'" json:"name"`

	// NextSeq orders messages within the session; bumped atomically on append.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (ChatSession) TableName() string { return "chat_session" }

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
