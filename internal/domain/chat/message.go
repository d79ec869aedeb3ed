package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Citation is a snapshot of an indexed chunk taken at retrieval time.
type Citation struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename"`
	MatterID    string  `json:"matter_id"`
	Sensitivity string  `json:"sensitivity"`
	ChunkIndex  int     `json:"chunk_index"`
	TextSnippet string  `json:"text_snippet"`
	Score       float64 `json:"score"`
}

type ChatMessage struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID   `gorm:"type:uuid;column:session_id;not null;index:idx_chat_message_session_seq,unique,priority:1" json:"session_id"`
	Seq       int64       `gorm:"column:seq;not null;index:idx_chat_message_session_seq,unique,priority:2" json:"seq"`
	Role      MessageRole `gorm:"column:role;not null" json:"role"`
	Content   string      `gorm:"column:content;type:text;not null;default:''" json:"content"`
	// Citations is a JSON array of Citation; empty for user messages.
	Citations datatypes.JSON `gorm:"column:citations" json:"citations,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *ChatMessage) SetCitations(citations []Citation) error {
	if citations == nil {
		citations = []Citation{}
	}
	raw, err := json.Marshal(citations)
	if err != nil {
		return err
	}
	m.Citations = datatypes.JSON(raw)
	return nil
}

func (m *ChatMessage) DecodeCitations() ([]Citation, error) {
	if len(m.Citations) == 0 {
		return []Citation{}, nil
	}
	var out []Citation
	if err := json.Unmarshal(m.Citations, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Citation{}
	}
	return out, nil
}
