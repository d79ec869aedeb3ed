package matters

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Matter is a legal case or engagement that owns documents.
type Matter struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string     `gorm:"column:title;not null" json:"title"`
	Description  string     `gorm:"column:description;type:text;not null;default:''" json:"description"`
	PracticeArea string     `gorm:"column:practice_area;not null;default:''" json:"practice_area"`
	ClientID     *uuid.UUID `gorm:"type:uuid;column:client_id;index" json:"client_id,omitempty"`

	Members []MatterMember `gorm:"foreignKey:MatterID;constraint:OnDelete:CASCADE" json:"members,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Matter) TableName() string { return "matter" }

func (m *Matter) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MatterMember links a principal to the matter team.
type MatterMember struct {
	MatterID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"matter_id"`
	PrincipalID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"principal_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (MatterMember) TableName() string { return "matter_member" }
