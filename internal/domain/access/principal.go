package access

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Principal is an authenticated user. Role is authoritative here and is never
// taken from a request body.
type Principal struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName string    `gorm:"column:full_name;not null;default:''" json:"full_name"`
	Role     Role      `gorm:"column:role;not null;index" json:"role"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Principal) TableName() string { return "principal" }

func (p *Principal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
