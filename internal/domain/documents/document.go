package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/domain/access"
)

// VectorStatus tracks where a document sits in the index lifecycle.
type VectorStatus string

const (
	VectorStatusCreated             VectorStatus = "created"
	VectorStatusVectorizing         VectorStatus = "vectorizing"
	VectorStatusVectorized          VectorStatus = "vectorized"
	VectorStatusVectorizationFailed VectorStatus = "vectorization_failed"
	VectorStatusFlushing            VectorStatus = "flushing"
	VectorStatusRevectorizing       VectorStatus = "revectorizing"
	VectorStatusVectorsDeleted      VectorStatus = "vectors_deleted"
)

// DocumentRecord is the vault row. EncryptedBlob is the only copy of the
// content at rest; IsVectorized is true only after verification saw the
// document's chunks in the index.
type DocumentRecord struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Filename      string             `gorm:"column:filename;not null" json:"filename"`
	MatterID      uuid.UUID          `gorm:"type:uuid;column:matter_id;not null;index" json:"matter_id"`
	Sensitivity   access.Sensitivity `gorm:"column:sensitivity;not null;index" json:"sensitivity"`
	EncryptedBlob []byte             `gorm:"column:encrypted_blob;not null" json:"-"`
	IsVectorized  bool               `gorm:"column:is_vectorized;not null;default:false;index" json:"is_vectorized"`
	VectorStatus  VectorStatus       `gorm:"column:vector_status;not null;default:'created';index" json:"vector_status"`
	ChunkCount    int                `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (DocumentRecord) TableName() string { return "document_record" }

func (d *DocumentRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
