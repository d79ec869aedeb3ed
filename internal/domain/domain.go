package domain

import (
	"github.com/yungbote/lexi-backend/internal/domain/access"
	"github.com/yungbote/lexi-backend/internal/domain/chat"
	"github.com/yungbote/lexi-backend/internal/domain/documents"
	"github.com/yungbote/lexi-backend/internal/domain/matters"
)

type (
	Role        = access.Role
	Sensitivity = access.Sensitivity
	Principal   = access.Principal

	Matter       = matters.Matter
	MatterMember = matters.MatterMember

	DocumentRecord = documents.DocumentRecord
	VectorStatus   = documents.VectorStatus
	VectorChunk    = documents.VectorChunk

	ChatSession = chat.ChatSession
	ChatMessage = chat.ChatMessage
	MessageRole = chat.MessageRole
	Citation    = chat.Citation
)

const (
	DefaultSessionName = chat.DefaultSessionName

	MessageRoleUser      = chat.RoleUser
	MessageRoleAssistant = chat.RoleAssistant
)

// Models lists every record-store table in migration order.
func Models() []any {
	return []any{
		&access.Principal{},
		&matters.Matter{},
		&matters.MatterMember{},
		&documents.DocumentRecord{},
		&chat.ChatSession{},
		&chat.ChatMessage{},
	}
}
