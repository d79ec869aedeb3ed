package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/repos/access"
	"github.com/yungbote/lexi-backend/internal/data/repos/chat"
	"github.com/yungbote/lexi-backend/internal/data/repos/documents"
	"github.com/yungbote/lexi-backend/internal/data/repos/matters"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type Repos struct {
	Principals   access.PrincipalRepo
	Matters      matters.MatterRepo
	Documents    documents.DocumentRepo
	ChatSessions chat.ChatSessionRepo
	ChatMessages chat.ChatMessageRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Principals:   access.NewPrincipalRepo(db, log),
		Matters:      matters.NewMatterRepo(db, log),
		Documents:    documents.NewDocumentRepo(db, log),
		ChatSessions: chat.NewChatSessionRepo(db, log),
		ChatMessages: chat.NewChatMessageRepo(db, log),
	}
}
