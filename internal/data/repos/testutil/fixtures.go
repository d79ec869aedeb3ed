package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexi-backend/internal/domain"
)

func SeedPrincipal(tb testing.TB, ctx context.Context, tx *gorm.DB, role types.Role) *types.Principal {
	tb.Helper()
	id := uuid.New()
	p := &types.Principal{
		ID:       id,
		Email:    id.String() + "@lexi.test",
		FullName: string(role) + " user",
		Role:     role,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed principal: %v", err)
	}
	return p
}

func SeedMatter(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Matter {
	tb.Helper()
	m := &types.Matter{
		ID:           uuid.New(),
		Title:        title,
		PracticeArea: "Litigation",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed matter: %v", err)
	}
	return m
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, principalID uuid.UUID) *types.ChatSession {
	tb.Helper()
	s := &types.ChatSession{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Name:        types.DefaultSessionName,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
