package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexi-backend/internal/domain"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type PrincipalRepo interface {
	Create(dbc dbctx.Context, p *types.Principal) (*types.Principal, error)
	// GetByID returns nil, nil when the principal does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Principal, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Principal, error)
}

type principalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrincipalRepo(db *gorm.DB, log *logger.Logger) PrincipalRepo {
	return &principalRepo{db: db, log: log.With("repo", "PrincipalRepo")}
}

func (r *principalRepo) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.Conn(r.db)
}

func (r *principalRepo) Create(dbc dbctx.Context, p *types.Principal) (*types.Principal, error) {
	if p == nil {
		return nil, fmt.Errorf("missing principal")
	}
	if !p.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", p.Role)
	}
	if err := r.tx(dbc).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *principalRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Principal, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.Principal
	err := r.tx(dbc).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *principalRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Principal, error) {
	if email == "" {
		return nil, fmt.Errorf("missing email")
	}
	var out types.Principal
	err := r.tx(dbc).Where("email = ?", email).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
