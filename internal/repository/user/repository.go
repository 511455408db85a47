package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/xpanvictor/annotator/internal/domains/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormUserRepo struct {
	db *gorm.DB
}

// NewGormUserRepo creates a new GORM-based user repository
func NewGormUserRepo(db *gorm.DB) user.UserRepository {
	return &GormUserRepo{db: db}
}

// Upsert implements user.UserRepository
func (g *GormUserRepo) Upsert(ctx context.Context, u *user.User) error {
	entity := NewUserEntityFromDomain(u)
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar", "updated_at"}),
	}).Create(entity).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	// Reload so timestamps reflect the stored row rather than this call
	stored, err := g.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

// GetByID implements user.UserRepository
func (g *GormUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var entity UserEntity
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return entity.ToDomain(), nil
}
