package user

import (
	"time"

	"github.com/xpanvictor/annotator/internal/domains/user"
)

// UserEntity represents the database entity for User with GORM tags
type UserEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Email     string    `gorm:"type:varchar(191);not null"`
	Name      string    `gorm:"type:varchar(255)"`
	Avatar    string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (UserEntity) TableName() string {
	return "user"
}

// ToDomain converts UserEntity to domain User
func (u *UserEntity) ToDomain() *user.User {
	return &user.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserEntityFromDomain creates a new UserEntity from domain User
func NewUserEntityFromDomain(domainUser *user.User) *UserEntity {
	return &UserEntity{
		ID:        domainUser.ID,
		Email:     domainUser.Email,
		Name:      domainUser.Name,
		Avatar:    domainUser.Avatar,
		CreatedAt: domainUser.CreatedAt,
		UpdatedAt: domainUser.UpdatedAt,
	}
}
