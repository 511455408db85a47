package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/annotator/internal/domains/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&UserEntity{}))
	return db
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	repo := NewGormUserRepo(setupTestDB(t))
	ctx := context.Background()

	u := &user.User{ID: 1001, Email: "ann@example.com", Name: "Ann", Avatar: "a.png"}
	require.NoError(t, repo.Upsert(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	changed := &user.User{ID: 1001, Email: "ann@example.org", Name: "Ann B.", Avatar: "b.png"}
	require.NoError(t, repo.Upsert(ctx, changed))

	loaded, err := repo.GetByID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.org", loaded.Email)
	assert.Equal(t, "Ann B.", loaded.Name)
	assert.Equal(t, "b.png", loaded.Avatar)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewGormUserRepo(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserServiceUpsertMapsPicture(t *testing.T) {
	svc := user.NewUserService(NewGormUserRepo(setupTestDB(t)), nil)

	u, err := svc.Upsert(context.Background(), user.Profile{
		ID: 7, Email: "bob@example.com", Name: "Bob", Picture: "https://example.com/bob.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bob.png", u.Avatar)

	got, err := svc.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
}
