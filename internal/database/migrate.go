package database

import (
	"fmt"

	recordingRepo "github.com/xpanvictor/annotator/internal/repository/recording"
	userRepo "github.com/xpanvictor/annotator/internal/repository/user"
	"gorm.io/gorm"
)

// MigrateDB creates or updates the recording, hypothesis, transcription and
// user tables.
func MigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&recordingRepo.RecordingEntity{},
		&recordingRepo.HypothesisEntity{},
		&recordingRepo.TranscriptionEntity{},
		&userRepo.UserEntity{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
