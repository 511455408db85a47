package recording

import (
	"context"
	"errors"

	"github.com/xpanvictor/annotator/internal/domains/recording"
	"gorm.io/gorm"
)

type GormRecordingRepo struct {
	db *gorm.DB
}

// NewGormRecordingRepo creates a new GORM-based recording repository
func NewGormRecordingRepo(db *gorm.DB) recording.RecordingRepository {
	return &GormRecordingRepo{db: db}
}

func persistenceError(op string, err error) error {
	return &recording.PersistenceError{Op: op, Err: err}
}

// withChildren preloads hypotheses in producer order and transcriptions in
// insertion order.
func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Hypotheses", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Transcriptions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// Create implements recording.RecordingRepository
func (g *GormRecordingRepo) Create(ctx context.Context, rec *recording.Recording) error {
	entity := NewRecordingEntityFromDomain(rec)
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
	if err != nil {
		return persistenceError("create recording", err)
	}

	for i := range rec.Hypotheses {
		rec.Hypotheses[i].ID = entity.Hypotheses[i].ID
	}
	rec.MarkPersisted()
	return nil
}

// ModelCounts implements recording.RecordingRepository
func (g *GormRecordingRepo) ModelCounts(ctx context.Context) ([]recording.ModelCount, error) {
	var counts []recording.ModelCount
	err := g.db.WithContext(ctx).
		Model(&RecordingEntity{}).
		Select("model, COUNT(id) AS count").
		Group("model").
		Order("model ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, persistenceError("count models", err)
	}
	return counts, nil
}

// ListByModel implements recording.RecordingRepository
func (g *GormRecordingRepo) ListByModel(ctx context.Context, model string) ([]recording.Recording, error) {
	var entities []RecordingEntity
	err := withChildren(g.db.WithContext(ctx)).
		Where("model = ?", model).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, persistenceError("list recordings", err)
	}

	recordings := make([]recording.Recording, len(entities))
	for i := range entities {
		recordings[i] = *entities[i].ToDomain()
	}
	return recordings, nil
}

// GetByID implements recording.RecordingRepository
func (g *GormRecordingRepo) GetByID(ctx context.Context, id int64) (*recording.Recording, error) {
	entity, err := findByID(withChildren(g.db.WithContext(ctx)), id)
	if err != nil {
		return nil, err
	}
	return entity.ToDomain(), nil
}

// LowestRandScore implements recording.RecordingRepository. Ties are broken
// by id so the choice is stable.
func (g *GormRecordingRepo) LowestRandScore(ctx context.Context) (*recording.Recording, error) {
	var entity RecordingEntity
	err := withChildren(g.db.WithContext(ctx)).
		Order("rand_score ASC").
		Order("id ASC").
		Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recording.ErrRecordingNotFound
		}
		return nil, persistenceError("select random recording", err)
	}
	return entity.ToDomain(), nil
}

// AppendTranscription implements recording.RecordingRepository
func (g *GormRecordingRepo) AppendTranscription(ctx context.Context, id int64, t recording.Transcription, score recording.ScoreFunc) (*recording.Recording, error) {
	var result *recording.Recording

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := findByID(withChildren(tx), id)
		if err != nil {
			return err
		}

		te := newTranscriptionEntity(id, t)
		if err := tx.Create(te).Error; err != nil {
			return persistenceError("insert transcription", err)
		}
		entity.Transcriptions = append(entity.Transcriptions, *te)

		rec := entity.ToDomain()
		update, err := score(*rec)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"score": update.Score}
		rec.Score = update.Score
		if update.RandScore != nil {
			updates["rand_score"] = *update.RandScore
			rec.RandScore = *update.RandScore
		}
		if err := tx.Model(&RecordingEntity{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return persistenceError("update score", err)
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, classify("append transcription", err)
	}
	return result, nil
}

func findByID(db *gorm.DB, id int64) (*RecordingEntity, error) {
	var entity RecordingEntity
	if err := db.Where("id = ?", id).Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recording.ErrRecordingNotFound
		}
		return nil, persistenceError("get recording", err)
	}
	return &entity, nil
}

// classify passes typed errors through and wraps anything else (commit
// failures, driver errors) as a PersistenceError.
func classify(op string, err error) error {
	var (
		pe *recording.PersistenceError
		se *recording.ScoringError
	)
	if errors.Is(err, recording.ErrRecordingNotFound) || errors.As(err, &pe) || errors.As(err, &se) {
		return err
	}
	return persistenceError(op, err)
}
