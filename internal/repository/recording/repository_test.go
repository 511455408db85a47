package recording

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/annotator/internal/domains/recording"
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

	// one connection, otherwise every pooled connection sees its own empty :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&RecordingEntity{}, &HypothesisEntity{}, &TranscriptionEntity{}))
	return db
}

func newRecording(t *testing.T, id int64, model string, alternatives ...recording.Alternative) *recording.Recording {
	t.Helper()
	if len(alternatives) == 0 {
		alternatives = []recording.Alternative{{Transcript: "hello world", Confidence: 0.9}}
	}
	rec, err := recording.NewRecording(id, model, "/data/"+model+".wav", "/static/data/"+model+".wav", alternatives)
	require.NoError(t, err)
	return rec
}

func TestCreateAndGetByID(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()

	alternatives := []recording.Alternative{
		{Transcript: "dobrý den", Confidence: 0.81},
		{Transcript: "dobry den", Confidence: 0.64},
		{Transcript: "do bry den", Confidence: 0.12},
	}
	rec := newRecording(t, 42, "cs-alex", alternatives...)
	require.NoError(t, repo.Create(ctx, rec))
	assert.True(t, rec.Persisted())

	loaded, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), loaded.ID)
	assert.Equal(t, "cs-alex", loaded.Model)
	assert.Equal(t, rec.Path, loaded.Path)
	assert.Equal(t, rec.URL, loaded.URL)
	assert.Equal(t, 0.81, loaded.Score)
	assert.Equal(t, 0.81, loaded.RandScore)
	require.Len(t, loaded.Hypotheses, len(alternatives))
	for i, alt := range alternatives {
		assert.Equal(t, alt.Transcript, loaded.Hypotheses[i].Text, "hypothesis %d", i)
		assert.Equal(t, alt.Confidence, loaded.Hypotheses[i].Confidence, "hypothesis %d", i)
		assert.Equal(t, rec.Hypotheses[i].ID, loaded.Hypotheses[i].ID)
	}
	assert.Empty(t, loaded.Transcriptions)
	assert.ErrorIs(t, loaded.AddHypothesis("late", 0.1), recording.ErrHypothesesSealed)
}

func TestCreateDuplicateIDIsPersistenceError(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecording(t, 7, "en")))
	err := repo.Create(ctx, newRecording(t, 7, "en"))

	var pe *recording.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create recording", pe.Op)
	assert.Equal(t, recording.LayerDatabase, recording.FailedLayer(err))
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, recording.ErrRecordingNotFound)
}

func TestModelCounts(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecording(t, 1, "en")))
	require.NoError(t, repo.Create(ctx, newRecording(t, 2, "en")))
	require.NoError(t, repo.Create(ctx, newRecording(t, 3, "cz")))

	counts, err := repo.ModelCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []recording.ModelCount{
		{Model: "cz", Count: 1},
		{Model: "en", Count: 2},
	}, counts)
}

func TestListByModel(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecording(t, 10, "en")))
	require.NoError(t, repo.Create(ctx, newRecording(t, 11, "cz")))
	require.NoError(t, repo.Create(ctx, newRecording(t, 12, "en")))

	recs, err := repo.ListByModel(ctx, "en")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(10), recs[0].ID)
	assert.Equal(t, int64(12), recs[1].ID)

	recs, err = repo.ListByModel(ctx, "de")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLowestRandScore(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.LowestRandScore(ctx)
	require.ErrorIs(t, err, recording.ErrRecordingNotFound)

	require.NoError(t, repo.Create(ctx, newRecording(t, 1, "en", recording.Alternative{Transcript: "a", Confidence: 0.7})))
	require.NoError(t, repo.Create(ctx, newRecording(t, 2, "en", recording.Alternative{Transcript: "b", Confidence: 0.2})))
	require.NoError(t, repo.Create(ctx, newRecording(t, 3, "cz", recording.Alternative{Transcript: "c", Confidence: 0.5})))

	first, err := repo.LowestRandScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.ID)

	second, err := repo.LowestRandScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "selection must be stable without intervening updates")
}

func TestAppendTranscriptionNeverDeduplicates(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecording(t, 5, "en")))

	calls := 0
	score := func(rec recording.Recording) (recording.ScoreUpdate, error) {
		calls++
		return recording.ScoreUpdate{Score: float64(len(rec.Transcriptions))}, nil
	}
	tr := recording.Transcription{UserID: 3, Text: "hello world", NativeSpeaker: true}

	_, err := repo.AppendTranscription(ctx, 5, tr, score)
	require.NoError(t, err)
	rec, err := repo.AppendTranscription(ctx, 5, tr, score)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, rec.Transcriptions, 2)
	assert.NotEqual(t, rec.Transcriptions[0].ID, rec.Transcriptions[1].ID)
	assert.Equal(t, 2.0, rec.Score)

	loaded, err := repo.GetByID(ctx, 5)
	require.NoError(t, err)
	require.Len(t, loaded.Transcriptions, 2)
	assert.Equal(t, "hello world", loaded.Transcriptions[1].Text)
	assert.True(t, loaded.Transcriptions[1].NativeSpeaker)
	assert.Equal(t, 2.0, loaded.Score)
	assert.Equal(t, 0.9, loaded.RandScore, "nil RandScore leaves rand_score untouched")
}

func TestAppendTranscriptionUpdatesRandScore(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecording(t, 1, "en", recording.Alternative{Transcript: "a", Confidence: 0.1})))
	require.NoError(t, repo.Create(ctx, newRecording(t, 2, "en", recording.Alternative{Transcript: "b", Confidence: 0.3})))

	bumped := 0.95
	_, err := repo.AppendTranscription(ctx, 1, recording.Transcription{UserID: 1, Text: "a"},
		func(rec recording.Recording) (recording.ScoreUpdate, error) {
			return recording.ScoreUpdate{Score: rec.Score, RandScore: &bumped}, nil
		})
	require.NoError(t, err)

	next, err := repo.LowestRandScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestAppendTranscriptionNotFound(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))

	called := false
	_, err := repo.AppendTranscription(context.Background(), 404, recording.Transcription{UserID: 1, Text: "x"},
		func(rec recording.Recording) (recording.ScoreUpdate, error) {
			called = true
			return recording.ScoreUpdate{}, nil
		})
	assert.ErrorIs(t, err, recording.ErrRecordingNotFound)
	assert.False(t, called)
}

func TestAppendTranscriptionScoringFailureRollsBack(t *testing.T) {
	repo := NewGormRecordingRepo(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecording(t, 8, "en")))

	boom := errors.New("formula unavailable")
	_, err := repo.AppendTranscription(ctx, 8, recording.Transcription{UserID: 1, Text: "x"},
		func(rec recording.Recording) (recording.ScoreUpdate, error) {
			return recording.ScoreUpdate{}, &recording.ScoringError{RecordingID: rec.ID, Err: boom}
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, recording.LayerScoring, recording.FailedLayer(err))

	loaded, err := repo.GetByID(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, loaded.Transcriptions, "transcription insert must roll back with the failed score update")
}
