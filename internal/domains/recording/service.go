package recording

import (
	"context"
	"errors"
	"fmt"

	"github.com/xpanvictor/annotator/pkg/Logger"
)

// RecordingService defines the ingestion and annotation operations on recordings
type RecordingService interface {
	// Ingestion
	SaveRecording(ctx context.Context, id int64, model string, body []byte, frameRate int, alternatives []Alternative) error
	DiscardAudio(path string) error

	// Reads
	GetModels(ctx context.Context) ([]ModelCount, error)
	GetRecordings(ctx context.Context, model string) ([]Recording, error)
	GetRecording(ctx context.Context, id int64) (*Recording, error)
	GetRandomRecording(ctx context.Context) (*Recording, error)

	// Annotation
	AddTranscription(ctx context.Context, userID int64, id int64, text string, nativeSpeaker, offensiveLanguage, notASpeech bool) (*Recording, error)
}

type recordingService struct {
	repository RecordingRepository
	audio      AudioStore
	scorer     ScoreUpdater
	logger     *Logger.Logger
}

// NewRecordingService wires a service. A nil scorer falls back to KeepScore.
func NewRecordingService(repository RecordingRepository, audio AudioStore, scorer ScoreUpdater, logger *Logger.Logger) RecordingService {
	if scorer == nil {
		scorer = KeepScore
	}
	if logger == nil {
		logger = Logger.Nop()
	}
	return &recordingService{
		repository: repository,
		audio:      audio,
		scorer:     scorer,
		logger:     logger,
	}
}

// SaveRecording writes the audio file, then persists the aggregate. On a
// database failure the written file is left in place and its path is
// reported in the returned *PersistenceError; the caller decides whether to
// discard it.
func (s *recordingService) SaveRecording(ctx context.Context, id int64, model string, body []byte, frameRate int, alternatives []Alternative) error {
	if len(alternatives) == 0 {
		return ErrNoAlternatives
	}

	path, url, err := s.audio.SaveWAV(id, model, body, frameRate)
	if err != nil {
		return &StorageError{Path: path, Err: err}
	}

	rec, err := NewRecording(id, model, path, url, alternatives)
	if err != nil {
		return err
	}

	if err := s.repository.Create(ctx, rec); err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) {
			pe.AudioPath = path
			return pe
		}
		return &PersistenceError{Op: "create recording", AudioPath: path, Err: err}
	}

	s.logger.Debugf("recording %d saved: model=%s hypotheses=%d path=%s", id, model, len(rec.Hypotheses), path)
	return nil
}

// DiscardAudio removes an audio file left behind by a failed save.
func (s *recordingService) DiscardAudio(path string) error {
	if path == "" {
		return nil
	}
	if err := s.audio.Remove(path); err != nil {
		return &StorageError{Path: path, Err: err}
	}
	s.logger.Infof("orphaned audio removed: %s", path)
	return nil
}

// GetModels implements RecordingService
func (s *recordingService) GetModels(ctx context.Context) ([]ModelCount, error) {
	return s.repository.ModelCounts(ctx)
}

// GetRecordings implements RecordingService
func (s *recordingService) GetRecordings(ctx context.Context, model string) ([]Recording, error) {
	return s.repository.ListByModel(ctx, model)
}

// GetRecording implements RecordingService
func (s *recordingService) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	return s.repository.GetByID(ctx, id)
}

// GetRandomRecording returns the recording with the lowest rand_score. It
// does not mutate anything, so repeated calls return the same recording
// until a score update moves it.
func (s *recordingService) GetRandomRecording(ctx context.Context) (*Recording, error) {
	return s.repository.LowestRandScore(ctx)
}

// AddTranscription always appends a new row; identical submissions are not
// merged. The score strategy runs exactly once per call.
func (s *recordingService) AddTranscription(ctx context.Context, userID int64, id int64, text string, nativeSpeaker, offensiveLanguage, notASpeech bool) (*Recording, error) {
	t := Transcription{
		UserID:            userID,
		Text:              text,
		NativeSpeaker:     nativeSpeaker,
		OffensiveLanguage: offensiveLanguage,
		NotASpeech:        notASpeech,
	}

	rec, err := s.repository.AppendTranscription(ctx, id, t, func(rec Recording) (ScoreUpdate, error) {
		update, err := s.scorer.UpdateScore(rec)
		if err != nil {
			return ScoreUpdate{}, &ScoringError{RecordingID: id, Err: err}
		}
		return update, nil
	})
	if err != nil {
		if !errors.Is(err, ErrRecordingNotFound) {
			s.logger.Errorf("add transcription to recording %d failed (%s): %v", id, FailedLayer(err), err)
		}
		return nil, fmt.Errorf("add transcription: %w", err)
	}

	s.logger.Infof("transcription added to recording %d by user %d, score=%.4f", id, userID, rec.Score)
	return rec, nil
}
