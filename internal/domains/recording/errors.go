package recording

import (
	"errors"
	"fmt"
)

var ErrRecordingNotFound = errors.New("recording not found")

// Layer names the part of the write path that failed.
type Layer string

const (
	LayerAudio    Layer = "audio"
	LayerDatabase Layer = "database"
	LayerScoring  Layer = "scoring"
)

// StorageError reports a failed audio file write.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audio storage failed for %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistenceError reports a failed database read or write. AudioPath is set
// when an audio file was already written for the failed save, so that
// reconciliation can find the orphan.
type PersistenceError struct {
	Op        string
	AudioPath string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ScoringError reports a failed ScoreUpdater call. The transaction it ran in
// is rolled back.
type ScoringError struct {
	RecordingID int64
	Err         error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score update failed for recording %d: %v", e.RecordingID, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// FailedLayer classifies an error returned by the service write path.
// It returns "" for nil and for errors outside the taxonomy.
func FailedLayer(err error) Layer {
	var (
		storageErr     *StorageError
		persistenceErr *PersistenceError
		scoringErr     *ScoringError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &storageErr):
		return LayerAudio
	case errors.As(err, &scoringErr):
		return LayerScoring
	case errors.As(err, &persistenceErr):
		return LayerDatabase
	}
	return ""
}
