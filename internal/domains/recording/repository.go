package recording

import "context"

// ScoreFunc is invoked inside the AppendTranscription transaction with the
// aggregate that already contains the new transcription.
type ScoreFunc func(rec Recording) (ScoreUpdate, error)

// RecordingRepository defines the interface for recording data operations
type RecordingRepository interface {
	// Create inserts the recording and its hypotheses in one transaction
	Create(ctx context.Context, rec *Recording) error

	// ModelCounts returns the number of recordings per model, ascending by model
	ModelCounts(ctx context.Context) ([]ModelCount, error)

	// ListByModel returns every recording of a model in storage order
	ListByModel(ctx context.Context, model string) ([]Recording, error)

	// GetByID loads one aggregate
	GetByID(ctx context.Context, id int64) (*Recording, error)

	// LowestRandScore returns the recording with the smallest rand_score
	LowestRandScore(ctx context.Context) (*Recording, error)

	// AppendTranscription inserts t, calls score once and stores the
	// resulting scores, all in one transaction
	AppendTranscription(ctx context.Context, id int64, t Transcription, score ScoreFunc) (*Recording, error)
}

// AudioStore writes raw PCM as a playable audio file.
type AudioStore interface {
	SaveWAV(id int64, model string, body []byte, frameRate int) (path string, url string, err error)
	Remove(path string) error
}
