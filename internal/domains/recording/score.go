package recording

// ScoreUpdate carries the values a ScoreUpdater wants persisted. A nil
// RandScore leaves rand_score untouched.
type ScoreUpdate struct {
	Score     float64
	RandScore *float64
}

// ScoreUpdater recomputes a recording's score after a transcription was
// attached. Implementations must be pure functions of the aggregate they are
// given: replaying the same transcription sequence must yield the same score.
type ScoreUpdater interface {
	UpdateScore(rec Recording) (ScoreUpdate, error)
}

// ScoreUpdaterFunc adapts a plain function to ScoreUpdater.
type ScoreUpdaterFunc func(rec Recording) (ScoreUpdate, error)

func (f ScoreUpdaterFunc) UpdateScore(rec Recording) (ScoreUpdate, error) {
	return f(rec)
}

// KeepScore is the default strategy: it leaves both scores as they are.
// Deployments supply their own formula through NewRecordingService.
var KeepScore ScoreUpdater = ScoreUpdaterFunc(func(rec Recording) (ScoreUpdate, error) {
	return ScoreUpdate{Score: rec.Score}, nil
})
