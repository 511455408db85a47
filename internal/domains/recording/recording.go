package recording

import (
	"errors"
	"time"
)

// Alternative is one ranked ASR candidate as produced by the recognizer.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Hypothesis is an Alternative persisted with its Recording.
type Hypothesis struct {
	ID         uint64  `json:"id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcription is a human annotation of a Recording. Append-only.
type Transcription struct {
	ID                uint64    `json:"id"`
	UserID            int64     `json:"userId"`
	Text              string    `json:"text"`
	NativeSpeaker     bool      `json:"nativeSpeaker"`
	OffensiveLanguage bool      `json:"offensiveLanguage"`
	NotASpeech        bool      `json:"notASpeech"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Recording is the aggregate root for one ingested audio file.
type Recording struct {
	ID             int64           `json:"id"`
	Model          string          `json:"model"`
	Path           string          `json:"-"`
	URL            string          `json:"url"`
	Score          float64         `json:"score"`
	RandScore      float64         `json:"randScore"`
	Hypotheses     []Hypothesis    `json:"hypotheses"`
	Transcriptions []Transcription `json:"transcriptions"`

	persisted bool
}

// ModelCount is one row of the per-model recording histogram.
type ModelCount struct {
	Model string `json:"model"`
	Count int64  `json:"count"`
}

var (
	ErrNoAlternatives   = errors.New("recording needs at least one alternative")
	ErrHypothesesSealed = errors.New("hypotheses are immutable once the recording is persisted")
)

// NewRecording builds an unpersisted aggregate. Both scores start at the
// confidence of the best (first) alternative; alternatives are kept in the
// order given.
func NewRecording(id int64, model, path, url string, alternatives []Alternative) (*Recording, error) {
	if len(alternatives) == 0 {
		return nil, ErrNoAlternatives
	}

	rec := &Recording{
		ID:         id,
		Model:      model,
		Path:       path,
		URL:        url,
		Score:      alternatives[0].Confidence,
		RandScore:  alternatives[0].Confidence,
		Hypotheses: make([]Hypothesis, 0, len(alternatives)),
	}
	for _, alt := range alternatives {
		if err := rec.AddHypothesis(alt.Transcript, alt.Confidence); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// AddHypothesis appends a hypothesis. Only valid before MarkPersisted.
func (r *Recording) AddHypothesis(text string, confidence float64) error {
	if r.persisted {
		return ErrHypothesesSealed
	}
	r.Hypotheses = append(r.Hypotheses, Hypothesis{Text: text, Confidence: confidence})
	return nil
}

// MarkPersisted seals the hypothesis list. Repositories call it after a
// successful insert and on every aggregate they load.
func (r *Recording) MarkPersisted() {
	r.persisted = true
}

// Persisted reports whether the aggregate came from (or was written to) storage.
func (r *Recording) Persisted() bool {
	return r.persisted
}
