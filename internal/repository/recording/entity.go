package recording

import (
	"time"

	"github.com/xpanvictor/annotator/internal/domains/recording"
)

// RecordingEntity represents the database entity for Recording with GORM tags
type RecordingEntity struct {
	ID             int64                 `gorm:"primaryKey;autoIncrement:false"`
	Model          string                `gorm:"type:varchar(191);index;not null"`
	Path           string                `gorm:"type:varchar(512);not null"`
	URL            string                `gorm:"column:url;type:varchar(512);not null"`
	Score          float64               `gorm:"not null"`
	RandScore      float64               `gorm:"column:rand_score;index;not null"`
	Hypotheses     []HypothesisEntity    `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
	Transcriptions []TranscriptionEntity `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (RecordingEntity) TableName() string {
	return "recording"
}

// HypothesisEntity is one ranked ASR candidate. Position keeps the
// producer's best-first order independent of the auto-increment id.
type HypothesisEntity struct {
	ID          uint64  `gorm:"primaryKey"`
	RecordingID int64   `gorm:"index;not null"`
	Position    int     `gorm:"not null"`
	Text        string  `gorm:"type:text;not null"`
	Confidence  float64 `gorm:"not null"`
}

func (HypothesisEntity) TableName() string {
	return "hypothesis"
}

type TranscriptionEntity struct {
	ID                uint64    `gorm:"primaryKey"`
	RecordingID       int64     `gorm:"index;not null"`
	UserID            int64     `gorm:"index;not null"`
	Text              string    `gorm:"type:text;not null"`
	NativeSpeaker     bool      `gorm:"column:native_speaker;not null"`
	OffensiveLanguage bool      `gorm:"column:offensive_language;not null"`
	NotASpeech        bool      `gorm:"column:not_a_speech;not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (TranscriptionEntity) TableName() string {
	return "transcription"
}

// ToDomain converts RecordingEntity to a sealed domain aggregate
func (e *RecordingEntity) ToDomain() *recording.Recording {
	rec := &recording.Recording{
		ID:             e.ID,
		Model:          e.Model,
		Path:           e.Path,
		URL:            e.URL,
		Score:          e.Score,
		RandScore:      e.RandScore,
		Hypotheses:     make([]recording.Hypothesis, len(e.Hypotheses)),
		Transcriptions: make([]recording.Transcription, len(e.Transcriptions)),
	}
	for i, h := range e.Hypotheses {
		rec.Hypotheses[i] = recording.Hypothesis{
			ID:         h.ID,
			Text:       h.Text,
			Confidence: h.Confidence,
		}
	}
	for i, t := range e.Transcriptions {
		rec.Transcriptions[i] = t.toDomain()
	}
	rec.MarkPersisted()
	return rec
}

func (t *TranscriptionEntity) toDomain() recording.Transcription {
	return recording.Transcription{
		ID:                t.ID,
		UserID:            t.UserID,
		Text:              t.Text,
		NativeSpeaker:     t.NativeSpeaker,
		OffensiveLanguage: t.OffensiveLanguage,
		NotASpeech:        t.NotASpeech,
		CreatedAt:         t.CreatedAt,
	}
}

// NewRecordingEntityFromDomain creates a new RecordingEntity, hypotheses
// included, from a domain Recording
func NewRecordingEntityFromDomain(rec *recording.Recording) *RecordingEntity {
	entity := &RecordingEntity{
		ID:         rec.ID,
		Model:      rec.Model,
		Path:       rec.Path,
		URL:        rec.URL,
		Score:      rec.Score,
		RandScore:  rec.RandScore,
		Hypotheses: make([]HypothesisEntity, len(rec.Hypotheses)),
	}
	for i, h := range rec.Hypotheses {
		entity.Hypotheses[i] = HypothesisEntity{
			RecordingID: rec.ID,
			Position:    i,
			Text:        h.Text,
			Confidence:  h.Confidence,
		}
	}
	return entity
}

func newTranscriptionEntity(recordingID int64, t recording.Transcription) *TranscriptionEntity {
	return &TranscriptionEntity{
		RecordingID:       recordingID,
		UserID:            t.UserID,
		Text:              t.Text,
		NativeSpeaker:     t.NativeSpeaker,
		OffensiveLanguage: t.OffensiveLanguage,
		NotASpeech:        t.NotASpeech,
	}
}
