package ingest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xpanvictor/annotator/internal/domains/recording"
)

// AlternativeMessage is one ranked recognizer candidate on the wire.
type AlternativeMessage struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Message is a recognized utterance as published by an ASR worker. Body is
// mono 16-bit little-endian PCM and travels base64 encoded. Alternatives are
// ordered best-first by the producer.
type Message struct {
	ID           uuid.UUID            `json:"id" validate:"required"`
	Model        string               `json:"model" validate:"required,max=128,modelname"`
	Body         []byte               `json:"body" validate:"required,evenbytes"`
	FrameRate    int                  `json:"frame_rate" validate:"required,gt=0"`
	Alternatives []AlternativeMessage `json:"alternatives" validate:"required,min=1,dive"`
}

// DomainAlternatives converts the wire alternatives, preserving order.
func (m *Message) DomainAlternatives() []recording.Alternative {
	alternatives := make([]recording.Alternative, len(m.Alternatives))
	for i, a := range m.Alternatives {
		alternatives[i] = recording.Alternative{Transcript: a.Transcript, Confidence: a.Confidence}
	}
	return alternatives
}

// DecodeError reports a message that could not be parsed or failed validation.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed recording message (%s): %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns a raw queue payload into a validated Message.
type Decoder func(raw []byte) (*Message, error)

var (
	modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	validate         = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// model names become file names
	_ = v.RegisterValidation("modelname", func(fl validator.FieldLevel) bool {
		return modelNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("evenbytes", func(fl validator.FieldLevel) bool {
		return fl.Field().Len()%2 == 0
	})
	return v
}

// Decode parses the JSON wire form and validates every field.
func Decode(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{Reason: "unparseable payload", Err: err}
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, &DecodeError{Reason: "invalid fields", Err: err}
	}
	return &msg, nil
}

// Encode is the producer-side counterpart of Decode.
func Encode(msg *Message) ([]byte, error) {
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("refusing to encode invalid message: %w", err)
	}
	return json.Marshal(msg)
}

// IDFromUUID maps a message UUID to the recording id: the first eight bytes
// read big-endian with the sign bit cleared, so the id fits a signed BIGINT.
// The mapping is stateless and therefore stable across processes.
func IDFromUUID(u uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(u[:8]) & math.MaxInt64)
}
