package handlers

import (
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/internal/domains/user"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Something went wrong"`
	Details string `json:"details,omitempty" example:"Validation error details"`
}

// ModelsResponse lists the recognizer models with their recording counts
type ModelsResponse struct {
	Models []recording.ModelCount `json:"models"`
}

// RecordingsResponse represents the response for listing a model's recordings
type RecordingsResponse struct {
	Model      string                `json:"model"`
	Recordings []recording.Recording `json:"recordings"`
}

// RecordingResponse represents the response for getting a single recording
type RecordingResponse struct {
	Recording recording.Recording `json:"recording"`
}

// AddTranscriptionRequest is the body of a transcription submission
type AddTranscriptionRequest struct {
	UserID            int64  `json:"userId" binding:"required"`
	Text              string `json:"text"`
	NativeSpeaker     bool   `json:"nativeSpeaker"`
	OffensiveLanguage bool   `json:"offensiveLanguage"`
	NotASpeech        bool   `json:"notASpeech"`
}

// AddTranscriptionResponse carries the rescored recording
type AddTranscriptionResponse struct {
	Message   string              `json:"message" example:"Transcription added"`
	Recording recording.Recording `json:"recording"`
}

// UserResponse represents the response for an upserted or fetched user
type UserResponse struct {
	User user.User `json:"user"`
}
