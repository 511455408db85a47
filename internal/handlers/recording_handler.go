package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/pkg/Logger"
)

// RecordingHandler handles recording-related HTTP requests
type RecordingHandler struct {
	recordingService recording.RecordingService
	logger           *Logger.Logger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordingService recording.RecordingService, logger *Logger.Logger) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
		logger:           logger,
	}
}

// GetModels lists models with their recording counts
// @Summary List models
// @Tags Recordings
// @Produce json
// @Success 200 {object} ModelsResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/models [get]
func (h *RecordingHandler) GetModels(c *gin.Context) {
	models, err := h.recordingService.GetModels(c.Request.Context())
	if err != nil {
		h.internalError(c, "get models", err)
		return
	}
	if models == nil {
		models = []recording.ModelCount{}
	}
	c.JSON(http.StatusOK, ModelsResponse{Models: models})
}

// GetRecordings lists every recording of one model
// @Summary List recordings of a model
// @Tags Recordings
// @Produce json
// @Param model path string true "Model name"
// @Success 200 {object} RecordingsResponse
// @Router /api/models/{model}/recordings [get]
func (h *RecordingHandler) GetRecordings(c *gin.Context) {
	model := c.Param("model")
	recs, err := h.recordingService.GetRecordings(c.Request.Context(), model)
	if err != nil {
		h.internalError(c, "get recordings", err)
		return
	}
	if recs == nil {
		recs = []recording.Recording{}
	}
	c.JSON(http.StatusOK, RecordingsResponse{Model: model, Recordings: recs})
}

// GetRecording returns one recording with hypotheses and transcriptions
// @Summary Get recording
// @Tags Recordings
// @Produce json
// @Param id path int true "Recording ID"
// @Success 200 {object} RecordingResponse
// @Failure 400 {object} ErrorResponse "Invalid recording ID"
// @Failure 404 {object} ErrorResponse "Recording not found"
// @Router /api/recordings/{id} [get]
func (h *RecordingHandler) GetRecording(c *gin.Context) {
	id, ok := parseRecordingID(c)
	if !ok {
		return
	}

	rec, err := h.recordingService.GetRecording(c.Request.Context(), id)
	if err != nil {
		h.recordingError(c, "get recording", err)
		return
	}
	c.JSON(http.StatusOK, RecordingResponse{Recording: *rec})
}

// GetRandomRecording returns the next recording to annotate
// @Summary Next recording to annotate
// @Tags Recordings
// @Produce json
// @Success 200 {object} RecordingResponse
// @Failure 404 {object} ErrorResponse "No recordings yet"
// @Router /api/random-recording [get]
func (h *RecordingHandler) GetRandomRecording(c *gin.Context) {
	rec, err := h.recordingService.GetRandomRecording(c.Request.Context())
	if err != nil {
		h.recordingError(c, "get random recording", err)
		return
	}
	c.JSON(http.StatusOK, RecordingResponse{Recording: *rec})
}

// AddTranscription appends a human transcription and rescores the recording
// @Summary Add transcription
// @Tags Recordings
// @Accept json
// @Produce json
// @Param id path int true "Recording ID"
// @Param request body AddTranscriptionRequest true "Transcription"
// @Success 201 {object} AddTranscriptionResponse
// @Failure 400 {object} ErrorResponse "Invalid request data"
// @Failure 404 {object} ErrorResponse "Recording not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/recordings/{id}/transcriptions [post]
func (h *RecordingHandler) AddTranscription(c *gin.Context) {
	id, ok := parseRecordingID(c)
	if !ok {
		return
	}

	var req AddTranscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request data",
			Details: err.Error(),
		})
		return
	}

	rec, err := h.recordingService.AddTranscription(c.Request.Context(), req.UserID, id, req.Text,
		req.NativeSpeaker, req.OffensiveLanguage, req.NotASpeech)
	if err != nil {
		h.recordingError(c, "add transcription", err)
		return
	}

	c.JSON(http.StatusCreated, AddTranscriptionResponse{
		Message:   "Transcription added",
		Recording: *rec,
	})
}

func parseRecordingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid recording ID"})
		return 0, false
	}
	return id, true
}

func (h *RecordingHandler) recordingError(c *gin.Context, op string, err error) {
	if errors.Is(err, recording.ErrRecordingNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Recording not found"})
		return
	}
	h.internalError(c, op, err)
}

func (h *RecordingHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Errorf("%s error: %v", op, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
