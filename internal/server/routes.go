package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xpanvictor/annotator/internal/config"
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/internal/domains/user"
	"github.com/xpanvictor/annotator/internal/handlers"
	"github.com/xpanvictor/annotator/pkg/Logger"
)

type Dependencies struct {
	RecordingService recording.RecordingService
	UserService      user.UserService
	Gatherer         prometheus.Gatherer
	Logger           *Logger.Logger
}

func NewServerDependencies(
	recordingService recording.RecordingService,
	userService user.UserService,
	gatherer prometheus.Gatherer,
	logger *Logger.Logger,
) Dependencies {
	return Dependencies{
		RecordingService: recordingService,
		UserService:      userService,
		Gatherer:         gatherer,
		Logger:           logger,
	}
}

func InitializeRoutes(cfg *config.Settings, r *gin.Engine, dep Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	// persisted recording URLs resolve here
	r.Static(cfg.Storage.URLPrefix, cfg.Storage.Root)

	recordingHandler := handlers.NewRecordingHandler(dep.RecordingService, dep.Logger)
	userHandler := handlers.NewUserHandler(dep.UserService, dep.Logger)

	api := r.Group("/api")
	{
		api.GET("/models", recordingHandler.GetModels)
		api.GET("/models/:model/recordings", recordingHandler.GetRecordings)
		api.GET("/recordings/:id", recordingHandler.GetRecording)
		api.POST("/recordings/:id/transcriptions", recordingHandler.AddTranscription)
		api.GET("/random-recording", recordingHandler.GetRandomRecording)

		api.PUT("/users", userHandler.Upsert)
		api.GET("/users/:id", userHandler.GetUser)
	}
}
