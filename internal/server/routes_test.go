package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-audio/wav"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/annotator/internal/config"
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/internal/domains/user"
	recordingRepo "github.com/xpanvictor/annotator/internal/repository/recording"
	userRepo "github.com/xpanvictor/annotator/internal/repository/user"
	"github.com/xpanvictor/annotator/pkg/Logger"
	"github.com/xpanvictor/annotator/pkg/io/wavstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*gin.Engine, recording.RecordingService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&recordingRepo.RecordingEntity{},
		&recordingRepo.HypothesisEntity{},
		&recordingRepo.TranscriptionEntity{},
		&userRepo.UserEntity{},
	))

	cfg := &config.Settings{Storage: config.StorageConfig{Root: t.TempDir(), URLPrefix: "/static/data"}}
	store := wavstore.New(cfg.Storage.Root, cfg.Storage.URLPrefix)
	recordings := recording.NewRecordingService(recordingRepo.NewGormRecordingRepo(db), store, nil, Logger.Nop())
	users := user.NewUserService(userRepo.NewGormUserRepo(db), Logger.Nop())

	reg := prometheus.NewRegistry()
	saved := prometheus.NewCounter(prometheus.CounterOpts{Name: "annotator_test_saved_total", Help: "test"})
	reg.MustRegister(saved)
	saved.Inc()

	r := gin.New()
	InitializeRoutes(cfg, r, NewServerDependencies(recordings, users, reg, Logger.Nop()))
	return r, recordings
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestPersistedURLServesAudio(t *testing.T) {
	r, recordings := newTestServer(t)
	require.NoError(t, recordings.SaveRecording(context.Background(), 3, "en", []byte{1, 0, 2, 0, 3, 0}, 8000,
		[]recording.Alternative{{Transcript: "hi", Confidence: 0.5}}))
	rec, err := recordings.GetRecording(context.Background(), 3)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, rec.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)

	tmp := filepath.Join(t.TempDir(), "served.wav")
	require.NoError(t, os.WriteFile(tmp, w.Body.Bytes(), 0o600))
	f, err := os.Open(tmp)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	require.NoError(t, dec.Err())
	assert.Equal(t, uint32(8000), dec.SampleRate)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "annotator_test_saved_total 1")
}

func TestAPIRoutesAreWired(t *testing.T) {
	r, recordings := newTestServer(t)
	require.NoError(t, recordings.SaveRecording(context.Background(), 1, "en", []byte{0, 0}, 8000,
		[]recording.Alternative{{Transcript: "hi", Confidence: 0.5}}))

	for _, path := range []string{"/api/models", "/api/models/en/recordings", "/api/recordings/1", "/api/random-recording"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
