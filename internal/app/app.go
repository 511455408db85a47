package app

import (
	"errors"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/xpanvictor/annotator/internal/config"
	"github.com/xpanvictor/annotator/internal/domains/recording"
	"github.com/xpanvictor/annotator/internal/domains/user"
	"github.com/xpanvictor/annotator/internal/ingest"
	recordingRepo "github.com/xpanvictor/annotator/internal/repository/recording"
	userRepo "github.com/xpanvictor/annotator/internal/repository/user"
	"github.com/xpanvictor/annotator/internal/server"
	"github.com/xpanvictor/annotator/pkg/Logger"
	"github.com/xpanvictor/annotator/pkg/io/wavstore"
	"gorm.io/gorm"
)

// App represents the application with all its dependencies
type App struct {
	Config   *config.Settings
	Logger   *Logger.Logger
	DB       *gorm.DB
	RC       *redis.Client
	Registry *prometheus.Registry
	// repos
	RecordingRepo recording.RecordingRepository
	UserRepo      user.UserRepository
	// services
	RecordingService recording.RecordingService
	UserService      user.UserService
	AudioStore       *wavstore.Store
	IngestMetrics    *ingest.Metrics
	ServerDeps       server.Dependencies
}

// NewApp creates a new application instance with all dependencies properly
// wired. rc may be nil when the queue transport is mqtt.
func NewApp(cfg *config.Settings, logger *Logger.Logger, db *gorm.DB, rc *redis.Client) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		RC:       rc,
		Registry: prometheus.NewRegistry(),
	}

	if err := app.setupDependencies(); err != nil {
		return nil, err
	}

	return app, nil
}

// setupDependencies initializes all application dependencies
func (a *App) setupDependencies() error {
	// 1. process metrics
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := ingest.NewMetrics(a.Registry)
	if err != nil {
		return fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	a.IngestMetrics = metrics

	// 2. repositories and audio storage
	a.RecordingRepo = recordingRepo.NewGormRecordingRepo(a.DB)
	a.UserRepo = userRepo.NewGormUserRepo(a.DB)
	a.AudioStore = wavstore.New(a.Config.Storage.Root, a.Config.Storage.URLPrefix)

	// 3. services
	a.RecordingService = recording.NewRecordingService(
		a.RecordingRepo,
		a.AudioStore,
		recording.KeepScore,
		a.Logger.Named("recording"),
	)
	a.UserService = user.NewUserService(a.UserRepo, a.Logger.Named("user"))

	a.ServerDeps = server.NewServerDependencies(
		a.RecordingService,
		a.UserService,
		a.Registry,
		a.Logger.Named("http"),
	)
	return nil
}

// NewIngestLoop builds the configured receiver and a loop consuming it. The
// caller owns the receiver and must Close it.
func (a *App) NewIngestLoop() (*ingest.Loop, ingest.Receiver, error) {
	policy, err := policyFromConfig(a.Config.Ingest)
	if err != nil {
		return nil, nil, err
	}

	receiver, err := a.newReceiver()
	if err != nil {
		return nil, nil, err
	}

	opts := []ingest.Option{
		ingest.WithPolicy(policy),
		ingest.WithMetrics(a.IngestMetrics),
		ingest.WithMessageTimeout(a.Config.Ingest.MessageTimeout),
		ingest.WithRemoveOrphans(a.Config.Ingest.RemoveOrphans),
		ingest.WithReceiveRetry(a.Config.Ingest.ReceiveRetry),
	}
	if a.RC != nil && a.Config.Queue.DeadLetterKey != "" {
		opts = append(opts, ingest.WithDeadLetter(ingest.NewRedisDeadLetter(a.RC, a.Config.Queue.DeadLetterKey)))
	}

	loop := ingest.NewLoop(receiver, a.RecordingService, a.Logger.Named("ingest"), opts...)
	return loop, receiver, nil
}

func (a *App) newReceiver() (ingest.Receiver, error) {
	switch a.Config.Queue.Transport {
	case "redis":
		if a.RC == nil {
			return nil, errors.New("redis transport selected but no redis client configured")
		}
		return ingest.NewRedisQueue(a.RC, a.Config.Queue.Key, a.Config.Queue.PollTimeout), nil
	case "mqtt":
		m := a.Config.MQTT
		return ingest.NewMQTTReceiver(ingest.MQTTConfig{
			Broker:         m.Broker,
			ClientID:       m.ClientID,
			Username:       m.Username,
			Password:       m.Password,
			Topic:          m.Topic,
			Group:          m.Group,
			QoS:            m.QoS,
			ConnectTimeout: m.ConnectTimeout,
		}, a.Logger.Named("mqtt"))
	}
	return nil, fmt.Errorf("unsupported queue transport %q", a.Config.Queue.Transport)
}

func policyFromConfig(cfg config.IngestConfig) (ingest.Policy, error) {
	var (
		p   ingest.Policy
		err error
	)
	if p.OnDecode, err = ingest.ParseAction(cfg.OnDecodeError); err != nil {
		return p, fmt.Errorf("ingest.on_decode_error: %w", err)
	}
	if p.OnStorage, err = ingest.ParseAction(cfg.OnStorageError); err != nil {
		return p, fmt.Errorf("ingest.on_storage_error: %w", err)
	}
	if p.OnPersistence, err = ingest.ParseAction(cfg.OnPersistenceError); err != nil {
		return p, fmt.Errorf("ingest.on_persistence_error: %w", err)
	}
	return p, nil
}
