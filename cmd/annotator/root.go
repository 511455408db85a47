package main

import (
	"fmt"

	"github.com/go-redis/redis"
	"github.com/spf13/cobra"
	"github.com/xpanvictor/annotator/internal/app"
	"github.com/xpanvictor/annotator/internal/config"
	"github.com/xpanvictor/annotator/internal/database"
	"github.com/xpanvictor/annotator/pkg/Logger"
	"gorm.io/gorm"
)

// cli is shared by every sub-command once the root has loaded settings.
type cli struct {
	configPath string
	debug      bool

	cfg    *config.Settings
	logger *Logger.Logger
}

func rootCommand() *cobra.Command {
	rt := &cli{}

	rootCmd := &cobra.Command{
		Use:           "annotator",
		Short:         "Speech annotation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "Path to a config file (default config_<ENV>.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rt.debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serveCommand(rt),
		ingestCommand(rt),
		migrateCommand(rt),
		enqueueCommand(rt),
	)
	return rootCmd
}

func (rt *cli) load() error {
	var (
		cfg *config.Settings
		err error
	)
	if rt.configPath != "" {
		cfg, err = config.LoadFile(rt.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if rt.debug {
		cfg.Debug = true
	}

	rt.cfg = cfg
	rt.logger = Logger.New(cfg.Debug)
	rt.logger.Debugf("configuration loaded: env=%s db=%s queue=%s", cfg.Env, cfg.DB.Driver, cfg.Queue.Transport)
	return nil
}

func (rt *cli) openDB() (*gorm.DB, error) {
	db, err := database.InitDB(rt.cfg.DB, rt.cfg.Debug)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateDB(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

// openRedis returns a nil client unless an ingestion loop will need the
// queue or the dead-letter list.
func (rt *cli) openRedis(ingesting bool) (*redis.Client, error) {
	if !ingesting || (rt.cfg.Queue.Transport != "redis" && rt.cfg.Queue.DeadLetterKey == "") {
		return nil, nil
	}
	return database.NewRedis(rt.cfg.Redis)
}

// newApp opens the stores and wires the application. The returned func
// releases them.
func (rt *cli) newApp(ingesting bool) (*app.App, func(), error) {
	db, err := rt.openDB()
	if err != nil {
		return nil, nil, err
	}
	rc, err := rt.openRedis(ingesting)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	a, err := app.NewApp(rt.cfg, rt.logger, db, rc)
	if err != nil {
		_ = database.Close(db)
		if rc != nil {
			_ = rc.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if rc != nil {
			_ = rc.Close()
		}
		if err := database.Close(db); err != nil {
			rt.logger.Warnf("closing database: %v", err)
		}
		_ = rt.logger.Sync()
	}
	return a, cleanup, nil
}
