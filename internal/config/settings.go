package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	// Path is the database file when Driver is sqlite.
	Path     string `mapstructure:"path"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN builds the go-sql-driver/mysql connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Pass string `mapstructure:"pass"`
	DB   int    `mapstructure:"db"`
}

type QueueConfig struct {
	// Transport selects the receiver: "redis" or "mqtt".
	Transport     string        `mapstructure:"transport"`
	Key           string        `mapstructure:"key"`
	DeadLetterKey string        `mapstructure:"dead_letter_key"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
}

type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Topic          string        `mapstructure:"topic"`
	Group          string        `mapstructure:"group"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type StorageConfig struct {
	Root      string `mapstructure:"root"`
	URLPrefix string `mapstructure:"url_prefix"`
}

type IngestConfig struct {
	OnDecodeError      string        `mapstructure:"on_decode_error"`
	OnStorageError     string        `mapstructure:"on_storage_error"`
	OnPersistenceError string        `mapstructure:"on_persistence_error"`
	RemoveOrphans      bool          `mapstructure:"remove_orphans"`
	MessageTimeout     time.Duration `mapstructure:"message_timeout"`
	ReceiveRetry       time.Duration `mapstructure:"receive_retry"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Settings struct {
	DB      DBConfig      `mapstructure:"database"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Queue   QueueConfig   `mapstructure:"queue"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Storage StorageConfig `mapstructure:"storage"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Server  ServerConfig  `mapstructure:"server"`
	Env     string        `mapstructure:"env"`
	Debug   bool          `mapstructure:"debug"`
}

// Load reads config_<ENV>.yaml from the working directory. Environment
// variables prefixed with ANNOTATOR_ override file values.
func Load() (*Settings, error) {
	v := newViper()
	v.SetConfigName("config_" + genEnv(v))
	v.AddConfigPath(".")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFile reads settings from an explicit file path.
func LoadFile(path string) (*Settings, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("annotator")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.name", "annotator")
	v.SetDefault("database.path", "annotator.db")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("queue.transport", "redis")
	v.SetDefault("queue.key", "recordings")
	v.SetDefault("queue.dead_letter_key", "recordings:dead")
	v.SetDefault("queue.poll_timeout", time.Second)

	v.SetDefault("mqtt.client_id", "annotator-saver")
	v.SetDefault("mqtt.topic", "asr/recordings")
	v.SetDefault("mqtt.group", "recordings-saver")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 30*time.Second)

	v.SetDefault("storage.root", "static/data")
	v.SetDefault("storage.url_prefix", "/static/data")

	v.SetDefault("ingest.on_decode_error", "halt")
	v.SetDefault("ingest.on_storage_error", "halt")
	v.SetDefault("ingest.on_persistence_error", "halt")
	v.SetDefault("ingest.message_timeout", 30*time.Second)
	v.SetDefault("ingest.receive_retry", time.Minute)

	v.SetDefault("server.addr", ":8080")
}

// Validate rejects settings the service cannot start with.
func (s *Settings) Validate() error {
	switch s.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", s.DB.Driver)
	}
	switch s.Queue.Transport {
	case "redis", "mqtt":
	default:
		return fmt.Errorf("unsupported queue transport %q", s.Queue.Transport)
	}
	if s.Queue.Transport == "mqtt" && s.MQTT.Broker == "" {
		return errors.New("mqtt transport requires mqtt.broker")
	}
	for name, action := range map[string]string{
		"on_decode_error":      s.Ingest.OnDecodeError,
		"on_storage_error":     s.Ingest.OnStorageError,
		"on_persistence_error": s.Ingest.OnPersistenceError,
	} {
		if action != "halt" && action != "skip" {
			return fmt.Errorf("ingest.%s must be halt or skip, got %q", name, action)
		}
	}
	if s.Storage.Root == "" {
		return errors.New("storage.root must be set")
	}
	return nil
}

func genEnv(v *viper.Viper) string {
	env := v.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
