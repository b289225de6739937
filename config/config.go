package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Template source kinds.
const (
	TemplatesEmbed = "embed"
	TemplatesDir   = "dir"
	TemplatesMinio = "minio"
	TemplatesGCS   = "gcs"
)

// Message queue backends.
const (
	MQNone     = "none"
	MQRabbitMQ = "rabbitmq"
	MQPubSub   = "pubsub"
)

// Config is the process configuration. TrustProxy enables X-Forwarded-*
// headers for client address and scheme.
type Config struct {
	ServerPort int             `env:"SERVER_PORT" envDefault:"3000"`
	LogLevel   slog.Level      `env:"LOG_LEVEL" envDefault:"info"`
	TrustProxy bool            `env:"TRUST_PROXY" envDefault:"false"`
	Admin      AdminConfig     `envPrefix:"ADMIN_"`
	Session    SessionConfig   `envPrefix:"SESSION_"`
	Templates  TemplatesConfig `envPrefix:"TEMPLATES_"`
	Minio      MinioConfig     `envPrefix:"MINIO_"`
	GCS        GCSConfig       `envPrefix:"GCS_"`
	MQ         MQConfig        `envPrefix:"MQ_"`
	RabbitMQ   RabbitMQConfig  `envPrefix:"RABBITMQ_"`
	PubSub     PubSubConfig    `envPrefix:"PUBSUB_"`
}

// AdminConfig holds the shared admin secret. PasswordHash, when set, wins
// over Password.
type AdminConfig struct {
	Password     string `env:"PASSWORD" envDefault:"admin123"`
	PasswordHash string `env:"PASSWORD_HASH"`
}

type SessionConfig struct {
	Secret       string        `env:"SECRET" envDefault:"change-me-session-secret"`
	TTL          time.Duration `env:"TTL" envDefault:"24h"`
	SecureCookie bool          `env:"SECURE_COOKIE" envDefault:"false"`
}

type TemplatesConfig struct {
	Source string `env:"SOURCE" envDefault:"embed"`
	Dir    string `env:"DIR" envDefault:"web/templates"`
	Prefix string `env:"PREFIX" envDefault:"templates/"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"whisperbox"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"BUCKET"`
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

type MQConfig struct {
	Backend string `env:"BACKEND" envDefault:"none"`
	Channel string `env:"CHANNEL" envDefault:"whisperbox.messages"`
}

type RabbitMQConfig struct {
	URL             string `env:"URL"`
	PrefetchCount   int    `env:"PREFETCH_COUNT" envDefault:"10"`
	QueueDurable    bool   `env:"QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"QUEUE_AUTO_DELETE" envDefault:"false"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PROJECT_ID"`
	CredentialsFile    string `env:"CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// LoadConfig reads the configuration from the environment. In dev mode a
// local .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Templates.Source {
	case TemplatesEmbed, TemplatesDir, TemplatesMinio, TemplatesGCS:
	default:
		return fmt.Errorf("unknown templates source %q", c.Templates.Source)
	}
	switch c.MQ.Backend {
	case MQNone, MQRabbitMQ, MQPubSub:
	default:
		return fmt.Errorf("unknown mq backend %q", c.MQ.Backend)
	}
	if c.MQ.Backend != MQNone && strings.TrimSpace(c.MQ.Channel) == "" {
		return fmt.Errorf("mq channel is required for backend %q", c.MQ.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Session.TTL)
	}
	return nil
}
