package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Azure     AzureConfig
	Notifier  NotifierConfig
	Assistant AssistantConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	Timezone        string
}

// Location resolves the configured timezone, falling back to the local zone
func (s ServerConfig) Location() *time.Location {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StorageConfig selects and configures the ledger key-value store
type StorageConfig struct {
	Driver        string // sqlite, postgres or memory
	Path          string
	URL           string
	EncryptionKey string // base64, 32 bytes decoded
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Speech  SpeechConfig
	Storage BlobConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// Enabled reports whether enough is configured to call the model
func (c OpenAIConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != "" && c.Deployment != ""
}

// SpeechConfig holds Azure Speech Service configuration
type SpeechConfig struct {
	SubscriptionKey string
	Region          string
	Language        string
}

// Enabled reports whether speech transcription can be used
func (c SpeechConfig) Enabled() bool {
	return c.SubscriptionKey != "" && c.Region != ""
}

// BlobConfig holds Azure Blob Storage configuration for shared reports
type BlobConfig struct {
	AccountName     string
	AccountKey      string
	BlobEndpoint    string
	ReportContainer string
}

// Enabled reports whether report sharing can upload to blob storage
func (c BlobConfig) Enabled() bool {
	return c.AccountName != "" && c.AccountKey != ""
}

// NotifierConfig controls the reminder poll and its sinks
type NotifierConfig struct {
	Interval time.Duration
	Debounce time.Duration
	Telegram TelegramConfig
	NATS     NATSConfig
	Kafka    KafkaConfig
}

// TelegramConfig enables the Telegram sink when Token and ChatID are set
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// NATSConfig enables the NATS sink when URL is set
type NATSConfig struct {
	URL     string
	Subject string
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AssistantConfig tunes the language model prompts
type AssistantConfig struct {
	Language string
	Timeout  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from an optional file, then the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.timezone", "Local")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/medireminder.db")

	// Azure defaults
	v.SetDefault("azure.openai.apiversion", "2024-08-01-preview")
	v.SetDefault("azure.speech.language", "es-ES")
	v.SetDefault("azure.storage.reportcontainer", "medication-reports")

	// Notifier defaults
	v.SetDefault("notifier.interval", time.Minute)
	v.SetDefault("notifier.debounce", 50*time.Second)
	v.SetDefault("notifier.nats.subject", "medireminder.reminders")
	v.SetDefault("notifier.kafka.topic", "medireminder.reminders")

	// Assistant defaults
	v.SetDefault("assistant.language", "es")
	v.SetDefault("assistant.timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.timezone", "TZ_NAME")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.path", "STORAGE_PATH")
	v.BindEnv("storage.url", "DATABASE_URL")
	v.BindEnv("storage.encryptionkey", "STORAGE_ENCRYPTION_KEY")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure.openai.apiversion", "AZURE_OPENAI_API_VERSION")

	// Azure Speech
	v.BindEnv("azure.speech.subscriptionkey", "AZURE_SPEECH_KEY")
	v.BindEnv("azure.speech.region", "AZURE_SPEECH_REGION")
	v.BindEnv("azure.speech.language", "AZURE_SPEECH_LANGUAGE")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.blobendpoint", "AZURE_STORAGE_BLOB_ENDPOINT")

	// Notifier
	v.BindEnv("notifier.interval", "NOTIFIER_INTERVAL")
	v.BindEnv("notifier.debounce", "NOTIFIER_DEBOUNCE")
	v.BindEnv("notifier.telegram.token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notifier.telegram.chatid", "TELEGRAM_CHAT_ID")
	v.BindEnv("notifier.nats.url", "NATS_URL")
	v.BindEnv("notifier.nats.subject", "NATS_SUBJECT")
	v.BindEnv("notifier.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("notifier.kafka.topic", "KAFKA_TOPIC")

	// Assistant
	v.BindEnv("assistant.language", "ASSISTANT_LANGUAGE")
	v.BindEnv("assistant.timeout", "ASSISTANT_TIMEOUT")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid. Azure services are
// optional; only inconsistent settings are rejected.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.URL == "" {
			return fmt.Errorf("storage.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q (want sqlite, postgres or memory)", c.Storage.Driver)
	}

	if c.Storage.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Storage.EncryptionKey)
		if err != nil {
			return fmt.Errorf("storage.encryptionkey must be base64: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("storage.encryptionkey must decode to 32 bytes, got %d", len(key))
		}
	}

	if c.Notifier.Interval <= 0 {
		return fmt.Errorf("notifier.interval must be positive")
	}
	if c.Notifier.Debounce < 0 {
		return fmt.Errorf("notifier.debounce must not be negative")
	}

	if c.Notifier.Telegram.Token != "" && c.Notifier.Telegram.ChatID == 0 {
		return fmt.Errorf("notifier.telegram.chatid is required when a bot token is set")
	}

	if c.Assistant.Timeout <= 0 {
		return fmt.Errorf("assistant.timeout must be positive")
	}

	return nil
}
