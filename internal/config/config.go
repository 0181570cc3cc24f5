package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "SITEBOOK"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabaseDriver    = DriverSQLite
	defaultDatabasePath      = "sitebook.db"
	defaultLogLevel          = "info"
	defaultMessagePrefix     = "New inspection created: "
	defaultDocumentsPath     = "documents"
	defaultKafkaTopic        = "sitebook.notifications"
	defaultRequestsPerSecond = 20.0
	defaultRateLimitBurst    = 40
	defaultCORSAllowedOrigin = "*"
	messagePrefixSeparator   = ": "
	watchedAssigneesKey      = "notifications.watched_assignees"
	messagePrefixKey         = "notifications.message_prefix"
	corsAllowedOriginsKey    = "http.cors_allowed_origins"
	kafkaBrokersKey          = "kafka.brokers"
	rateLimitRateKey         = "ratelimit.requests_per_second"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var defaultWatchedAssignees = []string{"Morgan"}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	CORSAllowedOrigins []string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	LogLevel           string
	WatchedAssignees   []string
	MessagePrefix      string
	DocumentsPath      string
	KafkaBrokers       []string
	KafkaTopic         string
	RequestsPerSecond  float64
	RateLimitBurst     int
}

// KafkaEnabled reports whether notification events are also published to Kafka.
func (c AppConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault(corsAllowedOriginsKey, []string{defaultCORSAllowedOrigin})
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault(watchedAssigneesKey, defaultWatchedAssignees)
	configViper.SetDefault(messagePrefixKey, defaultMessagePrefix)
	configViper.SetDefault("storage.documents_path", defaultDocumentsPath)
	configViper.SetDefault(kafkaBrokersKey, []string{})
	configViper.SetDefault("kafka.topic", defaultKafkaTopic)
	configViper.SetDefault(rateLimitRateKey, defaultRequestsPerSecond)
	configViper.SetDefault("ratelimit.burst", defaultRateLimitBurst)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		CORSAllowedOrigins: listValue(configViper, corsAllowedOriginsKey),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:       configViper.GetString("database.path"),
		DatabaseDSN:        configViper.GetString("database.dsn"),
		LogLevel:           configViper.GetString("log.level"),
		WatchedAssignees:   listValue(configViper, watchedAssigneesKey),
		MessagePrefix:      configViper.GetString(messagePrefixKey),
		DocumentsPath:      configViper.GetString("storage.documents_path"),
		KafkaBrokers:       listValue(configViper, kafkaBrokersKey),
		KafkaTopic:         configViper.GetString("kafka.topic"),
		RequestsPerSecond:  configViper.GetFloat64(rateLimitRateKey),
		RateLimitBurst:     configViper.GetInt("ratelimit.burst"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if len(c.WatchedAssignees) == 0 {
		return fmt.Errorf("%s requires at least one assignee", watchedAssigneesKey)
	}
	if !strings.HasSuffix(c.MessagePrefix, messagePrefixSeparator) ||
		strings.Index(c.MessagePrefix, messagePrefixSeparator) != len(c.MessagePrefix)-len(messagePrefixSeparator) {
		return fmt.Errorf("%s must end with its only %q", messagePrefixKey, messagePrefixSeparator)
	}
	if strings.TrimSpace(c.DocumentsPath) == "" {
		return fmt.Errorf("storage.documents_path is required")
	}
	if c.KafkaEnabled() && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("kafka.topic is required when %s is set", kafkaBrokersKey)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%s must not be negative", rateLimitRateKey)
	}
	if c.RequestsPerSecond > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("ratelimit.burst must be at least 1")
	}
	return nil
}

// listValue reads a string list that may arrive as a slice (flags, defaults) or as a
// comma separated env value.
func listValue(configViper *viper.Viper, key string) []string {
	raw := configViper.GetStringSlice(key)
	values := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	return values
}
