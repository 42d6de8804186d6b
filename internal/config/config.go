// Package config loads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/aretw0/parley/pkg/adapters/openai"
)

// Prefix is the environment prefix of every parley setting.
const Prefix = "PARLEY"

// Config is the process configuration shared by the parley commands.
type Config struct {
	RulesPath string `envconfig:"RULES" default:"rules.yaml"`
	LogLevel  string `envconfig:"LOG_LEVEL" split_words:"true" default:"info"`
	HTTPPort  int    `envconfig:"HTTP_PORT" split_words:"true" default:"8080"`

	// Store selects the session backend: memory, file, redis or postgres.
	Store         string `envconfig:"STORE" default:"memory"`
	FileStorePath string `envconfig:"FILE_STORE_PATH" split_words:"true" default:".parley/sessions"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN" split_words:"true"`
	// EncryptionKey is a comma separated list of base64 AES-256 keys. The first
	// encrypts, the rest only decrypt.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" split_words:"true"`
	// PIIPatterns are the key patterns masked by the session inspection endpoints.
	PIIPatterns []string `envconfig:"PII_PATTERNS" split_words:"true" default:"(?i)account,(?i)card,(?i)password,(?i)ssn"`
	// FunctionsPath lists the commands backing integration functions.
	FunctionsPath string `envconfig:"FUNCTIONS" default:"functions.yaml"`

	Redis  RedisConfig   `envconfig:"REDIS"`
	NATS   NATSConfig    `envconfig:"NATS"`
	OpenAI openai.Config `envconfig:"OPENAI"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" split_words:"true" default:"250ms"`
	MaxSteps     int           `envconfig:"MAX_STEPS" split_words:"true" default:"100"`
}

// RedisConfig configures the redis store and session locker.
type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB"`
	Prefix   string        `envconfig:"PREFIX" default:"parley:session:"`
	TTL      time.Duration `envconfig:"TTL" default:"24h"`
}

// NATSConfig enables the NATS integration invoker when URL is set.
type NATSConfig struct {
	URL           string `envconfig:"URL"`
	SubjectPrefix string `envconfig:"SUBJECT_PREFIX" split_words:"true" default:"parley.integration."`
}

// Validate checks the cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "file", "redis":
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres store requires PARLEY_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or postgres)", c.Store)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	if _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	return nil
}

// EncryptionKeys decodes EncryptionKey. It returns nil when encryption is off.
func (c *Config) EncryptionKeys() ([][]byte, error) {
	if strings.TrimSpace(c.EncryptionKey) == "" {
		return nil, nil
	}
	var keys [][]byte
	for i, part := range strings.Split(c.EncryptionKey, ",") {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("encryption key %d: %w", i, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key %d: want 32 bytes, got %d", i, len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// MustNew is New that panics on error.
func MustNew[T any](prefix, envFile string) *T {
	conf, err := New[T](prefix, envFile)
	if err != nil {
		panic(err)
	}
	return conf
}

// New exports envFile (or ./.env when envFile is empty and the file exists) into
// the process environment and then processes T with envconfig under prefix.
func New[T any](prefix, envFile string) (*T, error) {
	if path := strings.TrimSpace(envFile); path != "" {
		if err := exportEnvironment(path); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := exportEnvironmentIfExists(".env"); err != nil {
		return nil, fmt.Errorf("failed to load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Load reads the parley Config and validates it.
func Load(envFile string) (*Config, error) {
	conf, err := New[Config](Prefix, envFile)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func exportEnvironmentIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvironment(path)
}

// exportEnvironment copies the file's settings into the environment. Variables
// already set in the environment win over the file.
func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
