package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// TRANSCRIPT_SERVER_PORT for server.port.
const EnvPrefix = "TRANSCRIPT"

// DefaultConfigFile is read when present.
const DefaultConfigFile = "./config/settings.yaml"

var (
	once       sync.Once
	initErr    error
	configFile = DefaultConfigFile
	envFile    = ".env"
)

// credentialAliases maps config keys to the conventional environment
// variables that may also carry them.
var credentialAliases = map[string]string{
	"whisper.api_key":              "OPENAI_API_KEY",
	"mongo.uri":                    "MONGODB_URI",
	"translation.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
	"translation.api_key":          "GOOGLE_TRANSLATE_API_KEY",
}

// SetConfigFile overrides the settings file location. It must be called
// before Init.
func SetConfigFile(path string) {
	if path != "" {
		configFile = path
	}
}

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			initErr = fmt.Errorf("error loading %s: %w", envFile, err)
			return
		}

		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		for key, alias := range credentialAliases {
			envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
			if err := viper.BindEnv(key, envKey, alias); err != nil {
				initErr = fmt.Errorf("error binding %s: %w", key, err)
				return
			}
		}

		path := filepath.Clean(configFile)
		viper.SetConfigFile(path)

		if err := viper.ReadInConfig(); err != nil {
			// a missing file means defaults and environment only
			if !os.IsNotExist(err) && !errors.Is(err, fs.ErrNotExist) {
				initErr = fmt.Errorf("error reading config file %s: %w", path, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// Reset clears loaded configuration so Init can run again. Intended for tests.
func Reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
	configFile = DefaultConfigFile
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Set overrides a config value, typically from a command line flag
func Set(key string, value any) {
	viper.Set(key, value)
}

var validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch backend := viper.GetString("store.backend"); backend {
	case "sqlite":
		if viper.GetString("database.path") == "" {
			return fmt.Errorf("database.path is required for the sqlite store backend")
		}
	case "mongo":
		if viper.GetString("mongo.uri") == "" {
			return fmt.Errorf("mongo.uri is required for the mongo store backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", backend)
	}

	if level := strings.ToLower(viper.GetString("logging.level")); !validLogLevels[level] {
		return fmt.Errorf("invalid log level: %q", level)
	}

	// auto-correct values the pipeline cannot run with
	if viper.GetInt("translation.batch_size") <= 0 || viper.GetInt("translation.batch_size") > 128 {
		viper.Set("translation.batch_size", 128)
	}
	if viper.GetInt64("whisper.max_file_size") <= 0 {
		viper.Set("whisper.max_file_size", 25*1024*1024)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Backend {
	case "", "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite store backend")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo store backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Translation.BatchSize <= 0 || c.Translation.BatchSize > 128 {
		c.Translation.BatchSize = 128
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 60*time.Second)
	// generation requests stay open for the whole pipeline run
	viper.SetDefault("server.write_timeout", 30*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/transcripts.db")
	viper.SetDefault("database.verbose", false)

	// Content store defaults
	viper.SetDefault("store.backend", "sqlite")
	viper.SetDefault("mongo.uri", "")
	viper.SetDefault("mongo.database", "transcript_db")
	viper.SetDefault("mongo.collection", "media_transcripts")
	viper.SetDefault("mongo.connect_timeout", 10*time.Second)

	// Storage defaults
	viper.SetDefault("storage.work_dir", "./tmp")
	viper.SetDefault("storage.upload_dir", "./uploads")
	viper.SetDefault("storage.max_upload_size", 2*1024*1024*1024)
	viper.SetDefault("storage.max_temp_age", 6*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 30*time.Minute)
	viper.SetDefault("storage.run_retention", 30*24*time.Hour)

	// Processing defaults
	viper.SetDefault("processing.job_timeout", 30*time.Minute)
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffmpeg_timeout", 10*time.Minute)
	viper.SetDefault("processing.ytdlp_path", "yt-dlp")
	viper.SetDefault("processing.download_timeout", 15*time.Minute)

	// Whisper defaults
	viper.SetDefault("whisper.api_key", "")
	viper.SetDefault("whisper.api_url", "https://api.openai.com/v1/audio/transcriptions")
	viper.SetDefault("whisper.model", "whisper-1")
	viper.SetDefault("whisper.timeout", 10*time.Minute)
	viper.SetDefault("whisper.max_file_size", 25*1024*1024)
	viper.SetDefault("whisper.local.binary_path", "whisper-cli")
	viper.SetDefault("whisper.local.model_path", "./models/ggml-base.bin")
	viper.SetDefault("whisper.local.threads", 4)
	viper.SetDefault("whisper.local.timeout", 30*time.Minute)

	// Translation defaults
	viper.SetDefault("translation.enabled", true)
	viper.SetDefault("translation.credentials_file", "")
	viper.SetDefault("translation.api_key", "")
	viper.SetDefault("translation.batch_size", 128)
	viper.SetDefault("translation.timeout", 2*time.Minute)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.processing_rps", 1)
	viper.SetDefault("rate_limiting.processing_burst", 3)
	viper.SetDefault("rate_limiting.read_rps", 10)
	viper.SetDefault("rate_limiting.read_burst", 20)

	// Response cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", 30*time.Second)
	viper.SetDefault("cache.max_size_mb", 64)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PATCH", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "media-transcript-api")
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.insecure", true)
	viper.SetDefault("telemetry.sample_rate", 1.0)
}
