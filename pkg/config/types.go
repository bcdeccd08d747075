package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Store       StoreConfig       `mapstructure:"store"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Processing  ProcessingConfig  `mapstructure:"processing"`
	Whisper     WhisperConfig     `mapstructure:"whisper"`
	Translation TranslationConfig `mapstructure:"translation"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limiting"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Security    SecurityConfig    `mapstructure:"security"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains sqlite settings. The database always holds the
// processing run log and, with the sqlite store backend, content records.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// StoreConfig selects the content record backend
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // sqlite or mongo
}

// MongoConfig contains document store settings
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StorageConfig contains local file settings
type StorageConfig struct {
	WorkDir         string        `mapstructure:"work_dir"`
	UploadDir       string        `mapstructure:"upload_dir"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RunRetention    time.Duration `mapstructure:"run_retention"`
}

// ProcessingConfig contains external tool settings
type ProcessingConfig struct {
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	FFprobePath     string        `mapstructure:"ffprobe_path"`
	FFmpegTimeout   time.Duration `mapstructure:"ffmpeg_timeout"`
	YtDlpPath       string        `mapstructure:"ytdlp_path"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// WhisperConfig contains speech-to-text settings for both execution modes
type WhisperConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	APIURL      string        `mapstructure:"api_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	Local       LocalWhisper  `mapstructure:"local"`
}

// LocalWhisper configures the whisper.cpp command line tool
type LocalWhisper struct {
	BinaryPath string        `mapstructure:"binary_path"`
	ModelPath  string        `mapstructure:"model_path"`
	Threads    int           `mapstructure:"threads"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TranslationConfig contains Google Cloud Translation settings
type TranslationConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	APIKey          string        `mapstructure:"api_key"`
	BatchSize       int           `mapstructure:"batch_size"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig contains per-client limits
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	ProcessingRPS   int  `mapstructure:"processing_rps"`
	ProcessingBurst int  `mapstructure:"processing_burst"`
	ReadRPS         int  `mapstructure:"read_rps"`
	ReadBurst       int  `mapstructure:"read_burst"`
}

// CacheConfig controls the read response cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxSizeMB int64         `mapstructure:"max_size_mb"`
}

// SecurityConfig contains CORS settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	CORSMethods []string `mapstructure:"cors_methods"`
	CORSHeaders []string `mapstructure:"cors_headers"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}
