// Package config provides configuration management for vodarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort        = 8080
	defaultServerTimeout     = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultMaxOpenConns      = 25
	defaultMaxIdleConns      = 10
	defaultConnMaxIdleTime   = 30 * time.Minute
	defaultMaxUploadSize     = 2 * 1024 * 1024 * 1024 // 2GB
	defaultWorkers           = 4
	defaultQueueSize         = 64
	defaultMaxRetries        = 3
	defaultRetryBaseDelay    = 2 * time.Second
	defaultRetryMaxDelay     = 60 * time.Second
	defaultProbeTimeout      = 30 * time.Second
	defaultFrameTimeout      = 30 * time.Second
	defaultEncodeTimeoutCap  = 2 * time.Hour
	defaultSegmentDuration   = 6 * time.Second
	defaultTempRetention     = 24 * time.Hour
	defaultRetentionSchedule = "0 0 3 * * *"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds media storage configuration.
type StorageConfig struct {
	// MediaDir is the root for all managed media. Uploads are staged under
	// temp/ and published under final/.
	MediaDir string `mapstructure:"media_dir"`
	TempDir  string `mapstructure:"temp_dir"`
	FinalDir string `mapstructure:"final_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// UploadConfig holds upload intake configuration.
type UploadConfig struct {
	// MaxSize is the maximum accepted upload size.
	// Supports human-readable values like "2GB", "500MB", or raw byte counts.
	MaxSize ByteSize `mapstructure:"max_size"`
}

// QualityConfig describes one rung of the transcode quality ladder.
type QualityConfig struct {
	Name         string `mapstructure:"name"` // e.g. "720p"
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
	VideoBitrate int    `mapstructure:"video_bitrate"` // kbit/s
	AudioBitrate int    `mapstructure:"audio_bitrate"` // kbit/s
}

// TranscodeConfig holds pipeline and quality ladder configuration.
type TranscodeConfig struct {
	Workers          int             `mapstructure:"workers"`
	QueueSize        int             `mapstructure:"queue_size"`
	MaxRetries       int             `mapstructure:"max_retries"`
	RetryBaseDelay   time.Duration   `mapstructure:"retry_base_delay"`
	RetryMaxDelay    time.Duration   `mapstructure:"retry_max_delay"`
	SegmentDuration  time.Duration   `mapstructure:"segment_duration"`
	ProbeTimeout     time.Duration   `mapstructure:"probe_timeout"`
	FrameTimeout     time.Duration   `mapstructure:"frame_timeout"`
	EncodeTimeoutCap time.Duration   `mapstructure:"encode_timeout_cap"`
	Qualities        []QualityConfig `mapstructure:"qualities"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// RetentionConfig holds temp storage garbage collection configuration.
type RetentionConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron is a 6-field cron expression for the sweep schedule.
	Cron string `mapstructure:"cron"`
	// Window is how long failed jobs keep their temp directories.
	Window time.Duration `mapstructure:"window"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VODARR_ and use underscores for nesting.
// Example: VODARR_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vodarr")
		v.AddConfigPath("$HOME/.vodarr")
	}

	v.SetEnvPrefix("VODARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	// The TextUnmarshaller hook lets ByteSize accept values like "2GB".
	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vodarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.media_dir", "./data/media")
	v.SetDefault("storage.temp_dir", "temp")
	v.SetDefault("storage.final_dir", "final")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Upload defaults
	v.SetDefault("upload.max_size", defaultMaxUploadSize)

	// Transcode defaults
	v.SetDefault("transcode.workers", defaultWorkers)
	v.SetDefault("transcode.queue_size", defaultQueueSize)
	v.SetDefault("transcode.max_retries", defaultMaxRetries)
	v.SetDefault("transcode.retry_base_delay", defaultRetryBaseDelay)
	v.SetDefault("transcode.retry_max_delay", defaultRetryMaxDelay)
	v.SetDefault("transcode.segment_duration", defaultSegmentDuration)
	v.SetDefault("transcode.probe_timeout", defaultProbeTimeout)
	v.SetDefault("transcode.frame_timeout", defaultFrameTimeout)
	v.SetDefault("transcode.encode_timeout_cap", defaultEncodeTimeoutCap)
	v.SetDefault("transcode.qualities", []map[string]any{
		{"name": "1080p", "width": 1920, "height": 1080, "video_bitrate": 5000, "audio_bitrate": 192},
		{"name": "720p", "width": 1280, "height": 720, "video_bitrate": 2800, "audio_bitrate": 128},
		{"name": "480p", "width": 854, "height": 480, "video_bitrate": 1400, "audio_bitrate": 96},
	})

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	// Retention defaults
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.cron", defaultRetentionSchedule)
	v.SetDefault("retention.window", defaultTempRetention)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Storage.MediaDir == "" {
		return fmt.Errorf("storage.media_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload.max_size must be positive")
	}

	if c.Transcode.Workers < 1 {
		return fmt.Errorf("transcode.workers must be at least 1")
	}
	if c.Transcode.MaxRetries < 0 {
		return fmt.Errorf("transcode.max_retries must not be negative")
	}
	if c.Transcode.SegmentDuration <= 0 {
		return fmt.Errorf("transcode.segment_duration must be positive")
	}
	seen := map[string]bool{}
	for i, q := range c.Transcode.Qualities {
		if q.Name == "" {
			return fmt.Errorf("transcode.qualities[%d].name is required", i)
		}
		if seen[q.Name] {
			return fmt.Errorf("transcode.qualities: duplicate name %q", q.Name)
		}
		seen[q.Name] = true
		if q.Width < 1 || q.Height < 1 {
			return fmt.Errorf("transcode.qualities[%d]: width and height must be positive", i)
		}
		if q.VideoBitrate < 1 {
			return fmt.Errorf("transcode.qualities[%d]: video_bitrate must be positive", i)
		}
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TempPath returns the full path to the temp staging directory.
func (c *StorageConfig) TempPath() string {
	return filepath.Join(c.MediaDir, c.TempDir)
}

// FinalPath returns the full path to the published media directory.
func (c *StorageConfig) FinalPath() string {
	return filepath.Join(c.MediaDir, c.FinalDir)
}
