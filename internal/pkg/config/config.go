package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Curation  CurationConfig  `mapstructure:"curation"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// TrackingConfig holds the adaptive sampler thresholds.
type TrackingConfig struct {
	ActiveIntervalMs      int     `mapstructure:"active_interval_ms"`
	StationaryIntervalMs  int     `mapstructure:"stationary_interval_ms"`
	MinDisplacementM      float64 `mapstructure:"min_displacement_m"`
	StationaryRadiusM     float64 `mapstructure:"stationary_radius_m"`
	MinDwellMs            int     `mapstructure:"min_dwell_ms"`
	ShortStopMs           int     `mapstructure:"short_stop_ms"`
	BatterySaverThreshold float64 `mapstructure:"battery_saver_threshold"`
	PendingBufferSize     int     `mapstructure:"pending_buffer_size"`
	StopFlushTimeoutMs    int     `mapstructure:"stop_flush_timeout_ms"`
}

func (t TrackingConfig) ActiveInterval() time.Duration {
	return time.Duration(t.ActiveIntervalMs) * time.Millisecond
}

func (t TrackingConfig) StationaryInterval() time.Duration {
	return time.Duration(t.StationaryIntervalMs) * time.Millisecond
}

func (t TrackingConfig) MinDwell() time.Duration {
	return time.Duration(t.MinDwellMs) * time.Millisecond
}

func (t TrackingConfig) ShortStop() time.Duration {
	return time.Duration(t.ShortStopMs) * time.Millisecond
}

func (t TrackingConfig) StopFlushTimeout() time.Duration {
	return time.Duration(t.StopFlushTimeoutMs) * time.Millisecond
}

// CurationConfig holds the photo clustering and quality thresholds.
type CurationConfig struct {
	MinQualityScore        float64 `mapstructure:"min_quality_score"`
	FeaturedThreshold      float64 `mapstructure:"featured_threshold"`
	JunkThreshold          float64 `mapstructure:"junk_threshold"`
	MaxPhotosPerStep       int     `mapstructure:"max_photos_per_step"`
	FeaturedPerStep        int     `mapstructure:"featured_per_step"`
	TimeClusterWindowMs    int     `mapstructure:"time_cluster_window_ms"`
	LocationClusterRadiusM float64 `mapstructure:"location_cluster_radius_m"`
}

func (c CurationConfig) TimeClusterWindow() time.Duration {
	return time.Duration(c.TimeClusterWindowMs) * time.Millisecond
}

// RetryConfig holds the shared backoff policy for external sinks.
type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
}

func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "journal")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tripscribe")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "curation-queue")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Adaptive tracking
	v.SetDefault("tracking.active_interval_ms", 30_000)
	v.SetDefault("tracking.stationary_interval_ms", 600_000)
	v.SetDefault("tracking.min_displacement_m", 25.0)
	v.SetDefault("tracking.stationary_radius_m", 100.0)
	v.SetDefault("tracking.min_dwell_ms", 1_800_000)
	v.SetDefault("tracking.short_stop_ms", 300_000)
	v.SetDefault("tracking.battery_saver_threshold", 0.20)
	v.SetDefault("tracking.pending_buffer_size", 64)
	v.SetDefault("tracking.stop_flush_timeout_ms", 5_000)

	// Photo curation
	v.SetDefault("curation.min_quality_score", 0.5)
	v.SetDefault("curation.featured_threshold", 0.7)
	v.SetDefault("curation.junk_threshold", 0.5)
	v.SetDefault("curation.max_photos_per_step", 10)
	v.SetDefault("curation.featured_per_step", 3)
	v.SetDefault("curation.time_cluster_window_ms", 3_600_000)
	v.SetDefault("curation.location_cluster_radius_m", 200.0)

	// Sink retry policy
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 1_000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRIPSCRIBE_TRACKING_MIN_DWELL_MS → tracking.min_dwell_ms
	v.SetEnvPrefix("TRIPSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if c.Tracking.ActiveIntervalMs <= 0 {
		errs = append(errs, "tracking.active_interval_ms must be positive")
	}
	if c.Tracking.StationaryIntervalMs <= 0 {
		errs = append(errs, "tracking.stationary_interval_ms must be positive")
	}
	if c.Tracking.BatterySaverThreshold < 0 || c.Tracking.BatterySaverThreshold > 1 {
		errs = append(errs, "tracking.battery_saver_threshold must be in [0,1]")
	}
	if c.Tracking.ShortStopMs > c.Tracking.MinDwellMs {
		errs = append(errs, "tracking.short_stop_ms must not exceed tracking.min_dwell_ms")
	}
	if c.Tracking.PendingBufferSize <= 0 {
		errs = append(errs, "tracking.pending_buffer_size must be positive")
	}

	if c.Curation.MinQualityScore < 0 || c.Curation.MinQualityScore > 1 {
		errs = append(errs, "curation.min_quality_score must be in [0,1]")
	}
	if c.Curation.TimeClusterWindowMs <= 0 {
		errs = append(errs, "curation.time_cluster_window_ms must be positive")
	}
	if c.Curation.LocationClusterRadiusM <= 0 {
		errs = append(errs, "curation.location_cluster_radius_m must be positive")
	}
	if c.Curation.MaxPhotosPerStep <= 0 {
		errs = append(errs, "curation.max_photos_per_step must be positive")
	}
	if c.Curation.FeaturedPerStep <= 0 {
		errs = append(errs, "curation.featured_per_step must be positive")
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, "retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelayMs <= 0 {
		errs = append(errs, "retry.base_delay_ms must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
