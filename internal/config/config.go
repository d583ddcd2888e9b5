package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Editor    EditorConfig
	Render    RenderConfig
	Auth      AuthConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	PresignExpiry   time.Duration
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Vhost      string
	MaxRetries int
}

// EditorConfig holds the timeline editing and playback rules
type EditorConfig struct {
	MinClipDuration     float64
	SplitEdgeTolerance  float64
	DefaultClipDuration float64
	PreloadThreshold    float64
	DriftEpsilon        float64
	HistoryDepth        int
	FrameRate           int
	SessionIdleTimeout  time.Duration
	SnapshotTTL         time.Duration
	AutoSaveDebounce    time.Duration
	// SimulatedLoadLatency is the load delay of server-side media ports, in seconds
	SimulatedLoadLatency float64
}

// RenderConfig holds the render service endpoint used by export workers
type RenderConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled           bool
	ServiceName       string
	CollectorEndpoint string
	SamplerType       string
	SamplerParam      float64
	LogSpans          bool
}

// MetricsConfig holds Prometheus metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ExportsPerWindow  int64
	ExportWindow      time.Duration
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Editor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid editor config: %w", err)
	}

	return &config, nil
}

// Validate rejects editor rules that would break timeline invariants
func (e EditorConfig) Validate() error {
	if e.MinClipDuration <= 0 {
		return fmt.Errorf("minClipDuration must be positive")
	}
	if e.SplitEdgeTolerance < 0 {
		return fmt.Errorf("splitEdgeTolerance cannot be negative")
	}
	if e.DefaultClipDuration < e.MinClipDuration {
		return fmt.Errorf("defaultClipDuration must be at least minClipDuration")
	}
	if e.HistoryDepth < 1 {
		return fmt.Errorf("historyDepth must be at least 1")
	}
	if e.FrameRate < 1 || e.FrameRate > 240 {
		return fmt.Errorf("frameRate must be between 1 and 240")
	}
	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "timeline")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "media")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.presignExpiry", "1h")

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")
	viper.SetDefault("queue.maxRetries", 3)

	// Editor defaults
	viper.SetDefault("editor.minClipDuration", 0.5)
	viper.SetDefault("editor.splitEdgeTolerance", 0.1)
	viper.SetDefault("editor.defaultClipDuration", 8.0)
	viper.SetDefault("editor.preloadThreshold", 2.0)
	viper.SetDefault("editor.driftEpsilon", 0.1)
	viper.SetDefault("editor.historyDepth", 50)
	viper.SetDefault("editor.frameRate", 60)
	viper.SetDefault("editor.sessionIdleTimeout", "30m")
	viper.SetDefault("editor.snapshotTTL", "24h")
	viper.SetDefault("editor.autoSaveDebounce", "2s")
	viper.SetDefault("editor.simulatedLoadLatency", 0.15)

	// Render defaults
	viper.SetDefault("render.endpoint", "http://localhost:8000/render")
	viper.SetDefault("render.timeout", "15m")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "timeline")
	viper.SetDefault("tracing.collectorEndpoint", "http://localhost:14268/api/traces")
	viper.SetDefault("tracing.samplerType", "const")
	viper.SetDefault("tracing.samplerParam", 1.0)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Rate limit defaults
	viper.SetDefault("ratelimit.requestsPerSecond", 50.0)
	viper.SetDefault("ratelimit.burst", 100)
	viper.SetDefault("ratelimit.exportsPerWindow", 10)
	viper.SetDefault("ratelimit.exportWindow", "1h")
}
