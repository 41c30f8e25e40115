package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Chaos     ChaosConfig
	Discovery DiscoveryConfig
	Client    ClientConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port)
}

type WebSocketConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxConnPerViewer int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// ChaosConfig makes the store misbehave on purpose so clients exercise
// their retry and reordering paths.
type ChaosConfig struct {
	FailureRate float64
	MaxDelay    time.Duration
}

func (c ChaosConfig) Enabled() bool {
	return c.FailureRate > 0 || c.MaxDelay > 0
}

type DiscoveryConfig struct {
	Enabled  bool
	Instance string
}

type ClientConfig struct {
	StoreURL       string
	Discover       bool
	FlushInterval  time.Duration
	HTTPTimeout    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
}

type LoggingConfig struct {
	Level string
}

// SlogLevel maps the configured level name onto slog. Unknown names fall back to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load() (*Config, error) {
	godotenv.Load()

	flushInterval, err := time.ParseDuration(getEnv("FLUSH_INTERVAL", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLUSH_INTERVAL: %w", err)
	}
	if flushInterval <= 0 {
		return nil, fmt.Errorf("invalid FLUSH_INTERVAL: must be positive, got %s", flushInterval)
	}

	httpTimeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	initialBackoff, err := time.ParseDuration(getEnv("RETRY_INITIAL_BACKOFF", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_INITIAL_BACKOFF: %w", err)
	}

	maxBackoff, err := time.ParseDuration(getEnv("RETRY_MAX_BACKOFF", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_BACKOFF: %w", err)
	}

	chaosDelay, err := time.ParseDuration(getEnv("CHAOS_MAX_DELAY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAOS_MAX_DELAY: %w", err)
	}

	failureRate := getEnvAsFloat("CHAOS_FAILURE_RATE", 0)
	if failureRate < 0 || failureRate >= 1 {
		return nil, fmt.Errorf("invalid CHAOS_FAILURE_RATE: must be in [0, 1), got %v", failureRate)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", "memory"))
	switch driver {
	case "memory", "couchdb", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", driver)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "1337"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Driver:     driver,
			SQLitePath: getEnv("SQLITE_PATH", "sketchsync.sqlite3"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "sketchsync"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:   getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize:  getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			PingPeriod:       54 * time.Second,
			MaxConnPerViewer: getEnvAsInt("WS_MAX_CONN_PER_VIEWER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,X-Viewer-ID"),
		},
		Chaos: ChaosConfig{
			FailureRate: failureRate,
			MaxDelay:    chaosDelay,
		},
		Discovery: DiscoveryConfig{
			Enabled:  getEnvAsBool("MDNS_ENABLED", false),
			Instance: getEnv("MDNS_INSTANCE", "sketchsync"),
		},
		Client: ClientConfig{
			StoreURL:       strings.TrimRight(getEnv("STORE_URL", "http://localhost:1337"), "/"),
			Discover:       getEnvAsBool("STORE_DISCOVER", false),
			FlushInterval:  flushInterval,
			HTTPTimeout:    httpTimeout,
			InitialBackoff: initialBackoff,
			MaxBackoff:     maxBackoff,
			MaxAttempts:    getEnvAsInt("RETRY_MAX_ATTEMPTS", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
