// Package config provides configuration management for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig
	Refresh  RefreshConfig
	Cache    CacheConfig
	Weather  WeatherConfig
	Market   MarketConfig
	Gemini   GeminiConfig
	Metrics  MetricsConfig
	History  HistoryConfig
	Storage  StorageConfig
	Terminal TerminalConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// RefreshConfig controls the background refresh scheduler
type RefreshConfig struct {
	// IntervalSeconds is how often each domain is refreshed
	IntervalSeconds int

	// ProduceTimeoutSeconds bounds a single topic produce during a pass
	ProduceTimeoutSeconds int
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	// FilePath is where the cache snapshot is persisted
	FilePath string
}

// WeatherConfig holds WeatherAPI configuration
type WeatherConfig struct {
	APIKey string
}

// MarketConfig holds data.gov.in mandi price API configuration
type MarketConfig struct {
	APIKey string
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string
	Model  string

	// TimeoutSeconds bounds AI sub-calls inside a produce
	TimeoutSeconds int
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// HistoryConfig holds refresh history configuration
type HistoryConfig struct {
	Enabled       bool
	BufferSize    int
	FlushInterval int // seconds
	RetentionDays int
}

// StorageConfig holds database configuration for refresh history
type StorageConfig struct {
	// Type specifies the backend: "sqlite", "postgresql", or "mongodb"
	Type       string
	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string
	MaxConns int
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string
	Database string
}

// TerminalConfig holds the topic lists the scheduler keeps warm
type TerminalConfig struct {
	// Location is the reference market town for terminal weather
	Location string

	// Commodities are the terminal topics refreshed each pass
	Commodities []string

	// DashboardLocations are the dashboard topics refreshed each pass
	DashboardLocations []string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REFRESH_INTERVAL_SECONDS", 300)
	viper.SetDefault("PRODUCE_TIMEOUT_SECONDS", 90)
	viper.SetDefault("CACHE_FILE", "data/cache.json")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("AI_TIMEOUT_SECONDS", 60)
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("DASHBOARD_LOCATIONS", "Indore")
	viper.SetDefault("TERMINAL_LOCATION", "Indore")
	viper.SetDefault("TERMINAL_COMMODITIES", "wheat,rice,maize,soybean")
	viper.SetDefault("HISTORY_ENABLED", false)
	viper.SetDefault("HISTORY_STORAGE_TYPE", "sqlite")
	viper.SetDefault("HISTORY_SQLITE_PATH", "data/agripulse.db")
	viper.SetDefault("HISTORY_POSTGRES_MAX_CONNS", 10)
	viper.SetDefault("HISTORY_MONGODB_DATABASE", "agripulse")
	viper.SetDefault("HISTORY_BUFFER_SIZE", 1000)
	viper.SetDefault("HISTORY_FLUSH_SECONDS", 5)
	viper.SetDefault("HISTORY_RETENTION_DAYS", 30)

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	// Read configuration from environment variables using Viper
	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		Refresh: RefreshConfig{
			IntervalSeconds:       viper.GetInt("REFRESH_INTERVAL_SECONDS"),
			ProduceTimeoutSeconds: viper.GetInt("PRODUCE_TIMEOUT_SECONDS"),
		},
		Cache: CacheConfig{
			FilePath: viper.GetString("CACHE_FILE"),
		},
		Weather: WeatherConfig{
			APIKey: viper.GetString("WEATHER_API_KEY"),
		},
		Market: MarketConfig{
			APIKey: viper.GetString("DATA_GOV_API_KEY"),
		},
		Gemini: GeminiConfig{
			APIKey:         viper.GetString("GEMINI_API_KEY"),
			Model:          viper.GetString("GEMINI_MODEL"),
			TimeoutSeconds: viper.GetInt("AI_TIMEOUT_SECONDS"),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		History: HistoryConfig{
			Enabled:       viper.GetBool("HISTORY_ENABLED"),
			BufferSize:    viper.GetInt("HISTORY_BUFFER_SIZE"),
			FlushInterval: viper.GetInt("HISTORY_FLUSH_SECONDS"),
			RetentionDays: viper.GetInt("HISTORY_RETENTION_DAYS"),
		},
		Storage: StorageConfig{
			Type: viper.GetString("HISTORY_STORAGE_TYPE"),
			SQLite: SQLiteConfig{
				Path: viper.GetString("HISTORY_SQLITE_PATH"),
			},
			PostgreSQL: PostgreSQLConfig{
				URL:      viper.GetString("HISTORY_POSTGRES_URL"),
				MaxConns: viper.GetInt("HISTORY_POSTGRES_MAX_CONNS"),
			},
			MongoDB: MongoDBConfig{
				URL:      viper.GetString("HISTORY_MONGODB_URL"),
				Database: viper.GetString("HISTORY_MONGODB_DATABASE"),
			},
		},
		Terminal: TerminalConfig{
			Location:           viper.GetString("TERMINAL_LOCATION"),
			Commodities:        splitCSV(viper.GetString("TERMINAL_COMMODITIES")),
			DashboardLocations: splitCSV(viper.GetString("DASHBOARD_LOCATIONS")),
		},
	}

	return cfg, nil
}

// splitCSV splits a comma-separated list, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
