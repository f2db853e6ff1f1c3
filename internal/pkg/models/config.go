package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NSQ      NSQConfig
	Tracking TrackingConfig
	Cache    CacheConfig
	Logger   LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NSQConfig contains NSQ connection configuration
type NSQConfig struct {
	Address          string
	LookupdAddresses []string
}

// TrackingConfig contains tracking service specific configuration
type TrackingConfig struct {
	LocationTTLSeconds   int `json:"location_ttl_seconds"`   // freshness window for current-location samples
	SweepIntervalSeconds int `json:"sweep_interval_seconds"` // interval of the stale-location sweeper
	HistoryLimit         int `json:"history_limit"`          // default cap on history queries
}

// CacheConfig contains cache manager configuration
type CacheConfig struct {
	MaxItems             int `json:"max_items"`
	DefaultTTLSeconds    int `json:"default_ttl_seconds"`
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
