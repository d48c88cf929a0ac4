package types

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	IsMaster() bool
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetPerformanceConfig() PerformanceConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetSchedulerConfig() SchedulerConfig
	GetMarketplaceConfig() MarketplaceConfig
	GetEffectiveServerConfig() ServerConfig
	GetRedisDSN() string
	Validate() error
	DisplayServerConfig()
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	IsMaster                bool   `json:"is_master"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Key string `json:"key"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// PerformanceConfig represents performance configuration
type PerformanceConfig struct {
	MaxConcurrentRequests int `json:"max_concurrent_requests"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// SchedulerConfig groups the tunables of the background schedulers.
type SchedulerConfig struct {
	// ProcessDueCron is a robfig/cron spec for the budget rule pass.
	ProcessDueCron string `json:"process_due_cron"`
	// CloneCheckIntervalSeconds is the poll interval for due clone jobs.
	CloneCheckIntervalSeconds int `json:"clone_check_interval_seconds"`
	// CloneLeadMinutes is the default lead time subtracted from the target
	// time slot start when a clone job does not specify one.
	CloneLeadMinutes int `json:"clone_lead_minutes"`
	// StalenessThresholdMinutes is the default per-domain sync staleness threshold.
	StalenessThresholdMinutes int `json:"staleness_threshold_minutes"`
	// SyncTimeoutSeconds bounds a single sync pass.
	SyncTimeoutSeconds int `json:"sync_timeout_seconds"`
	// ExecutionLogRetentionDays controls execution log cleanup. 0 disables cleanup.
	ExecutionLogRetentionDays int `json:"execution_log_retention_days"`
}

// MarketplaceConfig represents the outbound marketplace API client configuration.
type MarketplaceConfig struct {
	BaseURL        string  `json:"base_url"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	RatePerSecond  float64 `json:"rate_per_second"`
	RateBurst      int     `json:"rate_burst"`
}
