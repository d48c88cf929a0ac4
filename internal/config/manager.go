// Package config loads configuration from environment variables (and an
// optional .env file) and exposes it through types.ConfigManager.
package config

import (
	"fmt"
	"os"

	"shopops/internal/types"
	"shopops/internal/utils"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Config holds the full resolved configuration.
type Config struct {
	Server      types.ServerConfig
	Auth        types.AuthConfig
	CORS        types.CORSConfig
	Performance types.PerformanceConfig
	Log         types.LogConfig
	Database    types.DatabaseConfig
	RedisDSN    string
	Scheduler   types.SchedulerConfig
	Marketplace types.MarketplaceConfig
}

// Manager implements types.ConfigManager on top of the environment.
type Manager struct {
	config *Config
}

// NewManager creates a configuration manager and performs the initial load.
func NewManager() (types.ConfigManager, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	manager := &Manager{}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}
	return manager, nil
}

// ReloadConfig re-reads the environment into the manager.
func (m *Manager) ReloadConfig() error {
	config := &Config{
		Server: types.ServerConfig{
			Port:                    utils.ParseInteger(os.Getenv("PORT"), 3001),
			Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
			IsMaster:                !utils.ParseBoolean(os.Getenv("IS_SLAVE"), false),
			ReadTimeout:             utils.ParseInteger(os.Getenv("SERVER_READ_TIMEOUT"), 60),
			WriteTimeout:            utils.ParseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), 120),
			IdleTimeout:             utils.ParseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), 120),
			GracefulShutdownTimeout: utils.ParseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), 10),
		},
		Auth: types.AuthConfig{
			Key: os.Getenv("AUTH_KEY"),
		},
		CORS: types.CORSConfig{
			Enabled:          utils.ParseBoolean(os.Getenv("ENABLE_CORS"), false),
			AllowedOrigins:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_ORIGINS", "*")),
			AllowedMethods:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_HEADERS", "*")),
			AllowCredentials: utils.ParseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		Performance: types.PerformanceConfig{
			MaxConcurrentRequests: utils.ParseInteger(os.Getenv("MAX_CONCURRENT_REQUESTS"), 100),
		},
		Log: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: utils.ParseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		Database: types.DatabaseConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		RedisDSN: os.Getenv("REDIS_DSN"),
		Scheduler: types.SchedulerConfig{
			ProcessDueCron:            utils.GetEnvOrDefault("PROCESS_DUE_CRON", "*/5 * * * *"),
			CloneCheckIntervalSeconds: utils.ParseInteger(os.Getenv("CLONE_CHECK_INTERVAL_SECONDS"), 30),
			CloneLeadMinutes:          utils.ParseInteger(os.Getenv("CLONE_LEAD_MINUTES"), 10),
			StalenessThresholdMinutes: utils.ParseInteger(os.Getenv("STALENESS_THRESHOLD_MINUTES"), 5),
			SyncTimeoutSeconds:        utils.ParseInteger(os.Getenv("SYNC_TIMEOUT_SECONDS"), 300),
			ExecutionLogRetentionDays: utils.ParseInteger(os.Getenv("EXECUTION_LOG_RETENTION_DAYS"), 30),
		},
		Marketplace: types.MarketplaceConfig{
			BaseURL:        utils.GetEnvOrDefault("MARKETPLACE_BASE_URL", "https://partner.marketplace.example.com"),
			TimeoutSeconds: utils.ParseInteger(os.Getenv("MARKETPLACE_TIMEOUT_SECONDS"), 30),
			RatePerSecond:  utils.ParseFloat(os.Getenv("MARKETPLACE_RATE_PER_SECOND"), 5),
			RateBurst:      utils.ParseInteger(os.Getenv("MARKETPLACE_RATE_BURST"), 10),
		},
	}

	m.config = config
	return m.Validate()
}

// Validate checks the loaded configuration for coherence.
func (m *Manager) Validate() error {
	c := m.config

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Auth.Key == "" {
		return fmt.Errorf("AUTH_KEY is required")
	}
	if c.Performance.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent requests cannot be less than 1")
	}
	if _, err := cron.ParseStandard(c.Scheduler.ProcessDueCron); err != nil {
		return fmt.Errorf("invalid PROCESS_DUE_CRON %q: %w", c.Scheduler.ProcessDueCron, err)
	}
	if c.Scheduler.CloneCheckIntervalSeconds < 1 {
		return fmt.Errorf("clone check interval cannot be less than 1 second")
	}
	if c.Scheduler.CloneLeadMinutes < 0 {
		return fmt.Errorf("clone lead minutes cannot be negative")
	}
	if c.Scheduler.StalenessThresholdMinutes < 1 {
		return fmt.Errorf("staleness threshold cannot be less than 1 minute")
	}
	if c.Scheduler.SyncTimeoutSeconds < 1 {
		return fmt.Errorf("sync timeout cannot be less than 1 second")
	}
	if c.Marketplace.RatePerSecond <= 0 {
		return fmt.Errorf("marketplace rate per second must be positive")
	}
	if c.Marketplace.RateBurst < 1 {
		return fmt.Errorf("marketplace rate burst cannot be less than 1")
	}
	return nil
}

// IsMaster returns whether this instance runs the background schedulers.
func (m *Manager) IsMaster() bool {
	return m.config.Server.IsMaster
}

// GetAuthConfig returns authentication configuration.
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.config.Auth
}

// GetCORSConfig returns CORS configuration.
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.config.CORS
}

// GetPerformanceConfig returns performance configuration.
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.config.Performance
}

// GetLogConfig returns logging configuration.
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.config.Log
}

// GetDatabaseConfig returns database configuration.
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.config.Database
}

// GetSchedulerConfig returns scheduler configuration.
func (m *Manager) GetSchedulerConfig() types.SchedulerConfig {
	return m.config.Scheduler
}

// GetMarketplaceConfig returns marketplace client configuration.
func (m *Manager) GetMarketplaceConfig() types.MarketplaceConfig {
	return m.config.Marketplace
}

// GetEffectiveServerConfig returns the server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.config.Server
}

// GetRedisDSN returns the Redis connection string, empty when unset.
func (m *Manager) GetRedisDSN() string {
	return m.config.RedisDSN
}

// DisplayServerConfig logs a condensed view of the effective configuration.
func (m *Manager) DisplayServerConfig() {
	c := m.config
	logrus.Info("-------- Server Configuration --------")
	logrus.Infof("  Listen address: %s:%d", c.Server.Host, c.Server.Port)
	logrus.Infof("  Role: %s", map[bool]string{true: "master", false: "slave"}[c.Server.IsMaster])
	logrus.Infof("  Database: %s", describeDSN(c.Database.DSN))
	logrus.Infof("  Store: %s", map[bool]string{true: "redis", false: "memory"}[c.RedisDSN != ""])
	logrus.Infof("  Process-due cron: %s", c.Scheduler.ProcessDueCron)
	logrus.Infof("  Staleness threshold: %dm", c.Scheduler.StalenessThresholdMinutes)
	logrus.Infof("  Marketplace: %s (%.1f req/s, burst %d)",
		c.Marketplace.BaseURL, c.Marketplace.RatePerSecond, c.Marketplace.RateBurst)
	logrus.Info("--------------------------------------")
}

// describeDSN names the backing database without leaking credentials.
func describeDSN(dsn string) string {
	switch {
	case dsn == "":
		return "sqlite (default)"
	case len(dsn) >= 11 && dsn[:11] == "postgresql:":
		return "postgres"
	case len(dsn) >= 9 && dsn[:9] == "postgres:":
		return "postgres"
	case len(dsn) >= 6 && dsn[:6] == "mysql:":
		return "mysql"
	default:
		return "custom DSN"
	}
}
