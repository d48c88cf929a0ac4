package config

import (
	"shopops/internal/types"
)

// MockConfig implements types.ConfigManager for testing.
type MockConfig struct {
	AuthKeyValue string
	Scheduler    types.SchedulerConfig
}

// NewMockConfig returns a MockConfig with sensible test defaults.
func NewMockConfig() *MockConfig {
	return &MockConfig{
		AuthKeyValue: "test-key",
		Scheduler: types.SchedulerConfig{
			ProcessDueCron:            "*/5 * * * *",
			CloneCheckIntervalSeconds: 1,
			CloneLeadMinutes:          10,
			StalenessThresholdMinutes: 5,
			SyncTimeoutSeconds:        30,
			ExecutionLogRetentionDays: 30,
		},
	}
}

func (m *MockConfig) IsMaster() bool {
	return true
}

func (m *MockConfig) GetAuthConfig() types.AuthConfig {
	return types.AuthConfig{Key: m.AuthKeyValue}
}

func (m *MockConfig) GetCORSConfig() types.CORSConfig {
	return types.CORSConfig{
		Enabled:          false,
		AllowedOrigins:   []string{},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}
}

func (m *MockConfig) GetPerformanceConfig() types.PerformanceConfig {
	return types.PerformanceConfig{MaxConcurrentRequests: 100}
}

func (m *MockConfig) GetLogConfig() types.LogConfig {
	return types.LogConfig{
		Level:      "info",
		Format:     "text",
		EnableFile: false,
		FilePath:   "./data/logs/app.log",
	}
}

func (m *MockConfig) GetDatabaseConfig() types.DatabaseConfig {
	return types.DatabaseConfig{}
}

func (m *MockConfig) GetSchedulerConfig() types.SchedulerConfig {
	return m.Scheduler
}

func (m *MockConfig) GetMarketplaceConfig() types.MarketplaceConfig {
	return types.MarketplaceConfig{
		BaseURL:        "http://marketplace.test",
		TimeoutSeconds: 5,
		RatePerSecond:  100,
		RateBurst:      100,
	}
}

func (m *MockConfig) GetEffectiveServerConfig() types.ServerConfig {
	return types.ServerConfig{
		IsMaster:                true,
		Port:                    3001,
		Host:                    "0.0.0.0",
		ReadTimeout:             60,
		WriteTimeout:            120,
		IdleTimeout:             120,
		GracefulShutdownTimeout: 10,
	}
}

func (m *MockConfig) GetRedisDSN() string {
	return ""
}

func (m *MockConfig) Validate() error {
	return nil
}

func (m *MockConfig) DisplayServerConfig() {}
