// Package container builds the dig dependency graph.
package container

import (
	"shopops/internal/app"
	"shopops/internal/clonejob"
	"shopops/internal/config"
	"shopops/internal/db"
	"shopops/internal/handler"
	"shopops/internal/marketplace"
	"shopops/internal/router"
	"shopops/internal/scheduler"
	"shopops/internal/services"
	"shopops/internal/store"
	"shopops/internal/syncsvc"
	"shopops/internal/types"

	"go.uber.org/dig"
)

// BuildContainer creates and configures the dependency injection container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		// Infrastructure
		config.NewManager,
		db.NewDB,
		store.NewStore,
		func(configManager types.ConfigManager) marketplace.Client {
			return marketplace.NewHTTPClient(configManager)
		},

		// Domain services
		scheduler.NewRuleService,
		scheduler.NewEngine,
		scheduler.NewRunner,
		clonejob.NewService,
		clonejob.NewRunner,
		syncsvc.NewCoordinator,
		services.NewLogService,
		services.NewLogCleanupService,

		// HTTP layer
		handler.NewServer,
		router.NewRouter,

		// Application
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
