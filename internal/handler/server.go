// Package handler contains the HTTP handlers of the management API.
package handler

import (
	"time"

	"shopops/internal/clonejob"
	"shopops/internal/scheduler"
	"shopops/internal/services"
	"shopops/internal/syncsvc"
	"shopops/internal/types"
	"shopops/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// Server aggregates the services exposed over HTTP.
type Server struct {
	DB            *gorm.DB
	ConfigManager types.ConfigManager
	RuleService   *scheduler.RuleService
	Engine        *scheduler.Engine
	CloneService  *clonejob.Service
	Coordinator   *syncsvc.Coordinator
	LogService    *services.LogService
}

// ServerParams contains the dependencies for the Server.
type ServerParams struct {
	dig.In

	DB            *gorm.DB
	ConfigManager types.ConfigManager
	RuleService   *scheduler.RuleService
	Engine        *scheduler.Engine
	CloneService  *clonejob.Service
	Coordinator   *syncsvc.Coordinator
	LogService    *services.LogService
}

// NewServer creates a new Server instance.
func NewServer(params ServerParams) *Server {
	return &Server{
		DB:            params.DB,
		ConfigManager: params.ConfigManager,
		RuleService:   params.RuleService,
		Engine:        params.Engine,
		CloneService:  params.CloneService,
		Coordinator:   params.Coordinator,
		LogService:    params.LogService,
	}
}

// Health handles the health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
