// Package http provides HTTP server infrastructure including the Module
// interface that domain modules implement for route registration.
package http

import (
	"github.com/gin-gonic/gin"

	"outreach_backend/platform/config"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route
// registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level
	// access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the token-authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Config is the JWT configuration for auth middleware.
	Config config.JWTConfig
}
