package server

import (
	"github.com/loom-graph/loom/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Run lifecycle routes
	apiRoutes.POST("/runs", routes.StartRunHandler)
	apiRoutes.POST("/runs/pause", routes.PauseRunHandler)
	apiRoutes.POST("/runs/resume", routes.ResumeRunHandler)
	apiRoutes.POST("/runs/stop", routes.StopRunHandler)
	apiRoutes.GET("/runs/status", routes.GetRunStatusHandler)

	// Graph routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.POST("/graph/export", routes.ExportGraphHandler)
}
