package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/config"
	"github.com/loom-graph/loom/pkg/ai"
	"github.com/loom-graph/loom/pkg/graph"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// App holds the long-lived dependencies shared by all handlers. A single
// pipeline instance carries the run state machine across requests.
type App struct {
	Pipeline    *pipeline.Pipeline
	GraphClient *graph.GraphClient
	Model       ai.ModelClient
	Config      *config.Config
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
