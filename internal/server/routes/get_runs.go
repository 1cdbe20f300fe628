package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// GetRunStatusHandler reports progress of the current run.
func GetRunStatusHandler(c echo.Context) error {
	type statusResponse struct {
		Progress pipeline.Progress        `json:"progress"`
		Errors   []common.ProcessingError `json:"processing_errors,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	resp := statusResponse{Progress: app.Pipeline.Progress()}
	if state := app.Pipeline.State(); state != nil {
		resp.Errors = state.Errors
	}
	return c.JSON(http.StatusOK, resp)
}
