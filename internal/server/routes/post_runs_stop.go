package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
)

// StopRunHandler requests a cooperative stop. The graph built so far
// stays available for export; the checkpoint is kept in case the run is
// resumed later anyway.
func StopRunHandler(c echo.Context) error {
	type stopResponse struct {
		Message string        `json:"message"`
		Status  common.Status `json:"status"`
	}

	app := c.(*middleware.AppContext).App
	progress := app.Pipeline.Progress()
	if progress.Status != common.StatusProcessing {
		return c.JSON(http.StatusConflict, stopResponse{
			Message: "No run in progress",
			Status:  progress.Status,
		})
	}

	app.Pipeline.Stop()
	return c.JSON(http.StatusAccepted, stopResponse{
		Message: "Stop requested",
		Status:  progress.Status,
	})
}
