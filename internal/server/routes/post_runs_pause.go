package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
)

// PauseRunHandler requests a cooperative pause. The run suspends at the
// next document boundary, never mid-extraction.
func PauseRunHandler(c echo.Context) error {
	type pauseResponse struct {
		Message string        `json:"message"`
		Status  common.Status `json:"status"`
	}

	app := c.(*middleware.AppContext).App
	progress := app.Pipeline.Progress()
	if progress.Status != common.StatusProcessing {
		return c.JSON(http.StatusConflict, pauseResponse{
			Message: "No run in progress",
			Status:  progress.Status,
		})
	}

	app.Pipeline.Pause()
	return c.JSON(http.StatusAccepted, pauseResponse{
		Message: "Pause requested",
		Status:  progress.Status,
	})
}
