package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// ResumeRunHandler continues a paused run. When a run_id is supplied and
// no paused run is held in memory, the persisted checkpoint is loaded.
func ResumeRunHandler(c echo.Context) error {
	type resumeBody struct {
		RunID string `json:"run_id"`
	}

	type resumeResponse struct {
		Message string `json:"message"`
	}

	data := new(resumeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, resumeResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	if data.RunID == "" && app.Pipeline.Progress().Status != common.StatusPaused {
		return c.JSON(http.StatusConflict, resumeResponse{
			Message: "No paused run to resume",
		})
	}

	go func() {
		var err error
		if data.RunID != "" {
			err = app.Pipeline.ResumeFromCheckpoint(context.Background(), data.RunID)
		} else {
			err = app.Pipeline.Resume(context.Background())
		}
		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrNotPaused), errors.Is(err, pipeline.ErrNoCheckpoint):
			logger.Warn("Resume rejected", "err", err)
		default:
			logger.Warn("Run suspended", "err", err)
		}
	}()

	return c.JSON(http.StatusAccepted, resumeResponse{
		Message: "Resume requested",
	})
}
