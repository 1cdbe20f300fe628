package routes

import (
	"context"
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/loader"
	loaderio "github.com/loom-graph/loom/pkg/loader/io"
	loaderweb "github.com/loom-graph/loom/pkg/loader/web"
	"github.com/loom-graph/loom/pkg/logger"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// StartRunHandler loads documents from the requested source and starts
// a fresh run over them in the background.
func StartRunHandler(c echo.Context) error {
	type startRunBody struct {
		Dir  string   `json:"dir"`
		URLs []string `json:"urls"`
	}

	type startRunResponse struct {
		Message string `json:"message"`
		RunID   string `json:"run_id,omitempty"`
		Total   int    `json:"total_documents,omitempty"`
	}

	data := new(startRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, startRunResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	if app.Pipeline.Progress().Status == common.StatusProcessing {
		return c.JSON(http.StatusConflict, startRunResponse{
			Message: "A run is already in progress",
		})
	}

	var source loader.Source
	switch {
	case len(data.URLs) > 0:
		source = loaderweb.NewURLSource(data.URLs, nil)
	case data.Dir != "":
		source = loaderio.NewDirSource(data.Dir)
	default:
		source = loaderio.NewDirSource(app.Config.Source.Dir)
	}

	docs, err := source.Load(c.Request().Context())
	if err != nil {
		logger.Error("Failed to load documents", "err", err)
		return c.JSON(http.StatusBadRequest, startRunResponse{
			Message: "Failed to load documents",
		})
	}
	docs, err = loader.Prepare(docs)
	if err != nil || len(docs) == 0 {
		return c.JSON(http.StatusBadRequest, startRunResponse{
			Message: "No processable documents found",
		})
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, startRunResponse{
			Message: "Internal server error",
		})
	}

	// The request context dies with the response; the run must outlive it.
	go func() {
		if err := app.Pipeline.Start(context.Background(), runID, docs); err != nil {
			if errors.Is(err, pipeline.ErrNoCredential) {
				logger.Error("Run aborted, no model credential", "run", runID)
				return
			}
			logger.Warn("Run suspended", "run", runID, "err", err)
		}
	}()

	return c.JSON(http.StatusAccepted, startRunResponse{
		Message: "Run started",
		RunID:   runID,
		Total:   len(docs),
	})
}
