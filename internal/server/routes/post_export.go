package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/export"
	"github.com/loom-graph/loom/pkg/logger"
)

// ExportGraphHandler writes the graph to disk in the requested format.
// Export is only allowed once the run has settled so the snapshot is
// consistent.
func ExportGraphHandler(c echo.Context) error {
	type exportBody struct {
		Format string `json:"format" validate:"required,oneof=json vault context"`
		Path   string `json:"path" validate:"required"`
	}

	type exportResponse struct {
		Message string `json:"message"`
		Path    string `json:"path,omitempty"`
	}

	data := new(exportBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, exportResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, exportResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	status := app.Pipeline.Progress().Status
	if status == common.StatusProcessing {
		return c.JSON(http.StatusConflict, exportResponse{
			Message: "Run is still processing, pause or stop it first",
		})
	}

	g := app.Pipeline.Graph()
	if g == nil {
		return c.JSON(http.StatusNotFound, exportResponse{
			Message: "No graph to export",
		})
	}

	var err error
	switch data.Format {
	case "json":
		err = export.WriteJSON(g, data.Path)
	case "vault":
		err = export.WriteVault(g, data.Path)
	case "context":
		err = export.WriteContext(g, data.Path)
	}
	if err != nil {
		logger.Error("Export failed", "format", data.Format, "err", err)
		return c.JSON(http.StatusInternalServerError, exportResponse{
			Message: "Export failed",
		})
	}

	return c.JSON(http.StatusOK, exportResponse{
		Message: "Export written",
		Path:    data.Path,
	})
}
