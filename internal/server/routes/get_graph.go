package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/pkg/common"
)

// GetGraphHandler returns the current graph. While a run is processing
// the snapshot may lag by one document, which is fine for inspection.
func GetGraphHandler(c echo.Context) error {
	type graphResponse struct {
		Message       string                 `json:"message,omitempty"`
		Entities      int                    `json:"entity_count"`
		Concepts      int                    `json:"concept_count"`
		Relationships int                    `json:"relationship_count"`
		Graph         *common.KnowledgeGraph `json:"graph,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	g := app.Pipeline.Graph()
	if g == nil {
		return c.JSON(http.StatusNotFound, graphResponse{
			Message: "No run has been started",
		})
	}

	resp := graphResponse{
		Entities:      len(g.Entities),
		Concepts:      len(g.Concepts),
		Relationships: len(g.Relationships),
	}
	if c.QueryParam("summary") != "true" {
		resp.Graph = g
	}
	return c.JSON(http.StatusOK, resp)
}
