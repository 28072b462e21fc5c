// graph.go: actor and fingerprint co-occurrence graph endpoint
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/astralabs/astra-go/internal/graph"
)

// GetCooccurrenceGraph handles GET /api/v1/graph/cooccurrence. Caps default
// to the configured values and can be narrowed per request with max_edges and
// max_nodes query parameters.
func (c *Controller) GetCooccurrenceGraph(ctx echo.Context) error {
	maxEdges := queryInt(ctx, "max_edges", c.Settings.Graph.MaxEdges)
	maxNodes := queryInt(ctx, "max_nodes", c.Settings.Graph.MaxNodes)

	cacheKey := fmt.Sprintf("graph:%d:%d", maxEdges, maxNodes)
	if cached, found := c.queryCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	result, err := graph.Build(c.DS, maxEdges, maxNodes)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build co-occurrence graph", http.StatusInternalServerError)
	}

	c.queryCache.SetDefault(cacheKey, result)
	return ctx.JSON(http.StatusOK, result)
}
