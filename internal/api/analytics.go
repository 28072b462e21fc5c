// analytics.go: analytics record and statistics endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const statsCacheKey = "analytics-stats"

// GetRecords handles GET /api/v1/records, optionally filtered by label.
func (c *Controller) GetRecords(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	label := ctx.QueryParam("label")

	if label != "" {
		records, err := c.DS.GetRecordsByLabel(label, limit)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to get analytics records", http.StatusInternalServerError)
		}
		return ctx.JSON(http.StatusOK, records)
	}

	records, err := c.DS.GetRecentRecords(limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get analytics records", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/stats. Results are cached briefly because the
// aggregation touches every analytics record.
func (c *Controller) GetStats(ctx echo.Context) error {
	if cached, found := c.queryCache.Get(statsCacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	stats, err := c.DS.GetAnalyticsStats()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get analytics stats", http.StatusInternalServerError)
	}

	c.queryCache.SetDefault(statsCacheKey, stats)
	return ctx.JSON(http.StatusOK, stats)
}
