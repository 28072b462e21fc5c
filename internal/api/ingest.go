// ingest.go: content ingestion endpoint
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/astralabs/astra-go/internal/errors"
	"github.com/astralabs/astra-go/internal/ingest"
)

// IngestRequest optionally selects a single connector to run. An empty body
// runs every connector enabled in the configuration.
type IngestRequest struct {
	Connector string `json:"connector"`
}

// IngestResponse reports the outcome of one ingestion run.
type IngestResponse struct {
	Status   string `json:"status"`
	Ingested int    `json:"ingested"`
}

// RunIngest handles POST /api/v1/ingest, running the requested connector, or
// every enabled connector, once and storing the fetched events.
func (c *Controller) RunIngest(ctx echo.Context) error {
	var req IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	var connectors []ingest.Connector
	if req.Connector != "" {
		connector, err := ingest.Default().Get(req.Connector, c.Settings)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, ingest.ErrUnknownConnector) {
				code = http.StatusNotFound
			}
			return c.HandleError(ctx, err, "Unknown connector", code)
		}
		connectors = []ingest.Connector{connector}
	} else {
		connectors = ingest.Connectors(c.Settings)
		if len(connectors) == 0 {
			return c.HandleError(ctx, nil, "No ingest connectors are enabled", http.StatusBadRequest)
		}
	}

	total, err := c.Publisher.Run(ctx.Request().Context(), connectors)
	if err != nil {
		return c.HandleError(ctx, err, "Ingestion failed", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, IngestResponse{
		Status:   "ingested",
		Ingested: total,
	})
}
