// exchange.go: threat exchange endpoints
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/astralabs/astra-go/internal/errors"
	"github.com/astralabs/astra-go/internal/exchange"
)

// ImportResponse reports the outcome of an envelope import.
type ImportResponse struct {
	Status             string `json:"status"`
	ProducerInstanceID string `json:"producer_instance_id"`
	Inserted           int    `json:"inserted"`
}

// ExportIndicators handles GET /api/v1/exchange/export, returning a stamped
// envelope of the local top indicator groups.
func (c *Controller) ExportIndicators(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 0)
	envelope, err := c.Exchange.Export(limit, c.Settings.Main.BaseURL)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to export threat indicators", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, envelope)
}

// ImportIndicators handles POST /api/v1/exchange/import. Envelopes with an
// unsupported schema version are rejected with 400 and leave the store
// untouched.
func (c *Controller) ImportIndicators(ctx echo.Context) error {
	var envelope exchange.Envelope
	if err := ctx.Bind(&envelope); err != nil {
		return c.HandleError(ctx, err, "Invalid envelope", http.StatusBadRequest)
	}

	inserted, err := c.Exchange.Import(&envelope)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, exchange.ErrUnsupportedSchemaVersion) {
			code = http.StatusBadRequest
		}
		return c.HandleError(ctx, err, "Failed to import threat indicators", code)
	}

	c.queryCache.Flush()
	return ctx.JSON(http.StatusOK, ImportResponse{
		Status:             "imported",
		ProducerInstanceID: envelope.Producer.InstanceID,
		Inserted:           inserted,
	})
}

// ListIndicators handles GET /api/v1/exchange/indicators, optionally filtered
// by producer instance id.
func (c *Controller) ListIndicators(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	producer := ctx.QueryParam("producer")

	indicators, err := c.Exchange.List(limit, producer)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list threat indicators", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, indicators)
}
