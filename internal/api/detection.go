// detection.go: detector management and detection endpoints
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
	"github.com/astralabs/astra-go/internal/errors"
)

// previewLength bounds the text preview stored for ad-hoc detections.
const previewLength = 200

// DetectorsResponse lists the active detector and all registered names.
type DetectorsResponse struct {
	Active    string   `json:"active"`
	Available []string `json:"available"`
}

// SetDetectorRequest selects a new active detector.
type SetDetectorRequest struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// DetectRequest carries a one-off detection payload.
type DetectRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// DetectResponse is the outcome of a one-off detection call.
type DetectResponse struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Detector   string         `json:"detector"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// GetDetectors handles GET /api/v1/detectors.
func (c *Controller) GetDetectors(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, DetectorsResponse{
		Active:    c.Detectors.ActiveName(),
		Available: detector.Default().ListNames(),
	})
}

// SetActiveDetector handles PUT /api/v1/detectors/active. On failure the
// previously active detector stays in place.
func (c *Controller) SetActiveDetector(ctx echo.Context) error {
	var req SetDetectorRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Name == "" {
		return c.HandleError(ctx, nil, "Detector name is required", http.StatusBadRequest)
	}

	if err := c.Detectors.Use(req.Name, req.Config); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, detector.ErrUnknownDetector) {
			code = http.StatusNotFound
		}
		return c.HandleError(ctx, err, "Failed to switch detector", code)
	}

	return ctx.JSON(http.StatusOK, DetectorsResponse{
		Active:    c.Detectors.ActiveName(),
		Available: detector.Default().ListNames(),
	})
}

// DetectText handles POST /api/v1/detect, running the active detector on the
// submitted text and storing the result as an analytics record. Ad-hoc
// detections carry the placeholder event id "manual" since no content event
// backs them.
func (c *Controller) DetectText(ctx echo.Context) error {
	var req DetectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Text == "" {
		return c.HandleError(ctx, nil, "Text is required", http.StatusBadRequest)
	}

	active, err := c.Detectors.Active()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to initialize detector", http.StatusInternalServerError)
	}

	callCtx := ctx.Request().Context()
	if c.Settings.Detection.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.Settings.Detection.Timeout)
		defer cancel()
	}

	result, err := active.Detect(callCtx, req.Text, req.Metadata)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, detector.ErrDetectionUnavailable) {
			code = http.StatusServiceUnavailable
		}
		return c.HandleError(ctx, err, "Detection failed", code)
	}

	record := datastore.AnalyticsRecord{
		EventID:        "manual",
		Source:         "api",
		TextPreview:    previewOf(req.Text),
		DetectionLabel: result.Label,
		Confidence:     result.Confidence,
		Timestamp:      result.Timestamp,
	}
	if err := c.DS.SaveAnalyticsRecord(&record); err != nil {
		return c.HandleError(ctx, err, "Failed to store detection result", http.StatusInternalServerError)
	}
	c.queryCache.Flush()

	return ctx.JSON(http.StatusOK, DetectResponse{
		Label:      result.Label,
		Confidence: result.Confidence,
		Detector:   result.Detector,
		Metadata:   result.Metadata,
		Timestamp:  result.Timestamp,
	})
}

// previewOf bounds the stored preview to previewLength runes.
func previewOf(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength])
}

// ProcessPending handles POST /api/v1/process, running one detection batch
// over all pending events.
func (c *Controller) ProcessPending(ctx echo.Context) error {
	summary, err := c.Orchestrator.ProcessPending(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to process pending events", http.StatusInternalServerError)
	}
	// Processing changes the aggregates behind cached queries.
	c.queryCache.Flush()
	return ctx.JSON(http.StatusOK, summary)
}
