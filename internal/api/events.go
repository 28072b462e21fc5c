// events.go: content event endpoints
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/ingest"
)

// CreateEventRequest submits a single content event for later detection.
type CreateEventRequest struct {
	Source     string         `json:"source"`
	ActorID    string         `json:"actor_id"`
	SourceHash string         `json:"source_hash"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

// GetEvents handles GET /api/v1/events, newest first.
func (c *Controller) GetEvents(ctx echo.Context) error {
	limit := queryInt(ctx, "limit", 100)
	events, err := c.DS.GetAllEvents(limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get events", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, events)
}

// GetEvent handles GET /api/v1/events/:id.
func (c *Controller) GetEvent(ctx echo.Context) error {
	id := ctx.Param("id")
	event, err := c.DS.GetEvent(id)
	if err != nil {
		return c.HandleError(ctx, err, "Event not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, event)
}

// CreateEvent handles POST /api/v1/events. The event is stored with status
// NEW and picked up by the next processing run.
func (c *Controller) CreateEvent(ctx echo.Context) error {
	var req CreateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.Text == "" {
		return c.HandleError(ctx, nil, "Text is required", http.StatusBadRequest)
	}
	if req.Source == "" {
		req.Source = "api"
	}
	if req.SourceHash == "" {
		req.SourceHash = ingest.Fingerprint(req.Source, req.Text)
	}

	event := datastore.ContentEvent{
		ID:               uuid.NewString(),
		Source:           req.Source,
		SourceHash:       &req.SourceHash,
		Text:             req.Text,
		ProcessingStatus: datastore.StatusNew,
	}
	if req.ActorID != "" {
		event.ActorID = &req.ActorID
	}
	if len(req.Metadata) > 0 {
		if data, err := json.Marshal(req.Metadata); err == nil {
			event.MetadataJSON = string(data)
		}
	}

	if err := c.DS.SaveEvent(&event); err != nil {
		return c.HandleError(ctx, err, "Failed to save event", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, event)
}

// queryInt parses an integer query parameter, returning fallback when the
// parameter is absent or malformed.
func queryInt(ctx echo.Context, name string, fallback int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
