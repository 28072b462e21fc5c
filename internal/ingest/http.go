package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/k3a/html2text"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/errors"
)

// maxFetchBytes caps the body read from a single page.
const maxFetchBytes = 1 << 20

// defaultHTTPTimeout applies when no per-request timeout is configured.
const defaultHTTPTimeout = 15 * time.Second

func init() {
	Default().Register("http", func(settings *conf.Settings) Connector {
		return NewHTTPConnector(settings.Ingest.HTTP)
	})
}

// HTTPConnector ingests pages from a configured list of URLs.
type HTTPConnector struct {
	settings conf.HTTPIngestSettings
	client   *http.Client
}

// NewHTTPConnector creates a connector fetching the configured URLs.
func NewHTTPConnector(settings conf.HTTPIngestSettings) *HTTPConnector {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPConnector{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

// SourceName identifies events produced by this connector.
func (c *HTTPConnector) SourceName() string {
	return "http"
}

// Fetch downloads every configured URL. A failed page is skipped so one
// unreachable host does not block the rest of the list.
func (c *HTTPConnector) Fetch(ctx context.Context) ([]datastore.ContentEvent, error) {
	events := make([]datastore.ContentEvent, 0, len(c.settings.URLs))
	var lastErr error
	for _, pageURL := range c.settings.URLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		event, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			lastErr = err
			continue
		}
		events = append(events, event)
	}
	if len(events) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return events, nil
}

func (c *HTTPConnector) fetchPage(ctx context.Context, pageURL string) (datastore.ContentEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return datastore.ContentEvent{}, errors.New(fmt.Errorf("bad URL %q: %w", pageURL, err)).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return datastore.ContentEvent{}, errors.New(fmt.Errorf("fetching %s: %w", pageURL, err)).
			Component("ingest").
			Category(errors.CategoryNetwork).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return datastore.ContentEvent{}, errors.Newf("fetching %s: unexpected status %d", pageURL, resp.StatusCode).
			Component("ingest").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return datastore.ContentEvent{}, errors.New(fmt.Errorf("reading %s: %w", pageURL, err)).
			Component("ingest").
			Category(errors.CategoryNetwork).
			Build()
	}

	text := string(body)
	if c.settings.StripHTML && strings.Contains(text, "<") {
		text = html2text.HTML2Text(text)
	}

	return newEvent(c.SourceName(), "http:"+hostOf(pageURL), text, map[string]any{
		"url":    pageURL,
		"status": resp.StatusCode,
		"length": len(text),
	}), nil
}

// hostOf extracts the host part of a URL for actor attribution, falling back
// to the raw URL when it does not parse.
func hostOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return pageURL
	}
	return parsed.Host
}
