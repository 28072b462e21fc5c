package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/astralabs/astra-go/internal/errors"
	"github.com/k3a/html2text"
)

const defaultRemoteTimeout = 30 * time.Second

// RemoteDetector delegates classification to an external inference service
// over HTTP. The service is treated as opaque: it accepts text and returns a
// label, a confidence and explanatory metadata.
type RemoteDetector struct {
	endpoint  string
	stripHTML bool
	labels    []string
	client    *http.Client
}

func init() {
	Default().Register("remote", NewRemoteDetector)
}

// NewRemoteDetector constructs a remote detector.
// Config keys: endpoint (string, required), striphtml (bool), labels
// ([]string, candidate labels forwarded to the inference service).
func NewRemoteDetector(config map[string]any) (Detector, error) {
	endpoint := configString(config, "endpoint", "")
	if endpoint == "" {
		return nil, fmt.Errorf("remote detector requires an endpoint")
	}
	return &RemoteDetector{
		endpoint:  endpoint,
		stripHTML: configBool(config, "striphtml", false),
		labels:    configStrings(config, "labels", nil),
		client: &http.Client{
			Timeout: defaultRemoteTimeout,
		},
	}, nil
}

// Identify returns the stable identity of this detector.
func (d *RemoteDetector) Identify() string {
	return "remote-inference"
}

type remoteRequest struct {
	Text            string         `json:"text"`
	CandidateLabels []string       `json:"candidate_labels,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type remoteResponse struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Detector   string         `json:"detector_model"`
	Metadata   map[string]any `json:"metadata"`
}

// Detect posts the text to the inference endpoint. Transport failures map to
// ErrDetectionUnavailable, protocol and payload failures to ErrDetectionFailed.
func (d *RemoteDetector) Detect(ctx context.Context, text string, metadata map[string]any) (Result, error) {
	if d.stripHTML && strings.Contains(text, "<") {
		text = html2text.HTML2Text(text)
	}

	payload, err := json.Marshal(remoteRequest{Text: text, CandidateLabels: d.labels, Metadata: metadata})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encoding request: %w", ErrDetectionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", ErrDetectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, errors.New(fmt.Errorf("%w: %w", ErrDetectionUnavailable, err)).
			Component("detector").
			Category(errors.CategoryNetwork).
			Context("endpoint", d.endpoint).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Result{}, errors.New(fmt.Errorf("%w: inference endpoint returned status %d", ErrDetectionFailed, resp.StatusCode)).
			Component("detector").
			Category(errors.CategoryHTTP).
			Context("endpoint", d.endpoint).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var remote remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return Result{}, fmt.Errorf("%w: decoding response: %w", ErrDetectionFailed, err)
	}
	if remote.Label == "" {
		return Result{}, fmt.Errorf("%w: response missing label", ErrDetectionFailed)
	}

	detectorID := remote.Detector
	if detectorID == "" {
		detectorID = d.Identify()
	}

	return Result{
		Label:      remote.Label,
		Confidence: remote.Confidence,
		Detector:   detectorID,
		Metadata:   remote.Metadata,
		Timestamp:  time.Now(),
	}, nil
}
