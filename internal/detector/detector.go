// Package detector provides the detector capability interface, the named
// factory registry and the runtime-switchable active detector manager.
package detector

import (
	"context"
	"time"

	"github.com/astralabs/astra-go/internal/errors"
)

// Sentinel errors for detector lookup and per-call detection failures.
// Detection errors are recoverable per call, the orchestrator marks the
// affected event FAILED and continues with its siblings.
var (
	// ErrUnknownDetector is returned when a detector name was never registered.
	ErrUnknownDetector = errors.NewStd("unknown detector")
	// ErrDetectionUnavailable indicates the backing resource is not ready.
	ErrDetectionUnavailable = errors.NewStd("detection unavailable")
	// ErrDetectionFailed indicates a runtime error during classification.
	ErrDetectionFailed = errors.NewStd("detection failed")
)

// Result is the outcome of one detection call. Produced once, never mutated.
type Result struct {
	Label      string         // open label set, e.g. "AI-generated", "human-written", "suspicious"
	Confidence float64        // model confidence in [0,1]
	Detector   string         // identity string of the detector that produced the result
	Metadata   map[string]any // arbitrary explanatory metadata
	Timestamp  time.Time
}

// Detector is the capability interface implemented by all detector variants.
type Detector interface {
	// Identify returns the stable identity string of this detector. It does
	// not have to match the name the detector was registered under.
	Identify() string
	// Detect analyzes the given text and returns a classification. It may
	// fail with ErrDetectionUnavailable or ErrDetectionFailed, both
	// recoverable per call.
	Detect(ctx context.Context, text string, metadata map[string]any) (Result, error)
}

// Factory constructs a detector from a free-form configuration map.
// Construction may perform one-time expensive setup and must be safe to call
// again after a failure.
type Factory func(config map[string]any) (Detector, error)
